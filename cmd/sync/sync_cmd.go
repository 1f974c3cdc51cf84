package sync

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harness/cpi-sync/config"
	"github.com/harness/cpi-sync/internal/terminal"
	"github.com/harness/cpi-sync/module/cpi"
	"github.com/harness/cpi-sync/module/cpi/auth"
	"github.com/harness/cpi-sync/module/cpi/client"
	"github.com/harness/cpi-sync/module/cpi/materialize"
	"github.com/harness/cpi-sync/module/cpi/types"
	"github.com/harness/cpi-sync/util/common/progress"
	"github.com/harness/cpi-sync/util/common/vcs"
	"github.com/harness/cpi-sync/util/templates"
)

// clientOptions are applied to every API client the command creates
var clientOptions []client.Option

var syncLong = templates.LongDesc(`
	Download the integration packages selected by the filter rules of the
	configuration file into a local directory.

	Every selected package directory is wiped and filled with the active
	version of each integration flow and value mapping of the package, either
	as the downloaded zip file or as its extracted content.

	Example configuration file (cpi-sync.json):

	  {
	    "cpisync": "0.3.0",
	    "tenant": {
	      "management_host": "tenant.it-cpi001.cfapps.eu10.hana.ondemand.com",
	      "credential": {
	        "s_user": {
	          "username": "S0012345678",
	          "password_environment_variable": "CPI_PASSWORD"
	        }
	      }
	    },
	    "packages": {
	      "zip_extraction": "enabled",
	      "prop_comment_removal": "enabled",
	      "local_dir": "./packages",
	      "download_worker_count": 5,
	      "filter_rules": [
	        { "type": "regex", "pattern": "^Acme" },
	        { "type": "single", "operation": "exclude", "id": "AcmeLegacy" }
	      ]
	    }
	  }

	Filter rules are applied in order, later rules override earlier ones.
	Rule types are regex, glob (whole id match) and single (exact package id).
	OAuth client credentials are configured with "oauth_client_credentials"
	holding client_id, token_endpoint_url and client_secret_environment_variable.

	Environment variables can be used in the config file using ${VAR_NAME} syntax.
	YAML configuration files are accepted as well.`)

var syncExample = templates.Examples(`
	# sync using ./cpi-sync.json, prompting for the password if needed
	cpisync sync

	# run unattended with another config file
	CPI_PASSWORD=... cpisync sync -c ./tenants/dev.json --no-input

	# review the target directory before anything is written
	cpisync sync --confirm

	# keep going when single artifacts cannot be downloaded
	cpisync sync --ignore-error-download --concurrency 10`)

// GetSyncCmd returns the sync command
func GetSyncCmd() *cobra.Command {
	var localConfigPath string
	var localConcurrency int
	var ignoreErrorDownload bool
	var noInput bool
	var confirm bool

	syncCmd := &cobra.Command{
		Use:     "sync",
		Short:   "Download integration packages as configured",
		Long:    syncLong,
		Example: syncExample,
		Args:    cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, args []string) {
			// Sync local flags to global config
			config.Global.ConfigPath = localConfigPath
			config.Global.NoInput = noInput
			config.Global.Sync.Concurrency = localConcurrency
			config.Global.Sync.IgnoreErrorDownload = ignoreErrorDownload
			config.Global.Sync.Confirm = confirm
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// Set up signal handling for graceful shutdown
			signalChan := make(chan os.Signal, 1)
			signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(signalChan)
			go func() {
				select {
				case <-signalChan:
					pterm.Warning.Println("Received interrupt signal, shutting down gracefully...")
					cancel()
				case <-ctx.Done():
				}
			}()

			return runSync(ctx)
		},
	}
	syncCmd.Flags().StringVarP(&localConfigPath, "config", "c", types.DefaultConfigFile, "Path to configuration file")
	syncCmd.Flags().IntVar(&localConcurrency, "concurrency", 0,
		"Number of concurrent downloads (overrides download_worker_count)")
	syncCmd.Flags().BoolVar(&ignoreErrorDownload, "ignore-error-download", false,
		"Skip artifacts that cannot be downloaded instead of failing")
	syncCmd.Flags().BoolVar(&noInput, "no-input", false, "Disable features that require user input")
	syncCmd.Flags().BoolVar(&confirm, "confirm", false,
		"Ask for confirmation before the output directory is written (interactive terminals only)")

	return syncCmd
}

func runSync(ctx context.Context) error {
	cfg, err := types.LoadConfig(config.Global.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if config.Global.Sync.Concurrency > 0 {
		cfg.Packages.DownloadWorkerCount = config.Global.Sync.Concurrency
	}
	if config.Global.Sync.IgnoreErrorDownload {
		cfg.Packages.IgnoreErrorDownload = true
	}

	outputDir, err := cfg.OutputDir(config.Global.ConfigPath)
	if err != nil {
		return err
	}

	logger := log.With().
		Str("config", config.Global.ConfigPath).
		Str("host", cfg.Tenant.ManagementHost).
		Str("output_dir", outputDir).
		Logger()
	logger.Info().Msg("Loaded configuration")

	termInfo := terminal.Detect(config.Global.NoColor, config.Global.NoInput)
	if config.Global.Sync.Confirm && termInfo.PromptEnabled {
		start, err := pterm.DefaultInteractiveConfirm.
			WithDefaultValue(true).
			Show(fmt.Sprintf("Start CPI Sync into %s?", outputDir))
		if err != nil {
			return err
		}
		if !start {
			pterm.Info.Println("Cancelled.")
			return nil
		}
	}

	secret, err := auth.ResolveSecret(cfg.Tenant.Credential, !termInfo.PromptEnabled, auth.NewTerminalPrompter())
	if err != nil {
		return err
	}
	// the token request retries like the API requests
	tokenClient := client.NewClient(cfg.Tenant.ManagementHost, "", clientOptions...).StandardClient()
	authorization, err := auth.Authorize(ctx, cfg.Tenant.Credential, secret, tokenClient)
	if err != nil {
		return err
	}

	apiClient := client.NewClient(cfg.Tenant.ManagementHost, authorization, clientOptions...)
	if err := apiClient.Ping(ctx); err != nil {
		return fmt.Errorf("API first check failed: %w", err)
	}

	materializer := materialize.New(materialize.Options{
		OutputDir:     outputDir,
		Extract:       cfg.Packages.ZipExtraction.On(),
		StripComments: cfg.Packages.PropCommentRemoval.On(),
	})
	if err := materializer.Prepare(); err != nil {
		return err
	}
	if repo, err := vcs.Discover(outputDir); err == nil {
		logger.Info().Str("repository", repo.Root).Str("branch", repo.Branch).Str("remote", repo.URL).
			Msg("Output directory is inside a git checkout")
		pterm.Info.Printfln("Writing into git checkout %s (branch %q)", repo.Root, repo.Branch)
	}

	reporter := progress.NewConsoleReporter()
	syncSvc := cpi.NewSyncService(apiClient, materializer, cpi.Options{
		Rules:               cfg.Packages.FilterRules,
		Workers:             cfg.Packages.DownloadWorkerCount,
		IgnoreErrorDownload: cfg.Packages.IgnoreErrorDownload,
	}, reporter)
	defer reporter.End()

	if err := syncSvc.Run(ctx); err != nil {
		reporter.Error("Sync failed")
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}
