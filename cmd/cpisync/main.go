package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harness/cpi-sync/cmd/sync"
	"github.com/harness/cpi-sync/config"
	"github.com/harness/cpi-sync/internal/terminal"
	"github.com/harness/cpi-sync/module/cpi/types"
	"github.com/harness/cpi-sync/util/templates"
)

// version is set via ldflags during build
var version = "dev"

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cpisync",
		Short:         "Synchronize integration packages to a local directory",
		SilenceUsage:  true,
		SilenceErrors: true, //prevent duplicate printing of errors
		Long: templates.LongDesc(`
			cpisync downloads integration packages of a Cloud Integration tenant
			into a local directory, e.g. to keep them under version control.

			Packages are selected with ordered include/exclude filter rules and
			every artifact can be stored as the downloaded zip or extracted.`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			termInfo := terminal.Detect(config.Global.NoColor, false)
			if !termInfo.ColorEnabled {
				pterm.DisableColor()
			}
			setupLogging(config.Global.Verbose, !termInfo.ColorEnabled)
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&config.Global.Verbose, "verbose", "v", false, "Enable verbose logging to console")
	rootCmd.PersistentFlags().BoolVar(&config.Global.NoColor, "no-color", false,
		"Disable colour output (also respects NO_COLOR env)")

	rootCmd.AddCommand(sync.GetSyncCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

// setupLogging writes structured logs to stderr when verbose. Otherwise only
// errors reach the console, through the pterm error hook.
func setupLogging(verbose, noColor bool) {
	if verbose {
		logWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			NoColor:    noColor,
		}
		log.Logger = log.Output(logWriter).Level(zerolog.DebugLevel)
		return
	}
	log.Logger = zerolog.New(io.Discard).Level(zerolog.ErrorLevel).Hook(types.ErrorHook{})
}

// versionCmd returns the version command
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of cpisync",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cpisync version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Built with %s\n", runtime.Version())
		},
	}
}
