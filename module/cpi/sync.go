package cpi

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/harness/cpi-sync/module/cpi/engine"
	"github.com/harness/cpi-sync/module/cpi/selection"
	"github.com/harness/cpi-sync/module/cpi/types"
	"github.com/harness/cpi-sync/util/common"
	"github.com/harness/cpi-sync/util/common/errors"
	"github.com/harness/cpi-sync/util/common/printer"
	"github.com/harness/cpi-sync/util/common/progress"
)

// Catalog is the remote package catalog
type Catalog interface {
	ListPackages(ctx context.Context) ([]types.CatalogEntry, error)
	ListArtifacts(ctx context.Context, packageID string, artifactType types.ArtifactType) ([]types.ArtifactDescriptor, error)
	DownloadArtifact(ctx context.Context, artifactType types.ArtifactType, artifactID string) ([]byte, error)
}

// Materializer owns the local package directories
type Materializer interface {
	Reset(packageID string) (string, error)
	Materialize(packageID, artifactID string, payload []byte) (string, error)
}

// Options controls a sync run
type Options struct {
	Rules               []types.FilterRule
	Workers             int
	IgnoreErrorDownload bool
	// Summary receives the result table, os.Stdout when nil
	Summary io.Writer
}

// SyncService handles the sync process
type SyncService struct {
	catalog      Catalog
	materializer Materializer
	opts         Options
	reporter     progress.Reporter
	stats        *types.TransferStats
}

// NewSyncService creates a new sync service
func NewSyncService(catalog Catalog, materializer Materializer, opts Options, reporter progress.Reporter) *SyncService {
	if opts.Workers <= 0 {
		opts.Workers = types.DefaultWorkerCount
	}
	if reporter == nil {
		reporter = progress.NewNopReporter()
	}
	return &SyncService{
		catalog:      catalog,
		materializer: materializer,
		opts:         opts,
		reporter:     reporter,
		stats:        &types.TransferStats{},
	}
}

// Stats returns the per artifact outcomes of the last run
func (s *SyncService) Stats() []types.FileStat {
	return s.stats.Sorted()
}

type downloadTask struct {
	packageID string
	artifact  types.ArtifactDescriptor
}

// Run selects the packages, resets and lists them, then downloads and
// materializes every artifact. The first unrecoverable error aborts the run.
func (s *SyncService) Run(ctx context.Context) error {
	startTime := time.Now()
	traceID := uuid.New().String()
	ctx = engine.WithTraceID(ctx, traceID)

	logger := log.With().
		Str("trace_id", traceID).
		Int("workers", s.opts.Workers).
		Bool("ignore_error_download", s.opts.IgnoreErrorDownload).
		Logger()
	logger.Info().Msg("Starting sync process")

	s.reporter.Start("Reading package catalog")
	catalog, err := s.catalog.ListPackages(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list packages")
		return fmt.Errorf("failed to list packages: %w", err)
	}

	workingSet, err := selection.Select(catalog, s.opts.Rules)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to apply filter rules")
		return err
	}
	logger.Info().Int("catalog", len(catalog)).Strs("packages", workingSet).Msg("Selected packages")
	s.reporter.Step(fmt.Sprintf("%d of %d packages selected", len(workingSet), len(catalog)))

	tasks, err := s.processPackages(ctx, workingSet, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Package processing failed")
		return err
	}

	err = s.downloadArtifacts(ctx, tasks, logger)
	s.printSummary()
	if err != nil {
		logger.Error().Err(err).Msg("Artifact download failed")
		return err
	}

	logger.Info().
		Int("packages", len(workingSet)).
		Int("artifacts", len(tasks)).
		Int("skipped", s.stats.Count(types.StatusSkip)).
		Dur("duration", time.Since(startTime)).
		Msg("Sync process completed")
	s.reporter.Success(fmt.Sprintf("Synchronized %d packages (%d artifacts) in %s",
		len(workingSet), len(tasks), time.Since(startTime).Round(time.Millisecond)))
	return nil
}

// processPackages is the package tier: every package directory is reset
// and its artifacts are listed. The returned tasks are sorted by package,
// type and artifact id.
func (s *SyncService) processPackages(ctx context.Context, workingSet types.WorkingSet, logger zerolog.Logger) (
	[]downloadTask, error,
) {
	pool := engine.NewPool[[]downloadTask](ctx, "packages", s.opts.Workers)
	for _, packageID := range workingSet {
		packageID := packageID // per-iteration copy: module targets go 1.21 loop semantics
		err := pool.Submit(packageID, func(ctx context.Context) ([]downloadTask, error) {
			return s.processPackage(ctx, packageID, logger)
		})
		if err != nil {
			return nil, err
		}
	}

	results, err := pool.Wait()
	if err != nil {
		return nil, err
	}

	var tasks []downloadTask
	for _, r := range results {
		tasks = append(tasks, r...)
	}
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.packageID != b.packageID {
			return a.packageID < b.packageID
		}
		if a.artifact.Type != b.artifact.Type {
			return a.artifact.Type < b.artifact.Type
		}
		return a.artifact.ID < b.artifact.ID
	})
	return tasks, nil
}

func (s *SyncService) processPackage(ctx context.Context, packageID string, logger zerolog.Logger) (
	[]downloadTask, error,
) {
	pkgLogger := logger.With().Str("package", packageID).Logger()

	dir, err := s.materializer.Reset(packageID)
	if err != nil {
		return nil, err
	}
	pkgLogger.Debug().Str("dir", dir).Msg("Reset package directory")

	var tasks []downloadTask
	for _, artifactType := range types.ArtifactTypes {
		artifacts, err := s.catalog.ListArtifacts(ctx, packageID, artifactType)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s of package %s: %w", artifactType, packageID, err)
		}
		for _, artifact := range artifacts {
			if artifact.Type == "" {
				artifact.Type = artifactType
			}
			tasks = append(tasks, downloadTask{packageID: packageID, artifact: artifact})
		}
	}

	pkgLogger.Info().Int("artifacts", len(tasks)).Msg("Listed package artifacts")
	s.reporter.Step(fmt.Sprintf("Package %s: %d artifacts", packageID, len(tasks)))
	return tasks, nil
}

// downloadArtifacts is the artifact tier
func (s *SyncService) downloadArtifacts(ctx context.Context, tasks []downloadTask, logger zerolog.Logger) error {
	pool := engine.NewPool[struct{}](ctx, "artifacts", s.opts.Workers)
	for _, task := range tasks {
		task := task // per-iteration copy: module targets go 1.21 loop semantics
		err := pool.Submit(task.packageID+"/"+task.artifact.ID, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.downloadArtifact(ctx, task, logger)
		})
		if err != nil {
			return err
		}
	}
	_, err := pool.Wait()
	return err
}

func (s *SyncService) downloadArtifact(ctx context.Context, task downloadTask, logger zerolog.Logger) error {
	artifactLogger := logger.With().
		Str("package", task.packageID).
		Str("artifact", task.artifact.ID).
		Str("artifact_type", string(task.artifact.Type)).
		Logger()
	stat := types.FileStat{
		Package:  task.packageID,
		Artifact: task.artifact.ID,
		Type:     task.artifact.Type,
	}

	payload, err := s.catalog.DownloadArtifact(ctx, task.artifact.Type, task.artifact.ID)
	if err != nil {
		stat.Error = err.Error()
		var apiErr *errors.RemoteAPIError
		isAPIErr := errors.As(err, &apiErr)

		// only non-success responses can be skipped; transport failures stay fatal
		if s.opts.IgnoreErrorDownload && isAPIErr && ctx.Err() == nil {
			artifactLogger.Warn().Err(err).
				Str("url", apiErr.URL).Int("status", apiErr.StatusCode).Str("body", apiErr.Body).
				Msg("Artifact download failed, skipping")
			stat.Status = types.StatusSkip
			s.stats.Add(stat)
			s.reporter.Warn(fmt.Sprintf("Skipped %s/%s: %v", task.packageID, task.artifact.ID, err))
			return nil
		}

		// error level reaches the console through the error hook, so the
		// message carries the diagnostics as well
		msg := fmt.Sprintf("Artifact download failed for %s/%s", task.packageID, task.artifact.ID)
		event := artifactLogger.Error().Err(err)
		if isAPIErr {
			event = event.Str("url", apiErr.URL).Int("status", apiErr.StatusCode).Str("body", apiErr.Body)
			msg = fmt.Sprintf("%s: %s returned status %d: %s", msg, apiErr.URL, apiErr.StatusCode, apiErr.Body)
		}
		event.Msg(msg)

		stat.Status = types.StatusFail
		s.stats.Add(stat)
		return errors.NewArtifactDownloadError(task.packageID, task.artifact.ID, err)
	}

	stat.Size = common.PayloadSize(payload)
	path, err := s.materializer.Materialize(task.packageID, task.artifact.ID, payload)
	if err != nil {
		stat.Status = types.StatusFail
		stat.Error = err.Error()
		s.stats.Add(stat)
		return err
	}

	stat.Status = types.StatusSuccess
	stat.Path = path
	s.stats.Add(stat)
	artifactLogger.Debug().Str("path", path).Str("size", stat.Size).Msg("Artifact materialized")
	return nil
}

func (s *SyncService) printSummary() {
	stats := s.stats.Sorted()
	if len(stats) == 0 {
		return
	}
	out := s.opts.Summary
	if out == nil {
		out = os.Stdout
	}
	err := printer.PrintTableWithOptions(stats, printer.TableOptions{
		ColumnMapping: printer.ColumnMapping{
			{"Package", "Package"},
			{"Artifact", "Artifact"},
			{"Type", "Type"},
			{"Size", "Size"},
			{"Status", "Status"},
			{"Path", "Path"},
			{"Error", "Error"},
		},
		ShowTotal: true,
		Writer:    out,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to print summary")
	}
}
