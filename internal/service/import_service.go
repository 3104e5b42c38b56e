package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/erp-bulk-import-api/internal/config"
	"github.com/erp-bulk-import-api/internal/decoder"
	"github.com/erp-bulk-import-api/internal/models"
	"github.com/erp-bulk-import-api/internal/pipeline"
	"github.com/erp-bulk-import-api/internal/repository"
	"github.com/erp-bulk-import-api/internal/schema"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Error kinds stored on aborted runs besides the decoder kinds
const (
	ErrorKindUnsupportedModule = "unsupported_module"
	ErrorKindInternal          = "internal"
)

// importService is the concrete implementation of ImportService
type importService struct {
	repos     *repository.Repositories
	processor *pipeline.Processor
	registry  *schema.Registry
	cfg       *config.Config
	log       zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, processor *pipeline.Processor, registry *schema.Registry, cfg *config.Config, log zerolog.Logger) *importService {
	return &importService{
		repos:     repos,
		processor: processor,
		registry:  registry,
		cfg:       cfg,
		log:       log.With().Str("service", "import").Logger(),
	}
}

// Import runs the pipeline over data and records the run in history
func (s *importService) Import(ctx context.Context, req *models.ImportRequest, data []byte) (*models.ImportReport, *models.ImportRun, error) {
	var run *models.ImportRun
	if s.cfg.Import.History || req.IdempotencyKey != "" {
		run = newRun(req, models.RunStatusProcessing)
		startedAt := run.CreatedAt
		run.StartedAt = &startedAt
		if err := s.repos.Run.Create(ctx, run); err != nil {
			// Without a stored run a retried request could import twice
			if req.IdempotencyKey != "" {
				return nil, nil, errors.Wrap(err, "record import run")
			}
			s.log.Error().Err(err).Msg("Failed to record import run")
			run = nil
		}
	}

	startTime := time.Now()
	report, err := s.processor.Run(ctx, pipeline.Request{
		Module:   req.Module,
		FileName: req.FileName,
		Data:     data,
		DryRun:   req.DryRun,
	})
	if run != nil {
		s.finishRun(ctx, run, report, err, startTime)
	}
	if err != nil {
		return nil, run, err
	}
	return report, run, nil
}

// CreateImportRun stores the upload and queues it for the background processor
func (s *importService) CreateImportRun(ctx context.Context, req *models.ImportRequest, data []byte) (*models.ImportRun, error) {
	// Reject what the processor would abort on before accepting the file
	if _, err := s.registry.Lookup(req.Module); err != nil {
		return nil, err
	}
	if _, err := decoder.FormatFromName(req.FileName); err != nil {
		return nil, err
	}

	run := newRun(req, models.RunStatusPending)

	if err := os.MkdirAll(s.cfg.Import.UploadDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create upload dir")
	}
	run.FilePath = filepath.Join(s.cfg.Import.UploadDir, run.ID+strings.ToLower(filepath.Ext(req.FileName)))
	if err := os.WriteFile(run.FilePath, data, 0o644); err != nil {
		return nil, errors.Wrap(err, "store upload")
	}

	if err := s.repos.Run.Create(ctx, run); err != nil {
		os.Remove(run.FilePath)
		return nil, errors.Wrap(err, "create import run")
	}

	s.log.Info().
		Str("run_id", run.ID).
		Str("module", run.Module.String()).
		Str("file", run.FileName).
		Msg("Import run queued")

	return run, nil
}

// ProcessRun executes a queued run from its stored upload
func (s *importService) ProcessRun(ctx context.Context, run *models.ImportRun) error {
	startTime := time.Now()
	if run.StartedAt == nil {
		run.StartedAt = &startTime
	}
	run.Status = models.RunStatusProcessing

	s.log.Info().
		Str("run_id", run.ID).
		Str("module", run.Module.String()).
		Msg("Starting import processing")

	data, err := os.ReadFile(run.FilePath)
	if err != nil {
		err = errors.Wrap(err, "read stored upload")
		s.finishRun(ctx, run, nil, err, startTime)
		return err
	}
	defer os.Remove(run.FilePath)

	report, err := s.processor.Run(ctx, pipeline.Request{
		Module:   run.Module,
		FileName: run.FileName,
		Data:     data,
		DryRun:   run.DryRun,
	})
	s.finishRun(ctx, run, report, err, startTime)
	return err
}

// GetCount returns the number of stored records of a module
func (s *importService) GetCount(ctx context.Context, module models.Module) (int, error) {
	return s.repos.Record.Count(ctx, module)
}

// finishRun stores the outcome of a run. History writes outlive the request.
func (s *importService) finishRun(ctx context.Context, run *models.ImportRun, report *models.ImportReport, runErr error, startTime time.Time) {
	ctx = context.WithoutCancel(ctx)

	duration := time.Since(startTime)
	run.DurationMs = duration.Milliseconds()
	completedAt := time.Now()
	run.CompletedAt = &completedAt

	if runErr != nil {
		run.Status = models.RunStatusAborted
		run.ErrorMessage = runErr.Error()
		run.ErrorKind = ErrorKindInternal
		if kind, ok := FatalKind(runErr); ok {
			run.ErrorKind = kind
		}
		s.log.Warn().Err(runErr).Str("run_id", run.ID).Msg("Import aborted")
	} else {
		run.Status = models.RunStatusCompleted
		run.ApplyReport(report)
		if run.TotalRows > 0 && duration.Seconds() > 0 {
			run.RowsPerSec = float64(run.TotalRows) / duration.Seconds()
		}
		if err := s.repos.Run.AddFailures(ctx, run.ID, report.Failures); err != nil {
			s.log.Error().Err(err).Str("run_id", run.ID).Int("count", len(report.Failures)).Msg("Failed to store failure rows")
		}
	}

	if err := s.repos.Run.Update(ctx, run); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to update import run")
	}
}

// FatalKind names the kind of an error that rejects the whole file. It reports
// false for anything else, which callers treat as an internal failure.
func FatalKind(err error) (string, bool) {
	var decodeErr *decoder.Error
	switch {
	case errors.As(err, &decodeErr):
		return decodeErr.KindName(), true
	case errors.Is(err, models.ErrUnsupportedModule):
		return ErrorKindUnsupportedModule, true
	}
	return "", false
}

func newRun(req *models.ImportRequest, status models.RunStatus) *models.ImportRun {
	return &models.ImportRun{
		ID:             uuid.New().String(),
		Module:         req.Module,
		FileName:       req.FileName,
		Status:         status,
		DryRun:         req.DryRun,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      time.Now(),
	}
}
