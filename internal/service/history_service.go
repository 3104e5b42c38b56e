package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/erp-bulk-import-api/internal/config"
	"github.com/erp-bulk-import-api/internal/models"
	"github.com/erp-bulk-import-api/internal/repository"
	"github.com/rs/zerolog"
)

// failurePreviewLimit caps the failures embedded in a run response
const failurePreviewLimit = 100

// historyService is the concrete implementation of HistoryService
type historyService struct {
	runRepo       repository.ImportRunRepository
	importService ImportService
	interval      time.Duration
	log           zerolog.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	running       bool
	mu            sync.Mutex
	// Semaphore: buffered channel limiting concurrent runs
	sem chan struct{}
}

// newHistoryService creates a new HistoryService with a worker pool sized for I/O-bound work
func newHistoryService(runRepo repository.ImportRunRepository, cfg *config.Config, log zerolog.Logger) *historyService {
	maxWorkers := cfg.Import.MaxWorkers
	if maxWorkers <= 0 {
		// Rows are persisted one at a time, so runs mostly wait on the database
		maxWorkers = runtime.NumCPU() * 4
		if maxWorkers < 4 {
			maxWorkers = 4
		}
		if maxWorkers > 32 {
			maxWorkers = 32 // Cap to avoid excessive connections
		}
	}

	log.Info().Int("max_workers", maxWorkers).Msg("Initializing import run worker pool")

	return &historyService{
		runRepo:  runRepo,
		interval: cfg.Import.PollInterval,
		log:      log.With().Str("service", "history").Logger(),
		sem:      make(chan struct{}, maxWorkers),
	}
}

// SetImportService sets the import service for run processing
func (s *historyService) SetImportService(importService ImportService) {
	s.importService = importService
}

// StartProcessor polls for pending runs until StopProcessor is called
func (s *historyService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.log.Info().Dur("interval", s.interval).Msg("Run processor started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("Run processor stopping")
			return
		case <-ticker.C:
			s.processPendingRuns()
		}
	}
}

// StopProcessor stops the processor and waits for in-flight runs
func (s *historyService) StopProcessor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Run processor stopped")
}

// processPendingRuns hands every pending run to a worker
func (s *historyService) processPendingRuns() {
	runs, err := s.runRepo.GetPendingRuns(s.ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get pending runs")
		return
	}

	for _, run := range runs {
		// Blocks while all workers are busy
		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			return
		}

		marked, err := s.runRepo.MarkRunAsProcessing(s.ctx, run.ID)
		if err != nil || !marked {
			<-s.sem
			continue // Another instance already picked it up
		}

		s.wg.Add(1)
		go func(r *models.ImportRun) {
			defer s.wg.Done()
			defer func() { <-s.sem }()

			defer func() {
				if p := recover(); p != nil {
					s.log.Error().
						Interface("panic", p).
						Str("run_id", r.ID).
						Msg("Run processing panicked - recovered")
					r.Status = models.RunStatusAborted
					r.ErrorMessage = fmt.Sprintf("internal error: %v", p)
					s.runRepo.Update(context.WithoutCancel(s.ctx), r)
				}
			}()
			s.processRun(r)
		}(run)
	}
}

// processRun executes a single run. A batch that has started is not
// interrupted by shutdown; StopProcessor waits for it.
func (s *historyService) processRun(run *models.ImportRun) {
	select {
	case <-s.ctx.Done():
		s.log.Warn().Str("run_id", run.ID).Msg("Run skipped due to shutdown")
		return
	default:
	}

	if s.importService == nil {
		s.log.Error().Str("run_id", run.ID).Msg("No import service configured")
		return
	}
	if err := s.importService.ProcessRun(s.ctx, run); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Import run aborted")
	}
}

// GetRun retrieves a run with its first failures
func (s *historyService) GetRun(ctx context.Context, id string) (*models.RunResponse, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, nil
	}

	failures, err := s.runRepo.GetFailures(ctx, id, failurePreviewLimit)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", id).Msg("Failed to get run failures")
	}

	response := &models.RunResponse{
		ImportRun: *run,
		Failures:  failures,
	}
	if run.FailureCount > 0 {
		response.FailureURL = "/v1/imports/runs/" + run.ID + "/failures"
	}

	return response, nil
}

// GetRunByIdempotencyKey retrieves a run by idempotency key
func (s *historyService) GetRunByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error) {
	return s.runRepo.GetByIdempotencyKey(ctx, key)
}

// ListRuns returns the most recent runs
func (s *historyService) ListRuns(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	return s.runRepo.List(ctx, limit)
}

// GetRunFailures retrieves all failures of a run
func (s *historyService) GetRunFailures(ctx context.Context, id string) ([]models.RowFailure, error) {
	return s.runRepo.GetFailures(ctx, id, 0)
}

// GetRunReport rebuilds the import report of a completed run
func (s *historyService) GetRunReport(ctx context.Context, run *models.ImportRun) (*models.ImportReport, error) {
	if run.Status != models.RunStatusCompleted {
		return nil, fmt.Errorf("run %s is %s, not completed", run.ID, run.Status)
	}
	failures, err := s.runRepo.GetFailures(ctx, run.ID, 0)
	if err != nil {
		return nil, err
	}
	return run.Report(failures), nil
}
