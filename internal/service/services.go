package service

import (
	"context"
	"io"

	"github.com/erp-bulk-import-api/internal/config"
	"github.com/erp-bulk-import-api/internal/metrics"
	"github.com/erp-bulk-import-api/internal/models"
	"github.com/erp-bulk-import-api/internal/pipeline"
	"github.com/erp-bulk-import-api/internal/repository"
	"github.com/erp-bulk-import-api/internal/schema"
	"github.com/erp-bulk-import-api/internal/validation"
	"github.com/rs/zerolog"
)

// ImportService defines the interface for import operations
type ImportService interface {
	// Import runs a file synchronously. The run is nil when history is off.
	Import(ctx context.Context, req *models.ImportRequest, data []byte) (*models.ImportReport, *models.ImportRun, error)
	CreateImportRun(ctx context.Context, req *models.ImportRequest, data []byte) (*models.ImportRun, error)
	ProcessRun(ctx context.Context, run *models.ImportRun) error
	// GetCount returns the number of stored records of a module
	GetCount(ctx context.Context, module models.Module) (int, error)
}

// HistoryService defines the interface for import run management
type HistoryService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	GetRun(ctx context.Context, id string) (*models.RunResponse, error)
	GetRunByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error)
	ListRuns(ctx context.Context, limit int) ([]*models.ImportRun, error)
	GetRunFailures(ctx context.Context, id string) ([]models.RowFailure, error)
	// GetRunReport rebuilds the import report of a completed run
	GetRunReport(ctx context.Context, run *models.ImportRun) (*models.ImportReport, error)
	SetImportService(importService ImportService)
}

// TemplateService describes the importable modules to upload clients
type TemplateService interface {
	Catalogue() []models.ModuleInfo
	WriteTemplate(w io.Writer, module models.Module, format string) error
}

// Services holds all service interfaces
type Services struct {
	Import   ImportService
	History  HistoryService
	Template TemplateService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *Services {
	registry := schema.Default()
	processor := pipeline.NewProcessor(registry, repos.Record, validation.NewValidator(),
		pipeline.WithObserver(pipeline.NewLogObserver(log)),
		pipeline.WithObserver(metrics.NewObserver()),
	)

	historySvc := newHistoryService(repos.Run, cfg, log)
	importSvc := newImportService(repos, processor, registry, cfg, log)
	templateSvc := newTemplateService(registry, log)

	// Wire up run processor to import service
	historySvc.SetImportService(importSvc)

	return &Services{
		Import:   importSvc,
		History:  historySvc,
		Template: templateSvc,
	}
}
