package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/erp-bulk-import-api/internal/models"
	"github.com/erp-bulk-import-api/internal/service"
)

// MockImportService is a mock implementation of ImportService
type MockImportService struct {
	mu            sync.Mutex
	ImportFunc    func(ctx context.Context, req *models.ImportRequest, data []byte) (*models.ImportReport, *models.ImportRun, error)
	CreateRunFunc func(ctx context.Context, req *models.ImportRequest, data []byte) (*models.ImportRun, error)
	ProcessFunc   func(ctx context.Context, run *models.ImportRun) error
	Imported      []*models.ImportRequest
	CreatedRuns   []*models.ImportRun
	ProcessedRuns []*models.ImportRun
	Counts        map[models.Module]int
}

// Verify interface compliance
var _ service.ImportService = (*MockImportService)(nil)

func NewMockImportService() *MockImportService {
	return &MockImportService{
		Imported:      make([]*models.ImportRequest, 0),
		CreatedRuns:   make([]*models.ImportRun, 0),
		ProcessedRuns: make([]*models.ImportRun, 0),
		Counts:        make(map[models.Module]int),
	}
}

func (m *MockImportService) Import(ctx context.Context, req *models.ImportRequest, data []byte) (*models.ImportReport, *models.ImportRun, error) {
	m.mu.Lock()
	m.Imported = append(m.Imported, req)
	m.mu.Unlock()
	if m.ImportFunc != nil {
		return m.ImportFunc(ctx, req, data)
	}
	report := models.NewImportReport(req.Module, req.FileName, nil)
	report.DryRun = req.DryRun
	return report, nil, nil
}

func (m *MockImportService) CreateImportRun(ctx context.Context, req *models.ImportRequest, data []byte) (*models.ImportRun, error) {
	if m.CreateRunFunc != nil {
		return m.CreateRunFunc(ctx, req, data)
	}
	run := &models.ImportRun{
		ID:             "test-run-id",
		Module:         req.Module,
		FileName:       req.FileName,
		Status:         models.RunStatusPending,
		IdempotencyKey: req.IdempotencyKey,
	}
	m.mu.Lock()
	m.CreatedRuns = append(m.CreatedRuns, run)
	m.mu.Unlock()
	return run, nil
}

func (m *MockImportService) ProcessRun(ctx context.Context, run *models.ImportRun) error {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, run)
	}
	m.mu.Lock()
	m.ProcessedRuns = append(m.ProcessedRuns, run)
	m.mu.Unlock()
	run.Status = models.RunStatusCompleted
	return nil
}

func (m *MockImportService) GetCount(ctx context.Context, module models.Module) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Counts[module], nil
}

// MockHistoryService is a mock implementation of HistoryService
type MockHistoryService struct {
	Runs          map[string]*models.RunResponse
	Failures      map[string][]models.RowFailure
	ImportService service.ImportService
}

// Verify interface compliance
var _ service.HistoryService = (*MockHistoryService)(nil)

func NewMockHistoryService() *MockHistoryService {
	return &MockHistoryService{
		Runs:     make(map[string]*models.RunResponse),
		Failures: make(map[string][]models.RowFailure),
	}
}

func (m *MockHistoryService) StartProcessor(ctx context.Context) {}

func (m *MockHistoryService) StopProcessor() {}

func (m *MockHistoryService) GetRun(ctx context.Context, id string) (*models.RunResponse, error) {
	return m.Runs[id], nil
}

func (m *MockHistoryService) GetRunByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error) {
	for _, run := range m.Runs {
		if run.IdempotencyKey == key {
			r := run.ImportRun
			return &r, nil
		}
	}
	return nil, nil
}

func (m *MockHistoryService) ListRuns(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	runs := make([]*models.ImportRun, 0, len(m.Runs))
	for _, run := range m.Runs {
		r := run.ImportRun
		runs = append(runs, &r)
		if limit > 0 && len(runs) == limit {
			break
		}
	}
	return runs, nil
}

func (m *MockHistoryService) GetRunFailures(ctx context.Context, id string) ([]models.RowFailure, error) {
	return m.Failures[id], nil
}

func (m *MockHistoryService) GetRunReport(ctx context.Context, run *models.ImportRun) (*models.ImportReport, error) {
	return run.Report(m.Failures[run.ID]), nil
}

func (m *MockHistoryService) SetImportService(importService service.ImportService) {
	m.ImportService = importService
}

// MockTemplateService is a mock implementation of TemplateService
type MockTemplateService struct {
	Modules   []models.ModuleInfo
	WriteFunc func(w io.Writer, module models.Module, format string) error
}

// Verify interface compliance
var _ service.TemplateService = (*MockTemplateService)(nil)

func NewMockTemplateService() *MockTemplateService {
	return &MockTemplateService{}
}

func (m *MockTemplateService) Catalogue() []models.ModuleInfo {
	return m.Modules
}

func (m *MockTemplateService) WriteTemplate(w io.Writer, module models.Module, format string) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(w, module, format)
	}
	_, err := io.WriteString(w, "header\n")
	return err
}
