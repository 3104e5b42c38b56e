package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/erp-bulk-import-api/internal/models"
	"github.com/erp-bulk-import-api/internal/repository"
)

// StoredRecord is one row held by MockRecordRepository
type StoredRecord struct {
	ID     string
	Record models.NormalizedRecord
}

// MockRecordRepository is an in-memory RecordRepository that honours the
// upsert and create-only rules of each module table
type MockRecordRepository struct {
	mu          sync.Mutex
	Tables      map[models.Module]map[string]*StoredRecord
	CreateFunc  func(ctx context.Context, module models.Module, rec models.NormalizedRecord) (string, error)
	InsertError error
	Calls       int
	nextID      int
}

var _ repository.RecordRepository = (*MockRecordRepository)(nil)

func NewMockRecordRepository() *MockRecordRepository {
	return &MockRecordRepository{
		Tables: make(map[models.Module]map[string]*StoredRecord),
	}
}

func (m *MockRecordRepository) Create(ctx context.Context, module models.Module, rec models.NormalizedRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, module, rec)
	}
	if m.InsertError != nil {
		return "", m.InsertError
	}

	table, err := repository.Table(module)
	if err != nil {
		return "", err
	}
	rows := m.Tables[module]
	if rows == nil {
		rows = make(map[string]*StoredRecord)
		m.Tables[module] = rows
	}

	key := repository.KeyOf(rec, table.Key)
	existing, found := rows[key]
	if found && !table.Upsert {
		return "", &repository.DuplicateError{Table: table.Name, Detail: repository.DuplicateDetail(rec, table.Key)}
	}

	for _, cols := range table.Unique {
		value := repository.KeyOf(rec, cols)
		for k, other := range rows {
			if k != key && repository.KeyOf(other.Record, cols) == value {
				return "", &repository.DuplicateError{Table: table.Name, Detail: repository.DuplicateDetail(rec, cols)}
			}
		}
	}

	if found {
		for field, v := range rec {
			existing.Record[field] = v
		}
		return existing.ID, nil
	}

	m.nextID++
	stored := &StoredRecord{ID: fmt.Sprintf("%s-%d", module, m.nextID), Record: make(models.NormalizedRecord, len(rec))}
	for field, v := range rec {
		stored.Record[field] = v
	}
	rows[key] = stored
	return stored.ID, nil
}

func (m *MockRecordRepository) Count(ctx context.Context, module models.Module) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Tables[module]), nil
}

// MockImportRunRepository is a mock implementation of ImportRunRepository
type MockImportRunRepository struct {
	mu              sync.Mutex
	Runs            map[string]*models.ImportRun
	IdempotencyRuns map[string]*models.ImportRun
	Failures        map[string][]models.RowFailure
	CreateError     error
	UpdateError     error
}

var _ repository.ImportRunRepository = (*MockImportRunRepository)(nil)

func NewMockImportRunRepository() *MockImportRunRepository {
	return &MockImportRunRepository{
		Runs:            make(map[string]*models.ImportRun),
		IdempotencyRuns: make(map[string]*models.ImportRun),
		Failures:        make(map[string][]models.RowFailure),
	}
}

func (m *MockImportRunRepository) Create(ctx context.Context, run *models.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	stored := *run
	m.Runs[run.ID] = &stored
	if run.IdempotencyKey != "" {
		m.IdempotencyRuns[run.IdempotencyKey] = &stored
	}
	return nil
}

func (m *MockImportRunRepository) Update(ctx context.Context, run *models.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	stored := *run
	m.Runs[run.ID] = &stored
	if run.IdempotencyKey != "" {
		m.IdempotencyRuns[run.IdempotencyKey] = &stored
	}
	return nil
}

func (m *MockImportRunRepository) GetByID(ctx context.Context, id string) (*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRun(m.Runs[id]), nil
}

func (m *MockImportRunRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRun(m.IdempotencyRuns[key]), nil
}

func (m *MockImportRunRepository) List(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := make([]*models.ImportRun, 0, len(m.Runs))
	for _, run := range m.Runs {
		runs = append(runs, copyRun(run))
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *MockImportRunRepository) GetPendingRuns(ctx context.Context) ([]*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*models.ImportRun
	for _, run := range m.Runs {
		if run.Status == models.RunStatusPending {
			pending = append(pending, copyRun(run))
		}
	}
	return pending, nil
}

func (m *MockImportRunRepository) MarkRunAsProcessing(ctx context.Context, runID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, exists := m.Runs[runID]
	if !exists || run.Status != models.RunStatusPending {
		return false, nil
	}
	run.Status = models.RunStatusProcessing
	return true, nil
}

func (m *MockImportRunRepository) AddFailures(ctx context.Context, runID string, failures []models.RowFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures[runID] = append(m.Failures[runID], failures...)
	return nil
}

func (m *MockImportRunRepository) GetFailures(ctx context.Context, runID string, limit int) ([]models.RowFailure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	failures := m.Failures[runID]
	if limit > 0 && len(failures) > limit {
		return failures[:limit], nil
	}
	return failures, nil
}

// StatusOf returns the stored status of a run
func (m *MockImportRunRepository) StatusOf(id string) models.RunStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.Runs[id]; ok {
		return run.Status
	}
	return ""
}

func copyRun(run *models.ImportRun) *models.ImportRun {
	if run == nil {
		return nil
	}
	c := *run
	return &c
}
