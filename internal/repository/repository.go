package repository

import (
	"context"
	"fmt"

	"github.com/erp-bulk-import-api/internal/database"
	"github.com/erp-bulk-import-api/internal/models"
	"github.com/pkg/errors"
)

// ErrDuplicate is matched by every uniqueness conflict raised on insert
var ErrDuplicate = errors.New("duplicate key")

// DuplicateError reports a uniqueness conflict on a module table
type DuplicateError struct {
	Table  string
	Detail string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s: %s", e.Table, e.Detail)
}

// Is lets errors.Is(err, ErrDuplicate) match
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// RecordRepository is the persistence gateway for normalized module records.
// Create stores one record and returns its id; upsert tables return the id of
// the row that was updated.
type RecordRepository interface {
	Create(ctx context.Context, module models.Module, rec models.NormalizedRecord) (string, error)
	Count(ctx context.Context, module models.Module) (int, error)
}

// ImportRunRepository defines the interface for import history operations
type ImportRunRepository interface {
	Create(ctx context.Context, run *models.ImportRun) error
	Update(ctx context.Context, run *models.ImportRun) error
	GetByID(ctx context.Context, id string) (*models.ImportRun, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error)
	List(ctx context.Context, limit int) ([]*models.ImportRun, error)
	GetPendingRuns(ctx context.Context) ([]*models.ImportRun, error)
	MarkRunAsProcessing(ctx context.Context, runID string) (bool, error)
	AddFailures(ctx context.Context, runID string, failures []models.RowFailure) error
	GetFailures(ctx context.Context, runID string, limit int) ([]models.RowFailure, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Record RecordRepository
	Run    ImportRunRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Record: NewRecordRepo(db),
		Run:    NewImportRunRepo(db),
	}
}
