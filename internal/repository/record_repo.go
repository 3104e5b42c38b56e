package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/erp-bulk-import-api/internal/database"
	"github.com/erp-bulk-import-api/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// recordRepo is the concrete implementation of RecordRepository
type recordRepo struct {
	db *database.DB
}

// NewRecordRepo creates a new record repository
func NewRecordRepo(db *database.DB) RecordRepository {
	return &recordRepo{db: db}
}

// Create inserts one record, or updates it by key for upsert tables
func (r *recordRepo) Create(ctx context.Context, module models.Module, rec models.NormalizedRecord) (string, error) {
	table, err := Table(module)
	if err != nil {
		return "", err
	}

	query, args := table.insertStatement(uuid.NewString(), rec, time.Now().UTC())

	var id string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", classify(table, err)
	}
	return id, nil
}

// Count returns the number of rows stored for a module
func (r *recordRepo) Count(ctx context.Context, module models.Module) (int, error) {
	table, err := Table(module)
	if err != nil {
		return 0, err
	}
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(table.Name))
	err = r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

// classify turns unique violations into *DuplicateError
func classify(table TableSpec, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		detail := pqErr.Detail
		if detail == "" {
			detail = pqErr.Message
		}
		return &DuplicateError{Table: table.Name, Detail: detail}
	}
	return errors.Wrapf(err, "insert into %s", table.Name)
}
