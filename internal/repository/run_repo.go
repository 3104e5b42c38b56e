package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/erp-bulk-import-api/internal/database"
	"github.com/erp-bulk-import-api/internal/models"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const runColumns = `id, module, file_name, status, dry_run, idempotency_key, total_rows,
	success_count, failure_count, duration_ms, rows_per_sec, error_message, error_kind,
	file_path, created_at, started_at, completed_at`

// importRunRepo is the concrete implementation of ImportRunRepository
type importRunRepo struct {
	db *database.DB
}

// NewImportRunRepo creates a new import run repository
func NewImportRunRepo(db *database.DB) ImportRunRepository {
	return &importRunRepo{db: db}
}

// Create inserts a new run
func (r *importRunRepo) Create(ctx context.Context, run *models.ImportRun) error {
	query := `
		INSERT INTO import_runs (id, module, file_name, status, dry_run, idempotency_key,
			total_rows, success_count, failure_count, file_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Module, run.FileName, run.Status, run.DryRun, nullString(run.IdempotencyKey),
		run.TotalRows, run.SuccessCount, run.FailureCount, nullString(run.FilePath), run.CreatedAt,
	)
	return err
}

// Update updates run status and counters
func (r *importRunRepo) Update(ctx context.Context, run *models.ImportRun) error {
	query := `
		UPDATE import_runs SET
			status = $1, total_rows = $2, success_count = $3, failure_count = $4,
			duration_ms = $5, rows_per_sec = $6, error_message = $7, error_kind = $8,
			started_at = $9, completed_at = $10
		WHERE id = $11
	`
	_, err := r.db.ExecContext(ctx, query,
		run.Status, run.TotalRows, run.SuccessCount, run.FailureCount,
		run.DurationMs, run.RowsPerSec, nullString(run.ErrorMessage), nullString(run.ErrorKind),
		run.StartedAt, run.CompletedAt, run.ID,
	)
	return err
}

// GetByID retrieves a run by ID
func (r *importRunRepo) GetByID(ctx context.Context, id string) (*models.ImportRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM import_runs WHERE id = $1`, id)
	return scanRun(row)
}

// GetByIdempotencyKey retrieves a run by idempotency key
func (r *importRunRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM import_runs WHERE idempotency_key = $1`, key)
	return scanRun(row)
}

// List returns the most recent runs first
func (r *importRunRepo) List(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM import_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.ImportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetPendingRuns retrieves all pending runs, oldest first.
// MarkRunAsProcessing decides which worker gets each one.
func (r *importRunRepo) GetPendingRuns(ctx context.Context) ([]*models.ImportRun, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM import_runs WHERE status = 'pending' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.ImportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MarkRunAsProcessing atomically marks a pending run as processing
func (r *importRunRepo) MarkRunAsProcessing(ctx context.Context, runID string) (bool, error) {
	query := `
		UPDATE import_runs SET status = 'processing', started_at = $1
		WHERE id = $2 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), runID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// AddFailures stores failing rows using the COPY protocol
func (r *importRunRepo) AddFailures(ctx context.Context, runID string, failures []models.RowFailure) error {
	if len(failures) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("import_failures",
		"run_id", "row_number", "kind", "reasons",
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range failures {
		if _, err := stmt.ExecContext(ctx, runID, f.Row, string(f.Kind), pq.Array(f.Reasons)); err != nil {
			return errors.Wrapf(err, "copy failure row %d", f.Row)
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	return tx.Commit()
}

// GetFailures retrieves failing rows of a run in row order; limit <= 0 means all
func (r *importRunRepo) GetFailures(ctx context.Context, runID string, limit int) ([]models.RowFailure, error) {
	query := `SELECT row_number, kind, reasons FROM import_failures WHERE run_id = $1 ORDER BY row_number`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", runID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, runID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []models.RowFailure
	for rows.Next() {
		var f models.RowFailure
		if err := rows.Scan(&f.Row, &f.Kind, pq.Array(&f.Reasons)); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}

	return failures, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.ImportRun, error) {
	var run models.ImportRun
	var idempotencyKey, errorMessage, errorKind, filePath sql.NullString
	var durationMs sql.NullInt64
	var rowsPerSec sql.NullFloat64
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&run.ID, &run.Module, &run.FileName, &run.Status, &run.DryRun, &idempotencyKey,
		&run.TotalRows, &run.SuccessCount, &run.FailureCount, &durationMs, &rowsPerSec,
		&errorMessage, &errorKind, &filePath, &run.CreatedAt, &startedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	run.IdempotencyKey = idempotencyKey.String
	run.ErrorMessage = errorMessage.String
	run.ErrorKind = errorKind.String
	run.FilePath = filePath.String
	run.DurationMs = durationMs.Int64
	run.RowsPerSec = rowsPerSec.Float64
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
