package models

import (
	"time"
)

// RunStatus represents the status of an import run
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusAborted    RunStatus = "aborted"
)

// ImportRun is the history entry recorded for one submitted file
type ImportRun struct {
	ID             string     `json:"run_id" db:"id"`
	Module         Module     `json:"module" db:"module"`
	FileName       string     `json:"file_name" db:"file_name"`
	Status         RunStatus  `json:"status" db:"status"`
	DryRun         bool       `json:"dry_run" db:"dry_run"`
	IdempotencyKey string     `json:"idempotency_key,omitempty" db:"idempotency_key"`
	TotalRows      int        `json:"total_rows" db:"total_rows"`
	SuccessCount   int        `json:"success_count" db:"success_count"`
	FailureCount   int        `json:"failure_count" db:"failure_count"`
	DurationMs     int64      `json:"duration_ms,omitempty" db:"duration_ms"`
	RowsPerSec     float64    `json:"rows_per_sec,omitempty" db:"rows_per_sec"`
	ErrorMessage   string     `json:"error,omitempty" db:"error_message"`
	ErrorKind      string     `json:"error_kind,omitempty" db:"error_kind"`
	FilePath       string     `json:"-" db:"file_path"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// ApplyReport copies the aggregate counts of a finished batch onto the run
func (r *ImportRun) ApplyReport(report *ImportReport) {
	r.TotalRows = report.TotalRows
	r.SuccessCount = report.SuccessCount
	r.FailureCount = report.FailureCount
}

// Report rebuilds the import report of a completed run from its stored failures
func (r *ImportRun) Report(failures []RowFailure) *ImportReport {
	if failures == nil {
		failures = make([]RowFailure, 0)
	}
	return &ImportReport{
		Module:       r.Module,
		FileName:     r.FileName,
		DryRun:       r.DryRun,
		TotalRows:    r.TotalRows,
		SuccessCount: r.SuccessCount,
		FailureCount: r.FailureCount,
		Failures:     failures,
	}
}

// RunResponse is the API response for a single import run
type RunResponse struct {
	ImportRun
	Failures   []RowFailure `json:"failures,omitempty"`
	FailureURL string       `json:"failures_url,omitempty"`
}

// ImportRequest describes one submitted import
type ImportRequest struct {
	Module         Module `json:"module" form:"module"`
	FileName       string `json:"file_name"`
	DryRun         bool   `json:"dry_run" form:"dry_run"`
	IdempotencyKey string `json:"-"` // From header
}
