package models

// OutcomeKind classifies the result of processing a single row
type OutcomeKind string

const (
	OutcomeSuccess            OutcomeKind = "success"
	OutcomeValidationFailure  OutcomeKind = "validation_failure"
	OutcomePersistenceFailure OutcomeKind = "persistence_failure"
)

// RowOutcome is the per-row result tracked through the batch
type RowOutcome struct {
	Row         int         `json:"row"`
	Kind        OutcomeKind `json:"kind"`
	PersistedID string      `json:"persisted_id,omitempty"`
	Reasons     []string    `json:"reasons,omitempty"`
}

// Failed reports whether the outcome is any kind of failure
func (o RowOutcome) Failed() bool {
	return o.Kind != OutcomeSuccess
}

// RowFailure is one failing row as surfaced in the import report
type RowFailure struct {
	Row     int         `json:"row"`
	Kind    OutcomeKind `json:"kind"`
	Reasons []string    `json:"reasons"`
}

// ImportReport is the aggregate result returned for one submitted file
type ImportReport struct {
	Module       Module       `json:"module"`
	FileName     string       `json:"fileName,omitempty"`
	DryRun       bool         `json:"dryRun,omitempty"`
	TotalRows    int          `json:"totalRows"`
	SuccessCount int          `json:"successCount"`
	FailureCount int          `json:"failureCount"`
	Failures     []RowFailure `json:"failures"`
}

// NewImportReport aggregates row outcomes, in row order, into a report
func NewImportReport(module Module, fileName string, outcomes []RowOutcome) *ImportReport {
	report := &ImportReport{
		Module:    module,
		FileName:  fileName,
		TotalRows: len(outcomes),
		Failures:  make([]RowFailure, 0),
	}
	for _, o := range outcomes {
		if !o.Failed() {
			report.SuccessCount++
			continue
		}
		report.FailureCount++
		report.Failures = append(report.Failures, RowFailure{
			Row:     o.Row,
			Kind:    o.Kind,
			Reasons: append([]string(nil), o.Reasons...),
		})
	}
	return report
}
