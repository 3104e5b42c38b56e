package pipeline

import (
	"time"

	"github.com/erp-bulk-import-api/internal/decoder"
	"github.com/erp-bulk-import-api/internal/models"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Observer receives batch events. Observers must not block and cannot
// change the outcome of a batch.
type Observer interface {
	BatchStarted(module models.Module, fileName string)
	RowCompleted(module models.Module, outcome models.RowOutcome)
	BatchCompleted(report *models.ImportReport, elapsed time.Duration)
	BatchAborted(module models.Module, fileName string, err error)
}

// LogObserver writes batch events to a zerolog logger
type LogObserver struct {
	log zerolog.Logger
}

// NewLogObserver creates a log observer
func NewLogObserver(log zerolog.Logger) *LogObserver {
	return &LogObserver{log: log.With().Str("component", "pipeline").Logger()}
}

func (l *LogObserver) BatchStarted(module models.Module, fileName string) {
	l.log.Info().
		Str("module", module.String()).
		Str("file", fileName).
		Msg("Import started")
}

func (l *LogObserver) RowCompleted(module models.Module, outcome models.RowOutcome) {
	if !outcome.Failed() {
		return
	}
	l.log.Debug().
		Str("module", module.String()).
		Int("row", outcome.Row).
		Str("kind", string(outcome.Kind)).
		Strs("reasons", outcome.Reasons).
		Msg("Row rejected")
}

func (l *LogObserver) BatchCompleted(report *models.ImportReport, elapsed time.Duration) {
	l.log.Info().
		Str("module", report.Module.String()).
		Str("file", report.FileName).
		Bool("dry_run", report.DryRun).
		Int("total", report.TotalRows).
		Int("success", report.SuccessCount).
		Int("failed", report.FailureCount).
		Dur("duration", elapsed).
		Msg("Import completed")
}

func (l *LogObserver) BatchAborted(module models.Module, fileName string, err error) {
	event := l.log.Warn().
		Str("module", module.String()).
		Str("file", fileName).
		Err(err)
	var decodeErr *decoder.Error
	if errors.As(err, &decodeErr) {
		event = event.Str("kind", decodeErr.KindName())
	}
	event.Msg("Import aborted")
}
