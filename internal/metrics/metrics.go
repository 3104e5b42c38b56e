// Package metrics exports import pipeline counters to Prometheus.
package metrics

import (
	"sync"
	"time"

	"github.com/erp-bulk-import-api/internal/decoder"
	"github.com/erp-bulk-import-api/internal/models"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	batchTotal   *prometheus.CounterVec
	rowsTotal    *prometheus.CounterVec
	abortedTotal *prometheus.CounterVec

	batchDuration *prometheus.HistogramVec
	inFlight      *prometheus.GaugeVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		batchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bulk_import",
			Name:      "batches_total",
			Help:      "Total number of completed import batches.",
		}, []string{"module", "dry_run"}),
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bulk_import",
			Name:      "rows_total",
			Help:      "Total number of processed rows by outcome.",
		}, []string{"module", "outcome"}),
		abortedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bulk_import",
			Name:      "aborted_total",
			Help:      "Total number of batches aborted before row processing.",
		}, []string{"module", "reason"}),
		batchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bulk_import",
			Name:      "batch_duration_seconds",
			Help:      "Duration of completed import batches.",
			Buckets: []float64{
				0.01, 0.05, 0.1,
				0.25, 0.5, 1,
				2.5, 5, 10,
				30, 60, 120,
			},
		}, []string{"module"}),
		inFlight: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bulk_import",
			Name:      "in_flight",
			Help:      "Current number of batches being processed.",
		}, []string{"module"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

// Observer records pipeline events as Prometheus metrics
type Observer struct {
	m *metrics
}

// NewObserver returns an observer backed by the process-wide collectors
func NewObserver() *Observer {
	return &Observer{m: getMetrics()}
}

func (o *Observer) BatchStarted(module models.Module, fileName string) {
	o.m.inFlight.WithLabelValues(module.String()).Inc()
}

func (o *Observer) RowCompleted(module models.Module, outcome models.RowOutcome) {
	o.m.rowsTotal.WithLabelValues(module.String(), string(outcome.Kind)).Inc()
}

func (o *Observer) BatchCompleted(report *models.ImportReport, elapsed time.Duration) {
	module := report.Module.String()
	o.m.inFlight.WithLabelValues(module).Dec()
	o.m.batchTotal.WithLabelValues(module, boolLabel(report.DryRun)).Inc()
	o.m.batchDuration.WithLabelValues(module).Observe(elapsed.Seconds())
}

func (o *Observer) BatchAborted(module models.Module, fileName string, err error) {
	o.m.inFlight.WithLabelValues(module.String()).Dec()
	o.m.abortedTotal.WithLabelValues(module.String(), abortReason(err)).Inc()
}

func abortReason(err error) string {
	var decodeErr *decoder.Error
	if errors.As(err, &decodeErr) {
		return decodeErr.KindName()
	}
	if errors.Is(err, models.ErrUnsupportedModule) {
		return "unsupported_module"
	}
	return "other"
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
