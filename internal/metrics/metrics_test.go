package metrics

import (
	"testing"
	"time"

	"github.com/erp-bulk-import-api/internal/decoder"
	"github.com/erp-bulk-import-api/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserver_CountsRowsAndBatches(t *testing.T) {
	o := NewObserver()
	m := getMetrics()
	module := models.ModuleMachines

	successBefore := testutil.ToFloat64(m.rowsTotal.WithLabelValues("machines", "success"))
	failedBefore := testutil.ToFloat64(m.rowsTotal.WithLabelValues("machines", "validation_failure"))
	batchesBefore := testutil.ToFloat64(m.batchTotal.WithLabelValues("machines", "false"))

	o.BatchStarted(module, "machines.csv")
	require.Equal(t, 1.0, testutil.ToFloat64(m.inFlight.WithLabelValues("machines")))

	o.RowCompleted(module, models.RowOutcome{Row: 1, Kind: models.OutcomeSuccess})
	o.RowCompleted(module, models.RowOutcome{Row: 2, Kind: models.OutcomeValidationFailure})
	o.RowCompleted(module, models.RowOutcome{Row: 3, Kind: models.OutcomeSuccess})
	o.BatchCompleted(&models.ImportReport{Module: module, TotalRows: 3}, 20*time.Millisecond)

	assert.Equal(t, successBefore+2, testutil.ToFloat64(m.rowsTotal.WithLabelValues("machines", "success")))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(m.rowsTotal.WithLabelValues("machines", "validation_failure")))
	assert.Equal(t, batchesBefore+1, testutil.ToFloat64(m.batchTotal.WithLabelValues("machines", "false")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight.WithLabelValues("machines")))
}

func TestAbortReason(t *testing.T) {
	_, err := decoder.Decode("notes.txt", []byte("a,b"))
	require.Error(t, err)
	assert.Equal(t, "unsupported_format", abortReason(err))

	_, err = models.ParseModule("finance")
	assert.Equal(t, "unsupported_module", abortReason(err))

	assert.Equal(t, "other", abortReason(assert.AnError))
}
