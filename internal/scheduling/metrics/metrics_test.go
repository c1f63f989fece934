package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveBatch("ok", 3, 20*time.Millisecond)
	m.IncrementScan("ok")
	m.IncrementScan("not_found")
	m.IncrementScan("not_found")
	m.IncrementPublishFailure("schedule_checked_in")

	assert.Equal(t, float64(3), testutil.ToFloat64(m.SchedulesCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BatchOutcome.WithLabelValues("ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ScanOutcome.WithLabelValues("not_found")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PublishFailures.WithLabelValues("schedule_checked_in")))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBatch("ok", 1, time.Second)
		m.IncrementScan("ok")
		m.ObserveBatchScanSize(5)
		m.IncrementPublishFailure("x")
	})
}
