package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the scheduling module.
type Metrics struct {
	// Schedules created by batch scheduling
	SchedulesCreated prometheus.Counter

	// Batch scheduling outcomes by result code
	BatchOutcome *prometheus.CounterVec

	// Check-in scan outcomes by result code ("ok", "not_found", "invalid_state", ...)
	ScanOutcome *prometheus.CounterVec

	// Batch scheduling latency including the transaction
	BatchLatency prometheus.Histogram

	// Size of batch scan requests
	BatchScanSize prometheus.Histogram

	// Event publish failures by event type
	PublishFailures *prometheus.CounterVec
}

// New registers the scheduling metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SchedulesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "examsite_schedules_created_total",
			Help: "Total schedules created by batch scheduling",
		}),

		BatchOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "examsite_schedule_batches_total",
			Help: "Batch scheduling requests by outcome",
		}, []string{"outcome"}),

		ScanOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "examsite_checkin_scans_total",
			Help: "Check-in scans by outcome",
		}, []string{"outcome"}),

		BatchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "examsite_schedule_batch_duration_seconds",
			Help:    "Duration of batch scheduling including the database transaction",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		BatchScanSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "examsite_checkin_batch_scan_size",
			Help:    "Number of codes per batch scan request",
			Buckets: prometheus.LinearBuckets(10, 20, 10),
		}),

		PublishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "examsite_scheduling_event_publish_failures_total",
			Help: "Scheduling events that could not be delivered to the broker",
		}, []string{"event"}),
	}
}

// ObserveBatch records a finished batch scheduling request.
func (m *Metrics) ObserveBatch(outcome string, created int, d time.Duration) {
	if m != nil {
		m.BatchOutcome.WithLabelValues(outcome).Inc()
		m.SchedulesCreated.Add(float64(created))
		m.BatchLatency.Observe(d.Seconds())
	}
}

// IncrementScan records one scan attempt.
func (m *Metrics) IncrementScan(outcome string) {
	if m != nil {
		m.ScanOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveBatchScanSize records the size of a batch scan request.
func (m *Metrics) ObserveBatchScanSize(n int) {
	if m != nil {
		m.BatchScanSize.Observe(float64(n))
	}
}

// IncrementPublishFailure records an event that was not delivered.
func (m *Metrics) IncrementPublishFailure(event string) {
	if m != nil {
		m.PublishFailures.WithLabelValues(event).Inc()
	}
}
