package prometheus

import (
	"time"

	"github.com/turtacn/scholar-etl/internal/domain/paper"
)

// Default Buckets
var (
	DefaultBatchDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultRunDurationBuckets   = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600}
	DefaultAttemptBuckets       = []float64{1, 2, 3, 5, 8}
)

// Table label values of RowsWrittenTotal.
const (
	TablePapers       = "papers"
	TablePaperMetrics = "paper_metrics"
	TablePaperAuthors = "paper_authors"
)

// IngestMetrics holds the metrics of ingest runs. It satisfies
// ingest.MetricsRecorder.
type IngestMetrics struct {
	BatchesTotal          CounterVec
	BatchDuration         HistogramVec
	BatchAttempts         HistogramVec
	RetriesTotal          CounterVec
	RowsWrittenTotal      CounterVec
	RecordsMalformedTotal CounterVec
	RunsTotal             CounterVec
	RunDuration           HistogramVec
	LastRunTimestamp      GaugeVec
	LastRunSuccess        GaugeVec

	now func() time.Time
}

// NewIngestMetrics registers all ingest metrics on collector.
func NewIngestMetrics(collector MetricsCollector) *IngestMetrics {
	m := &IngestMetrics{now: time.Now}

	// Batches
	m.BatchesTotal = collector.RegisterCounter("batches_total", "Batches finished, by terminal state", "status")
	m.BatchDuration = collector.RegisterHistogram("batch_duration_seconds", "Batch commit duration including retries", DefaultBatchDurationBuckets, "status")
	m.BatchAttempts = collector.RegisterHistogram("batch_attempts", "Commit attempts per batch", DefaultAttemptBuckets)
	m.RetriesTotal = collector.RegisterCounter("retries_total", "Batch commit retries after a transient failure")

	// Rows
	m.RowsWrittenTotal = collector.RegisterCounter("rows_written_total", "Rows inserted, by table", "table")
	m.RecordsMalformedTotal = collector.RegisterCounter("records_malformed_total", "Source records skipped as malformed")

	// Runs
	m.RunsTotal = collector.RegisterCounter("runs_total", "Ingest runs, by outcome", "status")
	m.RunDuration = collector.RegisterHistogram("run_duration_seconds", "Ingest run duration", DefaultRunDurationBuckets, "status")
	m.LastRunTimestamp = collector.RegisterGauge("last_run_timestamp_seconds", "Unix time the last run finished")
	m.LastRunSuccess = collector.RegisterGauge("last_run_success", "Whether the last run completed (1) or failed (0)")

	return m
}

// ObserveBatch records one batch that reached a terminal state.
func (m *IngestMetrics) ObserveBatch(status string, attempts int, elapsed time.Duration, inserted paper.BatchResult) {
	m.BatchesTotal.WithLabelValues(status).Inc()
	m.BatchDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	m.BatchAttempts.WithLabelValues().Observe(float64(attempts))
	if attempts > 1 {
		m.RetriesTotal.WithLabelValues().Add(float64(attempts - 1))
	}
	m.RowsWrittenTotal.WithLabelValues(TablePapers).Add(float64(inserted.Papers))
	m.RowsWrittenTotal.WithLabelValues(TablePaperMetrics).Add(float64(inserted.Metrics))
	m.RowsWrittenTotal.WithLabelValues(TablePaperAuthors).Add(float64(inserted.Authors))
}

// AddMalformed adds n skipped source records.
func (m *IngestMetrics) AddMalformed(n int) {
	if n > 0 {
		m.RecordsMalformedTotal.WithLabelValues().Add(float64(n))
	}
}

// ObserveRun records the outcome of a run.
func (m *IngestMetrics) ObserveRun(status string, elapsed time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	m.LastRunTimestamp.WithLabelValues().Set(float64(m.now().Unix()))
	success := 0.0
	if status == "completed" {
		success = 1
	}
	m.LastRunSuccess.WithLabelValues().Set(success)
}

//Personal.AI order the ending
