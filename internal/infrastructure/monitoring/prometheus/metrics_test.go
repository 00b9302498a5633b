package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/scholar-etl/internal/application/ingest"
	"github.com/turtacn/scholar-etl/internal/domain/paper"
)

var _ ingest.MetricsRecorder = (*IngestMetrics)(nil)

func newTestIngestMetrics(t *testing.T) (*IngestMetrics, MetricsCollector) {
	c := newTestCollector(t)
	m := NewIngestMetrics(c)
	m.now = func() time.Time { return time.Unix(1700000000, 0) }
	return m, c
}

func TestNewIngestMetrics_AllMetricsRegistered(t *testing.T) {
	m, _ := newTestIngestMetrics(t)
	require.NotNil(t, m)

	assert.NotNil(t, m.BatchesTotal)
	assert.NotNil(t, m.BatchDuration)
	assert.NotNil(t, m.BatchAttempts)
	assert.NotNil(t, m.RetriesTotal)
	assert.NotNil(t, m.RowsWrittenTotal)
	assert.NotNil(t, m.RecordsMalformedTotal)
	assert.NotNil(t, m.RunsTotal)
	assert.NotNil(t, m.RunDuration)
}

func TestObserveBatch(t *testing.T) {
	m, c := newTestIngestMetrics(t)

	m.ObserveBatch("committed", 1, 200*time.Millisecond, paper.BatchResult{Papers: 10, Metrics: 10, Authors: 25})
	m.ObserveBatch("committed", 3, time.Second, paper.BatchResult{Papers: 5, Metrics: 5, Authors: 7})
	m.ObserveBatch("failed", 3, time.Second, paper.BatchResult{})

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_batches_total{status="committed"} 2`)
	assert.Contains(t, output, `test_unit_batches_total{status="failed"} 1`)
	assert.Contains(t, output, "test_unit_retries_total 4")
	assert.Contains(t, output, `test_unit_rows_written_total{table="papers"} 15`)
	assert.Contains(t, output, `test_unit_rows_written_total{table="paper_metrics"} 15`)
	assert.Contains(t, output, `test_unit_rows_written_total{table="paper_authors"} 32`)
	assert.Contains(t, output, `test_unit_batch_duration_seconds_count{status="committed"} 2`)
	assert.Contains(t, output, "test_unit_batch_attempts_count 3")
}

func TestAddMalformed(t *testing.T) {
	m, c := newTestIngestMetrics(t)
	m.AddMalformed(0)
	m.AddMalformed(3)

	assert.Contains(t, scrapeMetrics(t, c), "test_unit_records_malformed_total 3")
}

func TestObserveRun(t *testing.T) {
	m, c := newTestIngestMetrics(t)

	m.ObserveRun("completed", 90*time.Second)
	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_runs_total{status="completed"} 1`)
	assert.Contains(t, output, "test_unit_last_run_success 1")
	assert.Contains(t, output, "test_unit_last_run_timestamp_seconds 1.7e+09")

	m.ObserveRun("failed", time.Second)
	output = scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_runs_total{status="failed"} 1`)
	assert.Contains(t, output, "test_unit_last_run_success 0")
}

func TestMetricsReporterFeedsIngestMetrics(t *testing.T) {
	m, c := newTestIngestMetrics(t)
	r := ingest.NewMetricsReporter(m)

	r.BatchDone(context.Background(), ingest.BatchReport{Index: 1, Total: 1, State: ingest.BatchCommitted, Attempts: 2,
		Result: paper.BatchResult{Papers: 1, Metrics: 1, Authors: 2}})
	r.RunFinished(context.Background(), ingest.RunStats{Malformed: 1, Elapsed: time.Second}, nil)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_batches_total{status="committed"} 1`)
	assert.Contains(t, output, "test_unit_retries_total 1")
	assert.Contains(t, output, "test_unit_records_malformed_total 1")
	assert.Contains(t, output, `test_unit_runs_total{status="completed"} 1`)
}

//Personal.AI order the ending
