package ingest

import (
	"context"
	"time"

	"github.com/turtacn/scholar-etl/internal/domain/paper"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
)

// Lifecycle event types published by EventReporter.
const (
	EventRunStarted     = "ingest.run.started"
	EventBatchCommitted = "ingest.batch.committed"
	EventBatchFailed    = "ingest.batch.failed"
	EventRunCompleted   = "ingest.run.completed"
	EventRunFailed      = "ingest.run.failed"
)

// RunInfo describes a run that is about to write.
type RunInfo struct {
	RunID        string
	Source       string
	Papers       int
	TotalBatches int
	StartedAt    time.Time
}

// BatchReport is the outcome of one batch.
type BatchReport struct {
	RunID    string
	Index    int
	Total    int
	Papers   int
	Authors  int
	State    BatchState
	Attempts int
	Result   paper.BatchResult
	Elapsed  time.Duration
	Err      error
}

// Reporter receives progress of a run. Implementations must not block for
// long; errors are theirs to handle.
type Reporter interface {
	RunStarted(ctx context.Context, info RunInfo)
	BatchDone(ctx context.Context, report BatchReport)
	RunFinished(ctx context.Context, stats RunStats, err error)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) RunStarted(context.Context, RunInfo)          {}
func (NopReporter) BatchDone(context.Context, BatchReport)       {}
func (NopReporter) RunFinished(context.Context, RunStats, error) {}

// MultiReporter fans out to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) RunStarted(ctx context.Context, info RunInfo) {
	for _, r := range m {
		r.RunStarted(ctx, info)
	}
}

func (m MultiReporter) BatchDone(ctx context.Context, report BatchReport) {
	for _, r := range m {
		r.BatchDone(ctx, report)
	}
}

func (m MultiReporter) RunFinished(ctx context.Context, stats RunStats, err error) {
	for _, r := range m {
		r.RunFinished(ctx, stats, err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Log reporter
// ─────────────────────────────────────────────────────────────────────────────

// LogReporter writes one line per batch.
type LogReporter struct {
	log logging.Logger
}

// NewLogReporter returns a LogReporter writing to log.
func NewLogReporter(log logging.Logger) *LogReporter {
	return &LogReporter{log: log.Named("progress")}
}

func (r *LogReporter) RunStarted(_ context.Context, info RunInfo) {
	r.log.Info("writing papers",
		logging.String(logging.FieldRunID, info.RunID),
		logging.String("source", info.Source),
		logging.Int("papers", info.Papers),
		logging.Int(logging.FieldTotalBatches, info.TotalBatches),
	)
}

func (r *LogReporter) BatchDone(_ context.Context, rep BatchReport) {
	fields := []logging.Field{
		logging.String(logging.FieldRunID, rep.RunID),
		logging.Int(logging.FieldBatch, rep.Index),
		logging.Int(logging.FieldTotalBatches, rep.Total),
		logging.Int("papers", rep.Papers),
		logging.Int("paper_authors", rep.Authors),
		logging.Int("attempts", rep.Attempts),
		logging.Duration(logging.FieldElapsed, rep.Elapsed),
	}
	if rep.State == BatchCommitted {
		fields = append(fields,
			logging.Int64("papers_inserted", rep.Result.Papers),
			logging.Int64("paper_authors_inserted", rep.Result.Authors),
		)
		r.log.Info("batch committed", fields...)
		return
	}
	r.log.Error("batch failed", append(fields, logging.Err(rep.Err))...)
}

func (r *LogReporter) RunFinished(_ context.Context, s RunStats, err error) {
	fields := []logging.Field{
		logging.String(logging.FieldRunID, s.RunID),
		logging.Int("records", s.Records),
		logging.Int("malformed", s.Malformed),
		logging.Int("duplicate_papers", s.Write.DuplicatePapers),
		logging.Int("committed_batches", s.Write.CommittedBatches),
		logging.Int("failed_batches", len(s.Write.FailedBatches)),
		logging.Int64("papers_inserted", s.Write.Inserted.Papers),
		logging.Int64("metrics_inserted", s.Write.Inserted.Metrics),
		logging.Int64("paper_authors_inserted", s.Write.Inserted.Authors),
		logging.Duration(logging.FieldElapsed, s.Elapsed),
	}
	if err != nil {
		r.log.Error("ingest run failed", append(fields, logging.Err(err))...)
		return
	}
	r.log.Info("ingest run completed", fields...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Metrics reporter
// ─────────────────────────────────────────────────────────────────────────────

// MetricsRecorder records run metrics.
type MetricsRecorder interface {
	ObserveBatch(status string, attempts int, elapsed time.Duration, inserted paper.BatchResult)
	AddMalformed(n int)
	ObserveRun(status string, elapsed time.Duration)
}

// MetricsReporter forwards progress to a MetricsRecorder.
type MetricsReporter struct {
	rec MetricsRecorder
}

// NewMetricsReporter returns a MetricsReporter feeding rec.
func NewMetricsReporter(rec MetricsRecorder) *MetricsReporter {
	return &MetricsReporter{rec: rec}
}

func (r *MetricsReporter) RunStarted(context.Context, RunInfo) {}

func (r *MetricsReporter) BatchDone(_ context.Context, rep BatchReport) {
	r.rec.ObserveBatch(rep.State.String(), rep.Attempts, rep.Elapsed, rep.Result)
}

func (r *MetricsReporter) RunFinished(_ context.Context, s RunStats, err error) {
	r.rec.AddMalformed(s.Malformed)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	r.rec.ObserveRun(status, s.Elapsed)
}

// ─────────────────────────────────────────────────────────────────────────────
// Event reporter
// ─────────────────────────────────────────────────────────────────────────────

// EventPublisher publishes a lifecycle event keyed by key.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload interface{}) error
}

// BatchEvent is the payload of batch events.
type BatchEvent struct {
	RunID           string `json:"run_id"`
	Batch           int    `json:"batch"`
	TotalBatches    int    `json:"total_batches"`
	Attempts        int    `json:"attempts"`
	PapersInserted  int64  `json:"papers_inserted"`
	MetricsInserted int64  `json:"metrics_inserted"`
	AuthorsInserted int64  `json:"paper_authors_inserted"`
	Error           string `json:"error,omitempty"`
}

// RunEvent is the payload of run events.
type RunEvent struct {
	RunID            string `json:"run_id"`
	Source           string `json:"source"`
	Records          int    `json:"records"`
	Malformed        int    `json:"malformed"`
	TotalBatches     int    `json:"total_batches"`
	CommittedBatches int    `json:"committed_batches"`
	FailedBatches    []int  `json:"failed_batches,omitempty"`
	PapersInserted   int64  `json:"papers_inserted"`
	ElapsedMillis    int64  `json:"elapsed_ms"`
	Error            string `json:"error,omitempty"`
}

// EventReporter publishes lifecycle events. Publish failures are logged and
// never fail the run.
type EventReporter struct {
	pub    EventPublisher
	log    logging.Logger
	source string
}

// NewEventReporter returns an EventReporter publishing through pub.
func NewEventReporter(pub EventPublisher, log logging.Logger) *EventReporter {
	return &EventReporter{pub: pub, log: log.Named("events")}
}

func (r *EventReporter) RunStarted(ctx context.Context, info RunInfo) {
	r.source = info.Source
	r.publish(ctx, EventRunStarted, info.RunID, RunEvent{
		RunID:        info.RunID,
		Source:       info.Source,
		TotalBatches: info.TotalBatches,
	})
}

func (r *EventReporter) BatchDone(ctx context.Context, rep BatchReport) {
	ev := BatchEvent{
		RunID:           rep.RunID,
		Batch:           rep.Index,
		TotalBatches:    rep.Total,
		Attempts:        rep.Attempts,
		PapersInserted:  rep.Result.Papers,
		MetricsInserted: rep.Result.Metrics,
		AuthorsInserted: rep.Result.Authors,
	}
	eventType := EventBatchCommitted
	if rep.State != BatchCommitted {
		eventType = EventBatchFailed
		if rep.Err != nil {
			ev.Error = rep.Err.Error()
		}
	}
	r.publish(ctx, eventType, rep.RunID, ev)
}

func (r *EventReporter) RunFinished(ctx context.Context, s RunStats, err error) {
	ev := RunEvent{
		RunID:            s.RunID,
		Source:           r.source,
		Records:          s.Records,
		Malformed:        s.Malformed,
		TotalBatches:     s.TotalBatches,
		CommittedBatches: s.Write.CommittedBatches,
		FailedBatches:    s.Write.FailedBatches,
		PapersInserted:   s.Write.Inserted.Papers,
		ElapsedMillis:    s.Elapsed.Milliseconds(),
	}
	eventType := EventRunCompleted
	if err != nil {
		eventType = EventRunFailed
		ev.Error = err.Error()
	}
	r.publish(context.WithoutCancel(ctx), eventType, s.RunID, ev)
}

func (r *EventReporter) publish(ctx context.Context, eventType, key string, payload interface{}) {
	if err := r.pub.Publish(ctx, eventType, key, payload); err != nil {
		r.log.Warn("failed to publish event",
			logging.String("event_type", eventType),
			logging.String(logging.FieldRunID, key),
			logging.Err(err),
		)
	}
}

//Personal.AI order the ending
