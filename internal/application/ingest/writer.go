package ingest

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/scholar-etl/internal/config"
	"github.com/turtacn/scholar-etl/internal/domain/paper"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

// RecordStream pushes NormalizedRecords to yield in source order and stops at
// the first error yield returns.
type RecordStream func(yield func(paper.NormalizedRecord) error) error

// WriterOptions configures a Writer.
type WriterOptions struct {
	BatchSize      int
	OnBatchFailure string // config.OnBatchFailureAbort or config.OnBatchFailureSkip
	Pipelined      bool
}

// WriteStats summarizes the write stage of a run.
type WriteStats struct {
	Records           int
	DuplicatePapers   int
	UnresolvedAuthors int
	Batches           int
	CommittedBatches  int
	FailedBatches     []int
	Retries           int
	Inserted          paper.BatchResult
}

// Writer turns NormalizedRecords into output rows and commits them in
// batches of a fixed size, one transaction per batch.
type Writer struct {
	repo     paper.Repository
	builder  *paper.RowBuilder
	retrier  *Retrier
	reporter Reporter
	opts     WriterOptions
	log      logging.Logger
}

// NewWriter returns a Writer committing through repo.
func NewWriter(repo paper.Repository, builder *paper.RowBuilder, retrier *Retrier, reporter Reporter, opts WriterOptions, log logging.Logger) *Writer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = config.DefaultBatchSize
	}
	if opts.OnBatchFailure == "" {
		opts.OnBatchFailure = config.OnBatchFailureAbort
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Writer{
		repo:     repo,
		builder:  builder,
		retrier:  retrier,
		reporter: reporter,
		opts:     opts,
		log:      log.Named("writer"),
	}
}

// Write consumes stream and commits its rows. totalBatches is the expected
// number of batches and is used for progress only. A paper identifier seen
// earlier in the same stream is skipped.
//
// With the abort policy the first batch that cannot be committed stops the
// write and its error is returned; batches committed before it stay durable.
// With the skip policy the failed batch is logged and the write continues.
func (w *Writer) Write(ctx context.Context, runID string, stream RecordStream, totalBatches int) (WriteStats, error) {
	if w.opts.Pipelined {
		return w.writePipelined(ctx, runID, stream, totalBatches)
	}

	var stats WriteStats
	acc := w.newAccumulator(totalBatches, &stats)
	commit := func(b *paper.Batch) error {
		return w.handle(ctx, runID, b, &stats)
	}

	err := stream(func(rec paper.NormalizedRecord) error {
		if b := acc.add(rec); b != nil {
			return commit(b)
		}
		return nil
	})
	if err == nil {
		if b := acc.flush(); b != nil {
			err = commit(b)
		}
	}
	return stats, err
}

// writePipelined builds the next batch while the current one commits.
// Batches still commit one at a time and in order.
func (w *Writer) writePipelined(ctx context.Context, runID string, stream RecordStream, totalBatches int) (WriteStats, error) {
	var built, committed WriteStats
	batches := make(chan *paper.Batch, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		acc := w.newAccumulator(totalBatches, &built)
		send := func(b *paper.Batch) error {
			select {
			case batches <- b:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		err := stream(func(rec paper.NormalizedRecord) error {
			if b := acc.add(rec); b != nil {
				return send(b)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if b := acc.flush(); b != nil {
			return send(b)
		}
		return nil
	})

	g.Go(func() error {
		for b := range batches {
			if err := w.handle(gctx, runID, b, &committed); err != nil {
				return err
			}
		}
		return nil
	})

	err := g.Wait()
	committed.Records = built.Records
	committed.DuplicatePapers = built.DuplicatePapers
	committed.UnresolvedAuthors = built.UnresolvedAuthors
	return committed, err
}

// handle commits b and applies the failure policy.
func (w *Writer) handle(ctx context.Context, runID string, b *paper.Batch, stats *WriteStats) error {
	stats.Batches++
	report := w.commit(ctx, runID, b)
	stats.Retries += report.Attempts - 1
	w.reporter.BatchDone(ctx, report)

	if report.State == BatchCommitted {
		stats.CommittedBatches++
		stats.Inserted.Add(report.Result)
		return nil
	}

	stats.FailedBatches = append(stats.FailedBatches, b.Index)
	if w.opts.OnBatchFailure == config.OnBatchFailureSkip && ctx.Err() == nil {
		w.log.Warn("skipping failed batch",
			logging.Int(logging.FieldBatch, b.Index),
			logging.Int(logging.FieldTotalBatches, b.Total),
			logging.Err(report.Err),
		)
		return nil
	}
	return report.Err
}

// commit runs one batch through Pending, Committing, Retrying and one of the
// terminal states.
func (w *Writer) commit(ctx context.Context, runID string, b *paper.Batch) BatchReport {
	report := BatchReport{
		RunID:   runID,
		Index:   b.Index,
		Total:   b.Total,
		Papers:  b.Len(),
		Authors: len(b.Authors),
		State:   BatchPending,
	}
	start := time.Now()
	label := fmt.Sprintf("batch %d/%d", b.Index, b.Total)

	report.State = BatchCommitting
	attempts, err := w.retrier.Do(ctx, label, func(ctx context.Context) error {
		res, cerr := w.repo.CommitBatch(ctx, b)
		if cerr == nil {
			report.Result = res
		}
		return cerr
	}, func(Attempt) {
		report.State = BatchRetrying
	})
	report.Attempts = attempts
	report.Elapsed = time.Since(start)

	if err != nil {
		report.State = BatchFailed
		report.Result = paper.BatchResult{}
		report.Err = errors.Wrap(err, errors.ErrCodeBatchCommitFailed, "batch commit failed").WithDetail(label)
		w.log.Error("batch commit failed",
			logging.String(logging.FieldRunID, runID),
			logging.Int(logging.FieldBatch, b.Index),
			logging.Int(logging.FieldTotalBatches, b.Total),
			logging.Int(logging.FieldAttempt, attempts),
			logging.Err(err),
		)
		return report
	}

	report.State = BatchCommitted
	return report
}

// accumulator groups records into batches, skipping repeated paper ids.
type accumulator struct {
	builder *paper.RowBuilder
	size    int
	total   int
	index   int
	seen    map[string]struct{}
	current *paper.Batch
	stats   *WriteStats
}

func (w *Writer) newAccumulator(total int, stats *WriteStats) *accumulator {
	return &accumulator{
		builder: w.builder,
		size:    w.opts.BatchSize,
		total:   total,
		seen:    make(map[string]struct{}),
		stats:   stats,
	}
}

// add appends rec and returns a full batch when one is ready.
func (a *accumulator) add(rec paper.NormalizedRecord) *paper.Batch {
	a.stats.Records++
	if _, dup := a.seen[rec.PaperID]; dup {
		a.stats.DuplicatePapers++
		return nil
	}
	a.seen[rec.PaperID] = struct{}{}

	if a.current == nil {
		a.index++
		a.current = &paper.Batch{Index: a.index, Total: a.totalFor(a.index)}
	}
	rows := a.builder.Build(rec)
	a.stats.UnresolvedAuthors += rows.UnresolvedAuthors
	a.current.Add(rows)

	if a.current.Len() >= a.size {
		return a.flush()
	}
	return nil
}

// flush returns the partial batch, if any.
func (a *accumulator) flush() *paper.Batch {
	b := a.current
	a.current = nil
	if b == nil || b.Len() == 0 {
		return nil
	}
	return b
}

func (a *accumulator) totalFor(index int) int {
	if index > a.total {
		return index
	}
	return a.total
}

// BatchCount returns the number of batches needed for papers records.
func BatchCount(papers, batchSize int) int {
	if papers <= 0 || batchSize <= 0 {
		return 0
	}
	return (papers + batchSize - 1) / batchSize
}

//Personal.AI order the ending
