package ingest

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/scholar-etl/internal/config"
	"github.com/turtacn/scholar-etl/internal/domain/paper"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

// RunStats summarizes one pipeline run.
type RunStats struct {
	RunID             string
	Source            string
	StartedAt         time.Time
	Elapsed           time.Duration
	Records           int
	Malformed         int
	AuthorParseErrors int
	UniquePapers      int
	TotalBatches      int
	Entities          []ResolveStats
	Write             WriteStats
}

// ScanResult is what the first pass over the source learns.
type ScanResult struct {
	Records           int
	Malformed         int
	AuthorParseErrors int
	UniquePapers      int
	DuplicatePapers   int
	Entities          paper.EntitySets
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunLock serializes runs through lock.
func WithRunLock(lock RunLock) Option {
	return func(p *Pipeline) { p.lock = lock }
}

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(p *Pipeline) { p.reporter = r }
}

// WithClock replaces the wall clock used for the current year and timings.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// Pipeline runs normalize, dedup, resolve and write strictly in sequence.
// Re-running it against the same store converges to the same rows.
type Pipeline struct {
	source   Source
	repo     paper.Repository
	cfg      config.PipelineConfig
	lock     RunLock
	reporter Reporter
	now      func() time.Time
	runID    string
	log      logging.Logger
}

// NewPipeline returns a Pipeline reading source and writing to repo.
func NewPipeline(source Source, repo paper.Repository, cfg config.PipelineConfig, log logging.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logging.NewNopLogger()
	}
	p := &Pipeline{
		source:   source,
		repo:     repo,
		cfg:      cfg,
		reporter: NopReporter{},
		now:      time.Now,
		log:      log.Named("ingest"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one full ingest. A fatal failure leaves every batch committed
// before it in place; running again resumes where the store left off.
func (p *Pipeline) Run(ctx context.Context) (stats RunStats, err error) {
	runID := p.runID
	if runID == "" {
		runID = uuid.New().String()
	}
	start := p.now()
	stats = RunStats{RunID: runID, Source: p.source.Name(), StartedAt: start}
	log := p.log.With(logging.String(logging.FieldRunID, runID))

	if p.lock != nil {
		release, lerr := p.lock.Acquire(ctx)
		if lerr != nil {
			return stats, errors.Wrap(lerr, errors.ErrCodeRunLockUnavailable, "another ingest run holds the lock")
		}
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				log.Warn("failed to release run lock", logging.Err(rerr))
			}
		}()
	}

	defer func() {
		stats.Elapsed = p.now().Sub(start)
		p.reporter.RunFinished(ctx, stats, err)
	}()

	log.Info("scanning source", logging.String("source", stats.Source))
	scan, err := p.Scan(ctx)
	if err != nil {
		return stats, err
	}
	stats.Records = scan.Records
	stats.Malformed = scan.Malformed
	stats.AuthorParseErrors = scan.AuthorParseErrors
	stats.UniquePapers = scan.UniquePapers
	stats.TotalBatches = BatchCount(scan.UniquePapers, p.batchSize())

	retrier := NewRetrier(RetryPolicyFromConfig(p.cfg), log)
	maps, entities, err := NewResolver(p.repo, retrier, p.cfg.EntityChunkSize, log).Resolve(ctx, scan.Entities)
	stats.Entities = entities
	if err != nil {
		return stats, err
	}

	policy, _ := paper.ParseAuthorCountPolicy(p.cfg.AuthorCount)
	builder := paper.NewRowBuilder(maps, p.currentYear(), policy)
	writer := NewWriter(p.repo, builder, retrier, p.reporter, WriterOptions{
		BatchSize:      p.batchSize(),
		OnBatchFailure: p.cfg.OnBatchFailure,
		Pipelined:      p.cfg.Pipelined,
	}, log)

	p.reporter.RunStarted(ctx, RunInfo{
		RunID:        runID,
		Source:       stats.Source,
		Papers:       scan.UniquePapers,
		TotalBatches: stats.TotalBatches,
		StartedAt:    start,
	})
	stats.Write, err = writer.Write(ctx, runID, p.stream(ctx), stats.TotalBatches)
	if err != nil {
		return stats, err
	}
	if n := len(stats.Write.FailedBatches); n > 0 {
		log.Warn("run finished with skipped batches", logging.Any("batches", stats.Write.FailedBatches))
	}
	return stats, nil
}

// Scan makes the first pass: it normalizes every record, counts malformed
// ones and accumulates the entity sets of each paper's first occurrence.
// Nothing is written.
func (p *Pipeline) Scan(ctx context.Context) (ScanResult, error) {
	var res ScanResult
	dedup := paper.NewDeduplicator()
	seen := make(map[string]struct{})

	norm := paper.NewNormalizer()
	norm.OnAuthorParseError = func(raw paper.RawRecord, perr error) {
		res.AuthorParseErrors++
		p.log.Debug("author list not parsed, using empty list",
			logging.Int(logging.FieldRow, raw.Row),
			logging.String(logging.FieldPaperID, raw.PaperID),
			logging.Err(perr),
		)
	}

	err := p.each(ctx, norm, func(rec paper.NormalizedRecord) error {
		if _, dup := seen[rec.PaperID]; dup {
			res.DuplicatePapers++
			return nil
		}
		seen[rec.PaperID] = struct{}{}
		dedup.Add(rec)
		return nil
	}, func(raw paper.RawRecord, merr error) {
		res.Malformed++
		p.log.Warn("skipping malformed record",
			logging.Int(logging.FieldRow, raw.Row),
			logging.Err(merr),
		)
	}, &res.Records)
	if err != nil {
		return res, err
	}

	res.UniquePapers = len(seen)
	res.Entities = dedup.Sets()
	return res, nil
}

// stream re-reads the source for the write pass. Malformed records were
// already reported by Scan and are skipped quietly.
func (p *Pipeline) stream(ctx context.Context) RecordStream {
	return func(yield func(paper.NormalizedRecord) error) error {
		var n int
		return p.each(ctx, paper.NewNormalizer(), yield, nil, &n)
	}
}

// each normalizes every record of the source and hands it to fn.
func (p *Pipeline) each(ctx context.Context, norm *paper.Normalizer, fn func(paper.NormalizedRecord) error,
	onMalformed func(paper.RawRecord, error), count *int) error {
	it, err := p.source.Open(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "failed to open source").WithDetail(p.source.Name())
	}
	defer it.Close()

	for {
		raw, err := it.Next()
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "ingest canceled")
			}
			return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "failed to read source").WithDetail(p.source.Name())
		}
		*count++

		rec, err := norm.Normalize(raw)
		if err != nil {
			if onMalformed != nil {
				onMalformed(raw, err)
			}
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

func (p *Pipeline) batchSize() int {
	if p.cfg.BatchSize > 0 {
		return p.cfg.BatchSize
	}
	return config.DefaultBatchSize
}

func (p *Pipeline) currentYear() int {
	if p.cfg.CurrentYear > 0 {
		return p.cfg.CurrentYear
	}
	return p.now().Year()
}

//Personal.AI order the ending
