package ingest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turtacn/scholar-etl/internal/domain/paper"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

// memRepo is an in-memory paper.Repository with insert-if-absent semantics
// and injectable failures.
type memRepo struct {
	mu sync.Mutex

	nextID   map[paper.EntityKind]int64
	entities map[paper.EntityKind]map[string]int64
	papers   map[string]paper.PaperRow
	metrics  map[string]paper.PaperMetricsRow
	authors  map[[2]interface{}]paper.PaperAuthorRow

	commitCalls  int
	insertCalls  int
	commitErrs   []error
	insertErrs   []error
	dropped      map[string]bool
	committedIdx []int
}

func newMemRepo() *memRepo {
	return &memRepo{
		nextID:   map[paper.EntityKind]int64{},
		entities: map[paper.EntityKind]map[string]int64{},
		papers:   map[string]paper.PaperRow{},
		metrics:  map[string]paper.PaperMetricsRow{},
		authors:  map[[2]interface{}]paper.PaperAuthorRow{},
	}
}

func (r *memRepo) failCommits(errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitErrs = append(r.commitErrs, errs...)
}

func (r *memRepo) failInserts(errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertErrs = append(r.insertErrs, errs...)
}

// dropOnInsert makes InsertEntities report success for names while never
// storing them.
func (r *memRepo) dropOnInsert(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dropped == nil {
		r.dropped = map[string]bool{}
	}
	for _, name := range names {
		r.dropped[name] = true
	}
}

func (r *memRepo) LoadEntities(_ context.Context, kind paper.EntityKind) ([]paper.StoredEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []paper.StoredEntity
	for name, id := range r.entities[kind] {
		out = append(out, paper.StoredEntity{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) InsertEntities(_ context.Context, kind paper.EntityKind, names []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertCalls++
	if len(r.insertErrs) > 0 {
		err := r.insertErrs[0]
		r.insertErrs = r.insertErrs[1:]
		return 0, err
	}
	if r.entities[kind] == nil {
		r.entities[kind] = map[string]int64{}
	}
	var n int64
	for _, name := range names {
		if _, ok := r.entities[kind][name]; ok {
			continue
		}
		if r.dropped[name] {
			n++
			continue
		}
		r.nextID[kind]++
		r.entities[kind][name] = r.nextID[kind]
		n++
	}
	return n, nil
}

func (r *memRepo) CommitBatch(_ context.Context, b *paper.Batch) (paper.BatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitCalls++
	if len(r.commitErrs) > 0 {
		err := r.commitErrs[0]
		r.commitErrs = r.commitErrs[1:]
		if err != nil {
			return paper.BatchResult{}, err
		}
	}

	var res paper.BatchResult
	inserted := map[string]bool{}
	for _, p := range b.Papers {
		if _, ok := r.papers[p.PaperID]; ok {
			continue
		}
		r.papers[p.PaperID] = p
		inserted[p.PaperID] = true
		res.Papers++
	}
	for _, m := range b.Metrics {
		if !inserted[m.PaperID] {
			continue
		}
		if _, ok := r.metrics[m.PaperID]; !ok {
			r.metrics[m.PaperID] = m
			res.Metrics++
		}
	}
	for _, a := range b.Authors {
		if !inserted[a.PaperID] {
			continue
		}
		key := [2]interface{}{a.PaperID, a.AuthorID}
		if _, ok := r.authors[key]; !ok {
			r.authors[key] = a
			res.Authors++
		}
	}
	r.committedIdx = append(r.committedIdx, b.Index)
	return res, nil
}

type rowCounts struct {
	Journals, Sources, Authors, Papers, Metrics, PaperAuthors int
}

func (r *memRepo) counts() rowCounts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rowCounts{
		Journals:     len(r.entities[paper.KindJournal]),
		Sources:      len(r.entities[paper.KindSource]),
		Authors:      len(r.entities[paper.KindAuthor]),
		Papers:       len(r.papers),
		Metrics:      len(r.metrics),
		PaperAuthors: len(r.authors),
	}
}

// authorRows returns the author links of paperID by order.
func (r *memRepo) authorRows(paperID string) []paper.PaperAuthorRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []paper.PaperAuthorRow
	for _, a := range r.authors {
		if a.PaperID == paperID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AuthorOrder < out[j].AuthorOrder })
	return out
}

func (r *memRepo) authorID(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entities[paper.KindAuthor][name]
}

func deadlock() error {
	return errors.Transient(&pgconn.PgError{Code: "40P01", Message: "deadlock detected"}, "failed to insert papers")
}

func constraintViolation() error {
	return errors.Wrap(&pgconn.PgError{Code: "23503", Message: "foreign key violation"}, errors.ErrCodeDatabaseError, "failed to insert paper_authors")
}

// recordingReporter keeps every batch report.
type recordingReporter struct {
	mu       sync.Mutex
	started  []RunInfo
	batches  []BatchReport
	finished []RunStats
	errs     []error
}

func (r *recordingReporter) RunStarted(_ context.Context, info RunInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, info)
}

func (r *recordingReporter) BatchDone(_ context.Context, rep BatchReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, rep)
}

func (r *recordingReporter) RunFinished(_ context.Context, s RunStats, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, s)
	r.errs = append(r.errs, err)
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, Delay: time.Millisecond, Multiplier: 1}
}

func raw(id, authors, year string) paper.RawRecord {
	return paper.RawRecord{PaperID: id, Title: "Title " + id, Authors: authors, Year: year, Journal: "Journal", Source: "PMC"}
}

//Personal.AI order the ending
