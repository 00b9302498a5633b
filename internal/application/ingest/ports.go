// Package ingest runs the paper ingest pipeline: it normalizes the source
// table, resolves journal, source and author identities, and writes papers
// with their metrics and author links in bounded, retried transactions.
package ingest

import (
	"context"
	"io"

	"github.com/turtacn/scholar-etl/internal/domain/paper"
)

// RecordIterator yields RawRecords in source order. Next returns io.EOF after
// the last record.
type RecordIterator interface {
	Next() (paper.RawRecord, error)
	Close() error
}

// Source is a restartable sequence of RawRecords. Every call to Open starts
// again from the first record.
type Source interface {
	Open(ctx context.Context) (RecordIterator, error)
	Name() string
}

// RunLock serializes runs that write to the same store. Acquire returns a
// release function that must be called when the run ends.
type RunLock interface {
	Acquire(ctx context.Context) (release func(context.Context) error, err error)
}

// SliceSource is a Source over records held in memory.
type SliceSource struct {
	name    string
	records []paper.RawRecord
}

// NewSliceSource returns a Source yielding records in order.
func NewSliceSource(name string, records ...paper.RawRecord) *SliceSource {
	return &SliceSource{name: name, records: records}
}

// Name returns the source name.
func (s *SliceSource) Name() string { return s.name }

// Open returns an iterator positioned before the first record.
func (s *SliceSource) Open(ctx context.Context) (RecordIterator, error) {
	return &sliceIterator{ctx: ctx, records: s.records}, nil
}

type sliceIterator struct {
	ctx     context.Context
	records []paper.RawRecord
	pos     int
}

func (it *sliceIterator) Next() (paper.RawRecord, error) {
	if err := it.ctx.Err(); err != nil {
		return paper.RawRecord{}, err
	}
	if it.pos >= len(it.records) {
		return paper.RawRecord{}, io.EOF
	}
	rec := it.records[it.pos]
	it.pos++
	if rec.Row == 0 {
		rec.Row = it.pos
	}
	return rec, nil
}

func (it *sliceIterator) Close() error { return nil }

//Personal.AI order the ending
