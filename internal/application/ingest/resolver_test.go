package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/scholar-etl/internal/domain/paper"
	"github.com/turtacn/scholar-etl/internal/testutil"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

func newTestResolver(repo paper.Repository, chunk int) *Resolver {
	log := testutil.NewMockLogger()
	return NewResolver(repo, NewRetrier(fastPolicy(3), log), chunk, log)
}

func authorSet(names ...string) paper.EntitySets {
	d := paper.NewDeduplicator()
	d.Add(paper.NormalizedRecord{PaperID: "p", Journal: paper.UnknownJournal, Source: paper.UnknownSource, Authors: names})
	return d.Sets()
}

func TestResolver_Resolve_InsertsMissingOnly(t *testing.T) {
	repo := newMemRepo()
	_, err := repo.InsertEntities(context.Background(), paper.KindAuthor, []string{"Alice"})
	require.NoError(t, err)

	maps, stats, err := newTestResolver(repo, 0).Resolve(context.Background(), authorSet("Alice", "Bob", "alice"))
	require.NoError(t, err)
	require.Len(t, stats, 3)

	authors := stats[2]
	assert.Equal(t, paper.KindAuthor, authors.Kind)
	assert.Equal(t, 2, authors.Distinct)
	assert.Equal(t, 1, authors.Missing)
	assert.Equal(t, int64(1), authors.Inserted)

	aliceID, ok := maps.Authors.Lookup("ALICE")
	require.True(t, ok)
	assert.Equal(t, repo.authorID("Alice"), aliceID)
	_, ok = maps.Authors.Lookup("Bob")
	assert.True(t, ok)
	assert.Equal(t, 2, repo.counts().Authors)
}

func TestResolver_Resolve_Idempotent(t *testing.T) {
	repo := newMemRepo()
	r := newTestResolver(repo, 0)
	sets := authorSet("Alice", "Bob")

	first, _, err := r.Resolve(context.Background(), sets)
	require.NoError(t, err)
	second, stats, err := r.Resolve(context.Background(), sets)
	require.NoError(t, err)

	for _, kind := range paper.AllKinds {
		assert.Equal(t, first.Get(kind).Len(), second.Get(kind).Len(), kind.String())
	}
	for _, st := range stats {
		assert.Zero(t, st.Inserted, st.Kind.String())
	}
	assert.Equal(t, rowCounts{Journals: 1, Sources: 1, Authors: 2}, repo.counts())
}

func TestResolver_Resolve_ChunksInserts(t *testing.T) {
	repo := newMemRepo()
	names := []string{"A", "B", "C", "D", "E"}
	_, stats, err := newTestResolver(repo, 2).Resolve(context.Background(), authorSet(names...))
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats[2].Inserted)
	assert.Equal(t, 5, stats[2].Mapped)
	// one journal, one source, three author chunks
	assert.Equal(t, 5, repo.insertCalls)
}

func TestResolver_Resolve_RetriesTransientInsert(t *testing.T) {
	repo := newMemRepo()
	repo.failInserts(deadlock())

	maps, _, err := newTestResolver(repo, 0).Resolve(context.Background(), authorSet("Alice"))
	require.NoError(t, err)
	_, ok := maps.Journals.Lookup(paper.UnknownJournal)
	assert.True(t, ok)
}

func TestResolver_Resolve_FatalFailure(t *testing.T) {
	repo := newMemRepo()
	repo.failInserts(constraintViolation())

	maps, stats, err := newTestResolver(repo, 0).Resolve(context.Background(), authorSet("Alice"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeIdentityResolutionFailed))
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
	assert.Nil(t, stats)
	assert.Nil(t, maps.Journals)
	assert.Nil(t, maps.Authors)
}

func TestResolver_Resolve_FailsOnUnresolvedKeys(t *testing.T) {
	repo := newMemRepo()
	repo.dropOnInsert("Bob")

	maps, stats, err := newTestResolver(repo, 0).Resolve(context.Background(), authorSet("Alice", "Bob"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeIdentityResolutionFailed))
	assert.Contains(t, err.Error(), "entities missing after insert")
	assert.Contains(t, err.Error(), string(paper.KeyOf("Bob", paper.KindAuthor.Width())))
	assert.Nil(t, stats)
	assert.Nil(t, maps.Authors)
}

//Personal.AI order the ending
