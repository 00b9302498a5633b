//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/scholar-etl/internal/domain/paper"
	"github.com/turtacn/scholar-etl/internal/infrastructure/database/postgres"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/internal/testutil"
)

func setupStore(t *testing.T) (*postgres.Store, *postgres.Connection) {
	t.Helper()
	ctx := context.Background()

	conn, err := postgres.NewConnection(ctx, testutil.StartPostgres(t), logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.DB().ExecContext(ctx, testutil.SchemaDDL)
	require.NoError(t, err)

	return postgres.NewStore(conn, logging.NewNopLogger()), conn
}

func countRows(t *testing.T, conn *postgres.Connection, table string) int {
	t.Helper()
	var n int
	require.NoError(t, conn.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// ─── TestInsertEntities ───

func TestInsertEntities_InsertIfAbsent(t *testing.T) {
	store, conn := setupStore(t)
	ctx := context.Background()

	n, err := store.InsertEntities(ctx, paper.KindAuthor, []string{"Alice", "Bob"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.InsertEntities(ctx, paper.KindAuthor, []string{"Alice", "Bob", "Carol"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 3, countRows(t, conn, "authors"))

	rows, err := store.LoadEntities(ctx, paper.KindAuthor)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

// ─── TestCommitBatch ───

func TestCommitBatch_Idempotent(t *testing.T) {
	store, conn := setupStore(t)
	ctx := context.Background()

	_, err := store.InsertEntities(ctx, paper.KindAuthor, []string{"Alice"})
	require.NoError(t, err)
	authors, err := store.LoadEntities(ctx, paper.KindAuthor)
	require.NoError(t, err)
	aliceID := authors[0].ID

	age := 4
	batch := &paper.Batch{
		Index: 1, Total: 1,
		Papers:  []paper.PaperRow{{PaperID: "p1", Title: "T", PublishYear: 2020}},
		Metrics: []paper.PaperMetricsRow{{PaperID: "p1", AuthorCount: 1, PaperAge: &age}},
		Authors: []paper.PaperAuthorRow{{PaperID: "p1", AuthorID: aliceID, AuthorOrder: 1}},
	}

	res, err := store.CommitBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, paper.BatchResult{Papers: 1, Metrics: 1, Authors: 1}, res)

	res, err = store.CommitBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, paper.BatchResult{}, res)

	assert.Equal(t, 1, countRows(t, conn, "papers"))
	assert.Equal(t, 1, countRows(t, conn, "paper_metrics"))
	assert.Equal(t, 1, countRows(t, conn, "paper_authors"))
}

func TestCommitBatch_RollsBackOnFailure(t *testing.T) {
	store, conn := setupStore(t)

	batch := &paper.Batch{
		Papers:  []paper.PaperRow{{PaperID: "p1", Title: "T"}},
		Metrics: []paper.PaperMetricsRow{{PaperID: "p1"}},
		Authors: []paper.PaperAuthorRow{{PaperID: "p1", AuthorID: 999, AuthorOrder: 1}},
	}

	_, err := store.CommitBatch(context.Background(), batch)
	require.Error(t, err)
	assert.False(t, postgres.IsTransient(err))
	assert.Equal(t, 0, countRows(t, conn, "papers"))
}

//Personal.AI order the ending
