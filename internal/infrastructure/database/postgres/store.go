package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/turtacn/scholar-etl/internal/domain/paper"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

// maxBindParams is the PostgreSQL limit on bind parameters per statement.
const maxBindParams = 65535

type entityTable struct {
	table   string
	idCol   string
	nameCol string
}

var entityTables = map[paper.EntityKind]entityTable{
	paper.KindJournal: {table: "journals", idCol: "journal_id", nameCol: "journal_name"},
	paper.KindSource:  {table: "sources", idCol: "source_id", nameCol: "source_name"},
	paper.KindAuthor:  {table: "authors", idCol: "author_id", nameCol: "author_name"},
}

var (
	paperColumns  = []string{"paper_id", "sha", "title", "abstract", "publish_year", "doi", "journal_id", "source_id", "is_covid19", "has_full_text"}
	metricColumns = []string{"paper_id", "author_count", "abstract_word_count", "paper_age"}
	authorColumns = []string{"paper_id", "author_id", "author_order"}
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithMaxRowsPerStatement caps the rows of one multi-row INSERT below the
// bind parameter limit.
func WithMaxRowsPerStatement(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxRows = n
		}
	}
}

// Store implements paper.Repository on PostgreSQL. Every write uses
// ON CONFLICT DO NOTHING.
type Store struct {
	db      *sql.DB
	log     logging.Logger
	maxRows int
}

var _ paper.Repository = (*Store)(nil)

// NewStore returns a Store on conn.
func NewStore(conn *Connection, log logging.Logger, opts ...StoreOption) *Store {
	s := &Store{db: conn.DB(), log: log.Named("postgres")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadEntities returns every row of kind's entity table.
func (s *Store) LoadEntities(ctx context.Context, kind paper.EntityKind) ([]paper.StoredEntity, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s, %s FROM %s", t.idCol, t.nameCol, t.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(err, "failed to load "+t.table)
	}
	defer rows.Close()

	var out []paper.StoredEntity
	for rows.Next() {
		var e paper.StoredEntity
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, classify(err, "failed to scan "+t.table)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to iterate "+t.table)
	}
	return out, nil
}

// InsertEntities inserts names into kind's entity table, skipping names that
// already exist. Each statement is atomic on its own.
func (s *Store) InsertEntities(ctx context.Context, kind paper.EntityKind, names []string) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return 0, nil
	}

	var inserted int64
	for _, chunk := range chunks(len(names), s.rowsPerStatement(1)) {
		query := insertStatement(t.table, []string{t.nameCol}, chunk.len(), "ON CONFLICT ("+t.nameCol+") DO NOTHING")
		args := make([]interface{}, 0, chunk.len())
		for _, n := range names[chunk.from:chunk.to] {
			args = append(args, n)
		}

		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return inserted, classify(err, "failed to insert "+t.table)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}

	s.log.Debug("entities inserted",
		logging.String(logging.FieldEntity, kind.String()),
		logging.Int("candidates", len(names)),
		logging.Int64("inserted", inserted),
	)
	return inserted, nil
}

// CommitBatch writes batch in one transaction: papers, then metrics, then
// paper_authors. Metrics and authors are written only for papers this
// transaction actually inserted.
func (s *Store) CommitBatch(ctx context.Context, batch *paper.Batch) (result paper.BatchResult, err error) {
	if batch == nil || batch.Len() == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, classify(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	inserted, err := s.insertPapers(ctx, tx, batch.Papers)
	if err != nil {
		return paper.BatchResult{}, err
	}
	result.Papers = int64(len(inserted))

	metrics := make([]paper.PaperMetricsRow, 0, len(batch.Metrics))
	for _, m := range batch.Metrics {
		if _, ok := inserted[m.PaperID]; ok {
			metrics = append(metrics, m)
		}
	}
	if result.Metrics, err = s.insertMetrics(ctx, tx, metrics); err != nil {
		return paper.BatchResult{}, err
	}

	authors := make([]paper.PaperAuthorRow, 0, len(batch.Authors))
	for _, a := range batch.Authors {
		if _, ok := inserted[a.PaperID]; ok {
			authors = append(authors, a)
		}
	}
	if result.Authors, err = s.insertAuthors(ctx, tx, authors); err != nil {
		return paper.BatchResult{}, err
	}

	if err = tx.Commit(); err != nil {
		return paper.BatchResult{}, classify(err, "failed to commit transaction")
	}
	return result, nil
}

func (s *Store) insertPapers(ctx context.Context, q querier, papers []paper.PaperRow) (map[string]struct{}, error) {
	inserted := make(map[string]struct{}, len(papers))
	for _, chunk := range chunks(len(papers), s.rowsPerStatement(len(paperColumns))) {
		query := insertStatement("papers", paperColumns, chunk.len(), "ON CONFLICT (paper_id) DO NOTHING RETURNING paper_id")
		args := make([]interface{}, 0, chunk.len()*len(paperColumns))
		for _, p := range papers[chunk.from:chunk.to] {
			args = append(args, p.PaperID, p.SHA, p.Title, p.Abstract, p.PublishYear, p.DOI,
				p.JournalID, p.SourceID, p.IsCovid19, p.HasFullText)
		}

		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, classify(err, "failed to insert papers")
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, classify(err, "failed to scan inserted paper")
			}
			inserted[id] = struct{}{}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, classify(err, "failed to insert papers")
		}
		rows.Close()
	}
	return inserted, nil
}

func (s *Store) insertMetrics(ctx context.Context, q querier, metrics []paper.PaperMetricsRow) (int64, error) {
	var total int64
	for _, chunk := range chunks(len(metrics), s.rowsPerStatement(len(metricColumns))) {
		query := insertStatement("paper_metrics", metricColumns, chunk.len(), "ON CONFLICT DO NOTHING")
		args := make([]interface{}, 0, chunk.len()*len(metricColumns))
		for _, m := range metrics[chunk.from:chunk.to] {
			args = append(args, m.PaperID, m.AuthorCount, m.AbstractWordCount, m.PaperAge)
		}
		n, err := execCount(ctx, q, query, args)
		if err != nil {
			return total, classify(err, "failed to insert paper_metrics")
		}
		total += n
	}
	return total, nil
}

func (s *Store) insertAuthors(ctx context.Context, q querier, authors []paper.PaperAuthorRow) (int64, error) {
	var total int64
	for _, chunk := range chunks(len(authors), s.rowsPerStatement(len(authorColumns))) {
		query := insertStatement("paper_authors", authorColumns, chunk.len(), "ON CONFLICT DO NOTHING")
		args := make([]interface{}, 0, chunk.len()*len(authorColumns))
		for _, a := range authors[chunk.from:chunk.to] {
			args = append(args, a.PaperID, a.AuthorID, a.AuthorOrder)
		}
		n, err := execCount(ctx, q, query, args)
		if err != nil {
			return total, classify(err, "failed to insert paper_authors")
		}
		total += n
	}
	return total, nil
}

func execCount(ctx context.Context, q querier, query string, args []interface{}) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) rowsPerStatement(columns int) int {
	limit := maxBindParams / columns
	if s.maxRows > 0 && s.maxRows < limit {
		return s.maxRows
	}
	return limit
}

func tableFor(kind paper.EntityKind) (entityTable, error) {
	t, ok := entityTables[kind]
	if !ok {
		return entityTable{}, errors.InvalidParam(fmt.Sprintf("unknown entity kind %d", int(kind)))
	}
	return t, nil
}

// insertStatement renders a multi-row INSERT with numbered placeholders.
func insertStatement(table string, columns []string, rows int, suffix string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := range columns {
			if c > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", n)
			n++
		}
		sb.WriteByte(')')
	}
	if suffix != "" {
		sb.WriteByte(' ')
		sb.WriteString(suffix)
	}
	return sb.String()
}

type span struct{ from, to int }

func (s span) len() int { return s.to - s.from }

func chunks(total, size int) []span {
	var out []span
	for from := 0; from < total; from += size {
		to := from + size
		if to > total {
			to = total
		}
		out = append(out, span{from: from, to: to})
	}
	return out
}

//Personal.AI order the ending
