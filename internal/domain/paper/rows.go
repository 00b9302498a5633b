package paper

import "strings"

// PaperRow is one row of the papers table. Nil pointers are written as NULL.
type PaperRow struct {
	PaperID     string
	SHA         *string
	Title       string
	Abstract    string
	PublishYear int
	DOI         *string
	JournalID   *int64
	SourceID    *int64
	IsCovid19   bool
	HasFullText bool
}

// PaperMetricsRow is one row of the paper_metrics table.
type PaperMetricsRow struct {
	PaperID           string
	AuthorCount       int
	AbstractWordCount int
	PaperAge          *int // nil when the publish year is unknown
}

// PaperAuthorRow links a paper to an author. AuthorOrder is the 1-based
// position of the author in the paper's list after intra-paper duplicates
// are dropped.
type PaperAuthorRow struct {
	PaperID     string
	AuthorID    int64
	AuthorOrder int
}

// PaperRows is everything one NormalizedRecord contributes to a batch.
type PaperRows struct {
	Paper   PaperRow
	Metrics PaperMetricsRow
	Authors []PaperAuthorRow

	// UnresolvedAuthors counts distinct listed authors without an identifier.
	UnresolvedAuthors int
}

// AuthorCountPolicy selects how PaperMetricsRow.AuthorCount is computed.
type AuthorCountPolicy int

const (
	// CountResolvedAuthors counts the paper_authors rows of the paper.
	CountResolvedAuthors AuthorCountPolicy = iota
	// CountListedAuthors counts every listed author name, duplicates
	// included, regardless of resolution.
	CountListedAuthors
)

// ParseAuthorCountPolicy maps "resolved" and "listed" to a policy. Anything
// else yields CountResolvedAuthors and false.
func ParseAuthorCountPolicy(s string) (AuthorCountPolicy, bool) {
	switch s {
	case "resolved":
		return CountResolvedAuthors, true
	case "listed":
		return CountListedAuthors, true
	default:
		return CountResolvedAuthors, false
	}
}

// RowBuilder turns NormalizedRecords into output rows using a run's identity
// maps.
type RowBuilder struct {
	maps        IdentityMaps
	currentYear int
	policy      AuthorCountPolicy
}

// NewRowBuilder returns a RowBuilder computing ages relative to currentYear.
func NewRowBuilder(maps IdentityMaps, currentYear int, policy AuthorCountPolicy) *RowBuilder {
	return &RowBuilder{maps: maps, currentYear: currentYear, policy: policy}
}

// Build produces the rows of rec. A journal or source that fails to resolve
// leaves its foreign key NULL. Author names are deduplicated by EntityKey,
// first occurrence wins, and an author that fails to resolve is omitted
// without renumbering the ones after it.
func (b *RowBuilder) Build(rec NormalizedRecord) PaperRows {
	out := PaperRows{
		Paper: PaperRow{
			PaperID:     rec.PaperID,
			SHA:         optionalString(rec.SHA),
			Title:       rec.Title,
			Abstract:    rec.Abstract,
			PublishYear: rec.Year,
			DOI:         optionalString(rec.DOI),
			JournalID:   optionalID(b.maps.Journals.Lookup(rec.Journal)),
			SourceID:    optionalID(b.maps.Sources.Lookup(rec.Source)),
			IsCovid19:   rec.IsCovid19,
			HasFullText: rec.HasFullText,
		},
	}

	seen := make(map[EntityKey]struct{}, len(rec.Authors))
	order := 0
	for _, name := range rec.Authors {
		key := KeyOf(name, AuthorWidth)
		if key.Excluded() {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		order++

		id, ok := b.maps.Authors.LookupKey(key)
		if !ok {
			out.UnresolvedAuthors++
			continue
		}
		out.Authors = append(out.Authors, PaperAuthorRow{
			PaperID:     rec.PaperID,
			AuthorID:    id,
			AuthorOrder: order,
		})
	}

	count := len(out.Authors)
	if b.policy == CountListedAuthors {
		count = len(rec.Authors)
	}
	out.Metrics = PaperMetricsRow{
		PaperID:           rec.PaperID,
		AuthorCount:       count,
		AbstractWordCount: len(strings.Fields(rec.Abstract)),
		PaperAge:          PaperAge(b.currentYear, rec.Year),
	}
	return out
}

// PaperAge returns currentYear - publishYear, or nil when publishYear is 0.
func PaperAge(currentYear, publishYear int) *int {
	if publishYear <= 0 {
		return nil
	}
	age := currentYear - publishYear
	return &age
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalID(id int64, ok bool) *int64 {
	if !ok {
		return nil
	}
	return &id
}

// ─────────────────────────────────────────────────────────────────────────────
// Batch
// ─────────────────────────────────────────────────────────────────────────────

// Batch is a bounded group of rows committed in one transaction, papers
// first, then metrics, then paper_authors.
type Batch struct {
	// Index is 1-based; Total is the number of batches in the run.
	Index int
	Total int

	Papers  []PaperRow
	Metrics []PaperMetricsRow
	Authors []PaperAuthorRow
}

// Add appends rows to the batch.
func (b *Batch) Add(rows PaperRows) {
	b.Papers = append(b.Papers, rows.Paper)
	b.Metrics = append(b.Metrics, rows.Metrics)
	b.Authors = append(b.Authors, rows.Authors...)
}

// Len returns the number of papers in the batch.
func (b *Batch) Len() int { return len(b.Papers) }

// BatchResult reports the rows a committed batch actually inserted. Rows that
// already existed are not counted.
type BatchResult struct {
	Papers  int64
	Metrics int64
	Authors int64
}

// Add accumulates other into r.
func (r *BatchResult) Add(other BatchResult) {
	r.Papers += other.Papers
	r.Metrics += other.Metrics
	r.Authors += other.Authors
}

//Personal.AI order the ending
