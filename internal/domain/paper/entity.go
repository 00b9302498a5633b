// Package paper holds the publication ingest domain: the raw and canonical
// record shapes, the entity keying rules shared by deduplication and identity
// resolution, and construction of the papers, paper_metrics and paper_authors
// rows. Nothing here performs I/O.
package paper

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ─────────────────────────────────────────────────────────────────────────────
// Column widths of the target schema, counted in characters
// ─────────────────────────────────────────────────────────────────────────────

const (
	PaperIDWidth = 20
	SHAWidth     = 64
	DOIWidth     = 255
	JournalWidth = 255
	SourceWidth  = 100
	AuthorWidth  = 255
)

// Placeholders substituted for missing values.
const (
	UnknownJournal = "Unknown Journal"
	UnknownSource  = "Unknown Source"
	NoTitle        = "No Title"
)

// ─────────────────────────────────────────────────────────────────────────────
// Records
// ─────────────────────────────────────────────────────────────────────────────

// RawRecord is one source row as read from the input table. Every field is
// kept as text; an empty string means the cell was missing.
type RawRecord struct {
	// Row is the 1-based data row number in the source, used in diagnostics.
	Row int

	PaperID     string
	SHA         string
	Title       string
	Abstract    string
	Year        string
	DOI         string
	Journal     string
	Source      string
	Authors     string // serialized literal sequence, e.g. ['Alice', 'Bob']
	IsCovid19   string
	HasFullText string
}

// NormalizedRecord is the canonical form of a RawRecord. It is produced once
// by the Normalizer and never modified afterwards.
type NormalizedRecord struct {
	Row         int
	PaperID     string
	SHA         string // empty means NULL
	Title       string
	Abstract    string
	Year        int // 0 means unknown
	DOI         string // empty means NULL
	Journal     string
	Source      string
	Authors     []string // citation order, may contain intra-paper duplicates
	IsCovid19   bool
	HasFullText bool
}

// ─────────────────────────────────────────────────────────────────────────────
// Entity kinds
// ─────────────────────────────────────────────────────────────────────────────

// EntityKind identifies one of the deduplicated reference tables.
type EntityKind int

const (
	KindJournal EntityKind = iota + 1
	KindSource
	KindAuthor
)

// AllKinds lists the entity kinds in the order they are resolved.
var AllKinds = []EntityKind{KindJournal, KindSource, KindAuthor}

func (k EntityKind) String() string {
	switch k {
	case KindJournal:
		return "journal"
	case KindSource:
		return "source"
	case KindAuthor:
		return "author"
	default:
		return "unknown"
	}
}

// Width returns the column width of the kind's name column.
func (k EntityKind) Width() int {
	switch k {
	case KindJournal:
		return JournalWidth
	case KindSource:
		return SourceWidth
	case KindAuthor:
		return AuthorWidth
	default:
		return 0
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// EntityKey
// ─────────────────────────────────────────────────────────────────────────────

// EntityKey is the deduplication key of a journal, source or author name.
// Names that share a key are the same entity.
type EntityKey string

// excludedKeys are keys that never denote a real entity.
var excludedKeys = map[EntityKey]struct{}{
	"":     {},
	"none": {},
	"nan":  {},
	"null": {},
}

// CanonicalName returns name as it is stored: NFC-normalized, trimmed, inner
// whitespace runs collapsed to one space, and truncated to width characters.
// A width of zero or less disables truncation.
func CanonicalName(name string, width int) string {
	s := strings.Join(strings.FieldsFunc(norm.NFC.String(Sanitize(name)), unicode.IsSpace), " ")
	return strings.TrimRightFunc(Truncate(s, width), unicode.IsSpace)
}

// Sanitize replaces invalid UTF-8 sequences with U+FFFD and removes NUL
// characters, neither of which a text column accepts.
func Sanitize(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, "\uFFFD"), "\x00", "")
}

// KeyOf returns the EntityKey of name for a column of the given width. The key
// is computed on the truncated canonical name so that names differing only
// past the width collapse to one entity.
func KeyOf(name string, width int) EntityKey {
	// A Caser is stateful, so one is built per call.
	return EntityKey(cases.Fold().String(CanonicalName(name, width)))
}

// Excluded reports whether k is empty or a null sentinel.
func (k EntityKey) Excluded() bool {
	_, ok := excludedKeys[k]
	return ok
}

// IsSentinel reports whether name canonicalizes to an excluded key.
func IsSentinel(name string) bool {
	return KeyOf(name, 0).Excluded()
}

// Truncate cuts s to at most width characters. Width zero or less returns s.
func Truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == width {
			return s[:i]
		}
		n++
	}
	return s
}

//Personal.AI order the ending
