package paper

import (
	"math"
	"strconv"
	"strings"

	"github.com/turtacn/scholar-etl/pkg/errors"
)

// Normalizer converts RawRecords into NormalizedRecords. It prefers defaults
// over failure: only a record without a paper identifier is rejected.
type Normalizer struct {
	// OnAuthorParseError, when set, is called for every author list that
	// could not be parsed and was replaced by an empty list.
	OnAuthorParseError func(rec RawRecord, err error)
}

// NewNormalizer returns a Normalizer with no hooks.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize returns the canonical form of raw, or an ErrCodeMalformedRecord
// AppError when the record has no usable paper identifier.
func (n *Normalizer) Normalize(raw RawRecord) (NormalizedRecord, error) {
	paperID := fixedWidth(raw.PaperID, PaperIDWidth)
	if paperID == "" || IsSentinel(paperID) {
		return NormalizedRecord{}, errors.MalformedRecord("paper identifier is empty").
			WithDetail("row " + strconv.Itoa(raw.Row))
	}

	authors, err := ParseAuthorList(raw.Authors)
	if err != nil {
		if n.OnAuthorParseError != nil {
			n.OnAuthorParseError(raw, err)
		}
		authors = nil
	}

	title := strings.TrimSpace(Sanitize(raw.Title))
	if title == "" || IsSentinel(title) {
		title = NoTitle
	}
	abstract := strings.TrimSpace(Sanitize(raw.Abstract))
	if IsSentinel(abstract) {
		abstract = ""
	}

	return NormalizedRecord{
		Row:         raw.Row,
		PaperID:     paperID,
		SHA:         nullable(fixedWidth(raw.SHA, SHAWidth)),
		Title:       title,
		Abstract:    abstract,
		Year:        ParseYear(raw.Year),
		DOI:         nullable(fixedWidth(raw.DOI, DOIWidth)),
		Journal:     entityOrDefault(raw.Journal, JournalWidth, UnknownJournal),
		Source:      entityOrDefault(raw.Source, SourceWidth, UnknownSource),
		Authors:     normalizeAuthors(authors),
		IsCovid19:   ParseFlag(raw.IsCovid19),
		HasFullText: ParseFlag(raw.HasFullText),
	}, nil
}

func normalizeAuthors(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		c := CanonicalName(name, AuthorWidth)
		if KeyOf(c, AuthorWidth).Excluded() {
			continue
		}
		out = append(out, c)
	}
	return out
}

func entityOrDefault(name string, width int, def string) string {
	c := CanonicalName(name, width)
	if KeyOf(c, width).Excluded() {
		return def
	}
	return c
}

func fixedWidth(s string, width int) string {
	return strings.TrimSpace(Truncate(strings.TrimSpace(Sanitize(s)), width))
}

func nullable(s string) string {
	if IsSentinel(s) {
		return ""
	}
	return s
}

// ParseYear coerces a year cell to an integer. Numeric text such as "2020"
// or "2020.0" is truncated toward zero; anything else, including negative or
// non-finite values, yields 0.
func ParseYear(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 1 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// ParseFlag coerces a boolean cell. Missing or unrecognized values are false.
func ParseFlag(s string) bool {
	s = strings.TrimSpace(s)
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	switch strings.ToLower(s) {
	case "yes", "y", "1.0":
		return true
	}
	return false
}

//Personal.AI order the ending
