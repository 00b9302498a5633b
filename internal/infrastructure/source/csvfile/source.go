// Package csvfile reads paper RawRecords from a delimited text table with a
// header row. The table may live on local disk or in object storage.
package csvfile

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"io"
	"os"
	"strings"

	"github.com/turtacn/scholar-etl/internal/application/ingest"
	"github.com/turtacn/scholar-etl/internal/domain/paper"
	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/scholar-etl/pkg/errors"
)

// Column names recognised in the header row. Matching ignores case and
// surrounding whitespace.
const (
	ColPaperID     = "paper_id"
	ColSHA         = "sha"
	ColTitle       = "title"
	ColAbstract    = "abstract"
	ColYear        = "year"
	ColDOI         = "doi"
	ColJournal     = "journal"
	ColSource      = "source"
	ColAuthors     = "authors"
	ColIsCovid19   = "is_covid19"
	ColHasFullText = "has_full_text"
)

var columnAliases = map[string]string{
	"publish_year": ColYear,
	"source_x":     ColSource,
}

const utf8BOM = "\ufeff"

// Opener opens the raw byte stream of the table. Each call starts from the
// beginning.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// FileOpener opens a local file.
func FileOpener(path string) Opener {
	return func(ctx context.Context) (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			if stderrors.Is(err, os.ErrNotExist) {
				return nil, errors.New(errors.ErrCodeNotFound, "source file not found").WithDetail(path)
			}
			return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "failed to open source file")
		}
		return f, nil
	}
}

// Option configures a Source.
type Option func(*Source)

// WithDelimiter sets the field delimiter. The default is a comma.
func WithDelimiter(d rune) Option {
	return func(s *Source) {
		if d != 0 {
			s.delimiter = d
		}
	}
}

// WithLogger sets the logger used for row-level warnings.
func WithLogger(log logging.Logger) Option {
	return func(s *Source) {
		if log != nil {
			s.logger = log
		}
	}
}

// Source is a restartable ingest.Source over a delimited table.
type Source struct {
	name      string
	open      Opener
	delimiter rune
	logger    logging.Logger
}

// New returns a Source named name that reads through open.
func New(name string, open Opener, opts ...Option) *Source {
	s := &Source{
		name:      name,
		open:      open,
		delimiter: ',',
		logger:    logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("csvfile")
	return s
}

// NewFileSource returns a Source over the local file at path.
func NewFileSource(path string, opts ...Option) *Source {
	return New(path, FileOpener(path), opts...)
}

// Name returns the source location.
func (s *Source) Name() string { return s.name }

// Open reads the header row and returns an iterator over the data rows.
func (s *Source) Open(ctx context.Context) (ingest.RecordIterator, error) {
	rc, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(rc)
	r.Comma = s.delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		rc.Close()
		if stderrors.Is(err, io.EOF) {
			return nil, errors.New(errors.ErrCodeSourceUnavailable, "source has no header row").WithDetail(s.name)
		}
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnavailable, "failed to read header row")
	}

	index, err := indexHeader(header)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return &iterator{ctx: ctx, rc: rc, r: r, index: index, name: s.name, logger: s.logger}, nil
}

func indexHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		col := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, utf8BOM)))
		if alias, ok := columnAliases[col]; ok {
			col = alias
		}
		if _, dup := index[col]; !dup {
			index[col] = i
		}
	}
	if _, ok := index[ColPaperID]; !ok {
		return nil, errors.New(errors.ErrCodeSourceUnavailable, "missing required column").WithDetail(ColPaperID)
	}
	return index, nil
}

type iterator struct {
	ctx    context.Context
	rc     io.ReadCloser
	r      *csv.Reader
	index  map[string]int
	name   string
	logger logging.Logger
	row    int
}

// Next returns the next data row. A row the CSV reader cannot parse is
// returned with only Row set so that normalization rejects it as malformed.
func (it *iterator) Next() (paper.RawRecord, error) {
	if err := it.ctx.Err(); err != nil {
		return paper.RawRecord{}, err
	}

	fields, err := it.r.Read()
	if err == io.EOF {
		return paper.RawRecord{}, io.EOF
	}
	it.row++
	if err != nil {
		var pe *csv.ParseError
		if stderrors.As(err, &pe) {
			it.logger.Debug("unparseable row",
				logging.String("source", it.name),
				logging.Int(logging.FieldRow, it.row),
				logging.Err(err),
			)
			return paper.RawRecord{Row: it.row}, nil
		}
		return paper.RawRecord{}, err
	}

	get := func(col string) string {
		i, ok := it.index[col]
		if !ok || i >= len(fields) {
			return ""
		}
		return fields[i]
	}
	return paper.RawRecord{
		Row:         it.row,
		PaperID:     get(ColPaperID),
		SHA:         get(ColSHA),
		Title:       get(ColTitle),
		Abstract:    get(ColAbstract),
		Year:        get(ColYear),
		DOI:         get(ColDOI),
		Journal:     get(ColJournal),
		Source:      get(ColSource),
		Authors:     get(ColAuthors),
		IsCovid19:   get(ColIsCovid19),
		HasFullText: get(ColHasFullText),
	}, nil
}

func (it *iterator) Close() error {
	return it.rc.Close()
}

//Personal.AI order the ending
