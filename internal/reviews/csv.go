package reviews

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/bankreviews-dev/bankreviews/internal/model"
)

// CSVParser parses comma separated review exports with a header row.
type CSVParser struct{}

// Format returns the parser name.
func (p *CSVParser) Format() string { return "csv" }

// Parse reads a review CSV. Short rows are padded with nulls; rows with
// more fields than the header are malformed.
func (p *CSVParser) Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	return decodeTable(p.Format(), &paddedReader{src: cr, format: p.Format()})
}

// csvRecord is the decoding target for one review row.
type csvRecord struct {
	Review          string `csv:"review"`
	Rating          string `csv:"rating"`
	Date            string `csv:"date"`
	Bank            string `csv:"bank"`
	Source          string `csv:"source"`
	ProcessedReview string `csv:"processed_review"`
	Sentiment       string `csv:"sentiment"`
	VaderSentiment  string `csv:"vader_sentiment"`
	Label           string `csv:"label"`
}

// recordReader is the row source csvutil decodes from.
type recordReader interface {
	Read() ([]string, error)
}

// linePositioner reports the source line a field of the last record
// started on. csv.Reader implements it.
type linePositioner interface {
	FieldPos(field int) (line, column int)
}

// paddedReader makes every record as wide as the header and tracks the
// source line of the last record read.
type paddedReader struct {
	src    recordReader
	format string
	width  int
	count  int
	line   int
}

func (p *paddedReader) Read() ([]string, error) {
	rec, err := p.src.Read()
	if err != nil {
		return nil, err
	}
	p.count++
	p.line = p.count
	if lp, ok := p.src.(linePositioner); ok && len(rec) > 0 {
		p.line, _ = lp.FieldPos(0)
	}

	if p.width == 0 {
		if len(rec) > 0 {
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
		}
		p.width = len(rec)
		return rec, nil
	}

	if len(rec) > p.width {
		return nil, &ParseError{
			Format: p.format,
			Row:    p.line,
			Err:    fmt.Errorf("expected %d fields, saw %d", p.width, len(rec)),
		}
	}
	for len(rec) < p.width {
		rec = append(rec, "")
	}
	return rec, nil
}

func decodeTable(format string, pr *paddedReader) (*Table, error) {
	dec, err := csvutil.NewDecoder(pr)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Format: format, Err: errors.New("no columns to parse from file")}
		}
		return nil, wrapParseError(format, pr.line, err)
	}

	t := &Table{Columns: model.NewColumnSet(dec.Header()...)}
	for {
		var rec csvRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapParseError(format, pr.line, err)
		}
		t.Rows = append(t.Rows, rec.raw(pr.line, t.Columns))
	}
	return t, nil
}

func wrapParseError(format string, row int, err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}
	var cpe *csv.ParseError
	if errors.As(err, &cpe) {
		return &ParseError{Format: format, Row: cpe.StartLine, Err: cpe.Err}
	}
	return &ParseError{Format: format, Row: row, Err: err}
}

func (rec csvRecord) raw(row int, cols model.ColumnSet) model.RawReviewRow {
	return model.RawReviewRow{
		Line:            row,
		Review:          cell(cols, model.ColReview, rec.Review),
		Rating:          cell(cols, model.ColRating, rec.Rating),
		Date:            cell(cols, model.ColDate, rec.Date),
		Bank:            cell(cols, model.ColBank, rec.Bank),
		Source:          cell(cols, model.ColSource, rec.Source),
		ProcessedReview: cell(cols, model.ColProcessedReview, rec.ProcessedReview),
		Sentiment:       cell(cols, model.ColSentiment, rec.Sentiment),
		VaderSentiment:  cell(cols, model.ColVaderSentiment, rec.VaderSentiment),
		Label:           cell(cols, model.ColLabel, rec.Label),
	}
}

// cell returns nil for absent columns and null markers.
func cell(cols model.ColumnSet, col, value string) *string {
	if !cols.Has(col) || IsNull(value) {
		return nil
	}
	return &value
}
