package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/bankreviews-dev/bankreviews/internal/banks"
	"github.com/bankreviews-dev/bankreviews/internal/model"
	"github.com/bankreviews-dev/bankreviews/internal/rejects"
)

const previewLen = 50

// ErrMissingColumn is wrapped by errors for rows whose file lacks a column
// the reviews table needs.
var ErrMissingColumn = errors.New("missing column")

// UnknownBankError reports a row whose bank is not in the directory.
type UnknownBankError struct {
	Bank   string
	Review string
}

func (e *UnknownBankError) Error() string {
	return fmt.Sprintf("Bank '%s' not found in the database's bank ID map, skipping review. Review text: '%s...'", e.Bank, Preview(e.Review))
}

// MissingColumnError reports a row that cannot be built because its file
// lacks a column.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("Skipping row due to missing column: '%s'", e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// ConversionError reports a value that cannot be converted to its column
// type.
type ConversionError struct {
	Column string
	Value  string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("Skipping row due to data type conversion error: %s '%s': %v", e.Column, e.Value, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Preview returns at most the first 50 characters of a review.
func Preview(review string) string {
	r := []rune(review)
	if len(r) > previewLen {
		r = r[:previewLen]
	}
	return string(r)
}

// BuildRecord turns a normalized row into an insert record. The bank must
// resolve through dir, and the file must have had every column.
func BuildRecord(row model.NormalizedReviewRow, dir *banks.Directory) (model.ReviewInsertRecord, error) {
	bankID, ok := dir.Lookup(row.Bank)
	if !ok {
		if !row.Present.Has(model.ColReview) {
			return model.ReviewInsertRecord{}, &MissingColumnError{Column: model.ColReview}
		}
		return model.ReviewInsertRecord{}, &UnknownBankError{Bank: row.Bank, Review: row.Review}
	}

	for _, col := range model.Columns {
		if !row.Present.Has(col) {
			return model.ReviewInsertRecord{}, &MissingColumnError{Column: col}
		}
	}

	// The database parses the date; only YYYY-MM-DD may reach it.
	if _, err := time.Parse(time.DateOnly, row.Date); err != nil {
		return model.ReviewInsertRecord{}, &ConversionError{Column: model.ColDate, Value: row.Date, Err: errors.New("want YYYY-MM-DD")}
	}

	return model.ReviewInsertRecord{
		Review:          row.Review,
		Rating:          row.Rating,
		ReviewDate:      row.Date,
		BankID:          bankID,
		Source:          row.Source,
		ProcessedReview: row.ProcessedReview,
		Sentiment:       row.Sentiment,
		VaderSentiment:  row.VaderSentiment,
		Label:           row.Label,
	}, nil
}

// RowIssue is a row skipped while building records.
type RowIssue struct {
	Line   int
	Bank   string
	Review string
	Err    error
}

// Reason classifies the issue for the rejects file.
func (i RowIssue) Reason() string {
	if errors.Is(i.Err, ErrMissingColumn) {
		return rejects.ReasonMissingColumn
	}
	var ce *ConversionError
	if errors.As(i.Err, &ce) {
		return rejects.ReasonConversion
	}
	return rejects.ReasonUnknownBank
}

// BuildRecords builds records for every row it can. Rows it cannot build
// are returned as issues; sources[i] is the row records[i] came from.
func BuildRecords(rows []model.NormalizedReviewRow, dir *banks.Directory) (records []model.ReviewInsertRecord, sources []model.NormalizedReviewRow, issues []RowIssue) {
	for _, row := range rows {
		rec, err := BuildRecord(row, dir)
		if err != nil {
			issues = append(issues, RowIssue{Line: row.Line, Bank: row.Bank, Review: row.Review, Err: err})
			continue
		}
		records = append(records, rec)
		sources = append(sources, row)
	}
	return records, sources, issues
}
