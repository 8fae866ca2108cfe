package reviews

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bankreviews-dev/bankreviews/internal/model"
)

// nullMarkers are cell values read as null, matching the NA tokens of the
// pandas CSV reader the review exports are produced with.
var nullMarkers = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsNull reports whether a cell value is a null marker.
func IsNull(v string) bool {
	return nullMarkers[v]
}

var (
	maxRating = decimal.NewFromInt(math.MaxInt32)
	minRating = decimal.NewFromInt(math.MinInt32)
)

// ParseRating converts a rating cell to an integer. Numbers are truncated
// toward zero; nulls, unparsable values and values outside the int32 range
// become 0.
func ParseRating(v *string) int {
	if v == nil {
		return 0
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*v))
	if err != nil {
		return 0
	}
	if d.GreaterThan(maxRating) || d.LessThan(minRating) {
		return 0
	}
	return int(d.IntPart())
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// Normalize cleans one raw row: string columns become non-null strings and
// the rating becomes an integer. The date is passed through untouched.
func Normalize(raw model.RawReviewRow, cols model.ColumnSet) model.NormalizedReviewRow {
	return model.NormalizedReviewRow{
		Line:            raw.Line,
		Review:          str(raw.Review),
		Rating:          ParseRating(raw.Rating),
		Date:            str(raw.Date),
		Bank:            str(raw.Bank),
		Source:          str(raw.Source),
		ProcessedReview: str(raw.ProcessedReview),
		Sentiment:       str(raw.Sentiment),
		VaderSentiment:  str(raw.VaderSentiment),
		Label:           str(raw.Label),
		Present:         cols,
	}
}

// Normalize cleans every row of the table.
func (t *Table) Normalize() []model.NormalizedReviewRow {
	rows := make([]model.NormalizedReviewRow, len(t.Rows))
	for i, raw := range t.Rows {
		rows[i] = Normalize(raw, t.Columns)
	}
	return rows
}

// BankPartition holds the rows of one bank.
type BankPartition struct {
	Bank string
	Rows []model.NormalizedReviewRow
}

// Partition groups rows by bank name in order of first appearance. Names
// match exactly; rows with an empty bank belong to no partition.
func Partition(rows []model.NormalizedReviewRow) []BankPartition {
	var parts []BankPartition
	index := make(map[string]int)
	for _, row := range rows {
		if row.Bank == "" {
			continue
		}
		i, ok := index[row.Bank]
		if !ok {
			i = len(parts)
			index[row.Bank] = i
			parts = append(parts, BankPartition{Bank: row.Bank})
		}
		parts[i].Rows = append(parts[i].Rows, row)
	}
	return parts
}

// Partitions normalizes the table and groups its rows by bank. It fails
// with ErrNoBankColumn when the file has no bank column.
func (t *Table) Partitions() ([]BankPartition, error) {
	if !t.Columns.Has(model.ColBank) {
		return nil, ErrNoBankColumn
	}
	return Partition(t.Normalize()), nil
}
