package model

// Column names of a review file.
const (
	ColReview          = "review"
	ColRating          = "rating"
	ColDate            = "date"
	ColBank            = "bank"
	ColSource          = "source"
	ColProcessedReview = "processed_review"
	ColSentiment       = "sentiment"
	ColVaderSentiment  = "vader_sentiment"
	ColLabel           = "label"
)

// Columns lists every column a review file is expected to carry.
var Columns = []string{
	ColReview,
	ColRating,
	ColDate,
	ColBank,
	ColSource,
	ColProcessedReview,
	ColSentiment,
	ColVaderSentiment,
	ColLabel,
}

// RawReviewRow is one review row exactly as read from a file.
// A nil field means the cell was null (empty or an NA marker).
type RawReviewRow struct {
	Line            int // 1-based source line the row starts on (sheet row for workbooks); the header is line 1
	Review          *string
	Rating          *string
	Date            *string
	Bank            *string
	Source          *string
	ProcessedReview *string
	Sentiment       *string
	VaderSentiment  *string
	Label           *string
}

// NormalizedReviewRow is a RawReviewRow after column cleaning: string
// columns are never null and Rating is an integer.
type NormalizedReviewRow struct {
	Line            int
	Review          string
	Rating          int
	Date            string
	Bank            string
	Source          string
	ProcessedReview string
	Sentiment       string
	VaderSentiment  string
	Label           string

	// Present records which columns the source file had.
	Present ColumnSet
}

// ReviewInsertRecord is the parameter set for one row of the reviews table.
type ReviewInsertRecord struct {
	Review          string `db:"review"`
	Rating          int    `db:"rating"`
	ReviewDate      string `db:"review_date"` // YYYY-MM-DD, parsed by the database
	BankID          int64  `db:"bank_id"`
	Source          string `db:"source"`
	ProcessedReview string `db:"processed_review"`
	Sentiment       string `db:"sentiment"`
	VaderSentiment  string `db:"vader_sentiment"`
	Label           string `db:"label"`
}

// ColumnSet is a set of column names.
type ColumnSet map[string]bool

// NewColumnSet builds a set from a header row.
func NewColumnSet(cols ...string) ColumnSet {
	s := make(ColumnSet, len(cols))
	for _, c := range cols {
		s[c] = true
	}
	return s
}

// Has reports whether col is in the set.
func (s ColumnSet) Has(col string) bool {
	return s[col]
}

// Missing returns the expected columns absent from the set, in Columns order.
func (s ColumnSet) Missing() []string {
	var missing []string
	for _, c := range Columns {
		if !s[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
