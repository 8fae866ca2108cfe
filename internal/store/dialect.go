package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	// Load oracle driver; postgres and sqlite are loaded in describe.go
	_ "github.com/sijms/go-ora/v2"
)

// Driver names accepted in configuration.
const (
	DriverOracle   = "oracle"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

func init() {
	// go-ora binds :name placeholders.
	sqlx.BindDriver(DriverOracle, sqlx.NAMED)
}

const savepointName = "review_row"

// Dialect holds the SQL differences between supported databases.
type Dialect struct {
	Driver string
	// DateExpr converts the :review_date parameter (YYYY-MM-DD) to a date.
	DateExpr string
	// Release reports whether savepoints can be released.
	Release bool
}

// sqliteDate yields NULL unless the parameter is exactly a valid
// YYYY-MM-DD date; date() alone also accepts times, "now" and julian days.
const sqliteDate = `CASE WHEN :review_date GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]'` +
	` AND date(:review_date) = :review_date THEN date(:review_date) END`

var dialects = map[string]Dialect{
	// FX makes Oracle match the format exactly.
	DriverOracle:   {Driver: DriverOracle, DateExpr: "TO_DATE(:review_date, 'FXYYYY-MM-DD')"},
	DriverPostgres: {Driver: DriverPostgres, DateExpr: "TO_DATE(:review_date, 'YYYY-MM-DD')", Release: true},
	DriverSQLite:   {Driver: DriverSQLite, DateExpr: sqliteDate, Release: true},
}

// Drivers returns the supported driver names, sorted.
func Drivers() []string {
	names := make([]string, 0, len(dialects))
	for k := range dialects {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DialectFor returns the dialect of a driver.
func DialectFor(driver string) (Dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported database driver %q (supported: %s)", driver, strings.Join(Drivers(), ", "))
	}
	return d, nil
}

// InsertReviewSQL returns the named insert statement for one review.
func (d Dialect) InsertReviewSQL() string {
	return `INSERT INTO reviews (review, rating, review_date, bank_id, source, processed_review, sentiment, vader_sentiment, label)
		VALUES (:review, :rating, ` + d.DateExpr + `, :bank_id, :source, :processed_review, :sentiment, :vader_sentiment, :label)`
}

// Savepoint returns the statement marking the start of a row.
func (d Dialect) Savepoint() string { return "SAVEPOINT " + savepointName }

// RollbackToSavepoint returns the statement undoing a failed row.
func (d Dialect) RollbackToSavepoint() string { return "ROLLBACK TO SAVEPOINT " + savepointName }

// ReleaseSavepoint returns the statement ending a row, or "" when the
// database has none.
func (d Dialect) ReleaseSavepoint() string {
	if !d.Release {
		return ""
	}
	return "RELEASE SAVEPOINT " + savepointName
}
