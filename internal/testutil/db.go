// Package testutil provides database fixtures for tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	// Load sqlite driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/bankreviews-dev/bankreviews/internal/model"
)

// Schema is a SQLite rendition of the banks and reviews tables. The
// constraints on reviews give tests a way to make the database reject rows.
const Schema = `
CREATE TABLE banks (
	id	INTEGER PRIMARY KEY,
	name	TEXT
);
CREATE TABLE reviews (
	id			INTEGER PRIMARY KEY AUTOINCREMENT,
	review			TEXT,
	rating			INTEGER CHECK (rating BETWEEN 0 AND 5),
	review_date		DATE NOT NULL,
	bank_id			INTEGER NOT NULL REFERENCES banks(id),
	source			TEXT,
	processed_review	TEXT,
	sentiment		TEXT,
	vader_sentiment		TEXT,
	label			TEXT
);`

// SQLiteDSN returns the DSN of a fresh database file under t.TempDir().
// The file holds the schema but no rows.
func SQLiteDSN(t *testing.T) string {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "reviews.db") + "?_foreign_keys=on"

	db, err := sqlx.Connect("sqlite3", dsn)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(Schema)
	require.NoError(t, err)
	return dsn
}

// OpenSQLite opens a fresh database with the schema, closed at cleanup.
func OpenSQLite(t *testing.T) (*sqlx.DB, string) {
	t.Helper()
	dsn := SQLiteDSN(t)
	db, err := sqlx.Connect("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, dsn
}

// SeedBanks inserts bank rows.
func SeedBanks(t *testing.T, db *sqlx.DB, records ...model.BankRecord) {
	t.Helper()
	for _, b := range records {
		_, err := db.NamedExec("INSERT INTO banks (id, name) VALUES (:id, :name)", b)
		require.NoError(t, err)
	}
}

// CountReviews returns the number of rows in the reviews table.
func CountReviews(t *testing.T, db *sqlx.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, "SELECT count(*) FROM reviews"))
	return n
}

// StoredReview is a reviews row as read back by tests.
type StoredReview struct {
	Review     string `db:"review"`
	Rating     int    `db:"rating"`
	ReviewDate string `db:"review_date"`
	BankID     int64  `db:"bank_id"`
	Source     string `db:"source"`
	Label      string `db:"label"`
}

// Reviews returns the stored reviews in insertion order.
func Reviews(t *testing.T, db *sqlx.DB) []StoredReview {
	t.Helper()
	var out []StoredReview
	require.NoError(t, db.Select(&out, "SELECT review, rating, CAST(review_date AS TEXT) AS review_date, bank_id, source, label FROM reviews ORDER BY id"))
	return out
}
