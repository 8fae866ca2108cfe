// Package store runs the review load against a SQL database through one
// connection and one transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bankreviews-dev/bankreviews/internal/banks"
	"github.com/bankreviews-dev/bankreviews/internal/model"
)

// ErrTxDone is returned when the session's transaction already ended.
var ErrTxDone = errors.New("transaction already committed or rolled back")

// Session is an open connection with a transaction spanning a whole run.
type Session struct {
	db      *sqlx.DB
	tx      *sqlx.Tx
	dialect Dialect
	logger  *slog.Logger
	done    bool
}

// Open connects to the database, verifies the connection and begins the
// run transaction.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Session, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s database: %w", driver, err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return &Session{db: db, tx: tx, dialect: dialect, logger: logger}, nil
}

func (s *Session) logQuery(query string, start time.Time) {
	s.logger.Debug("SQL", "query", query, "elapsed", time.Since(start))
}

// ResolveBanks reads the bank directory inside the run transaction.
func (s *Session) ResolveBanks(ctx context.Context) (*banks.Directory, error) {
	defer s.logQuery("SELECT id, name FROM banks", time.Now())
	return banks.Resolve(ctx, s.tx)
}

// RowError is a database failure for one record of a batch.
type RowError struct {
	Offset int // index into the submitted records
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Offset, Describe(e.Err))
}

func (e RowError) Unwrap() error { return e.Err }

// BatchResult summarizes one batch insert.
type BatchResult struct {
	Inserted int
	Errors   []RowError
}

// InsertReviews inserts the records as one batch. Each row runs under a
// savepoint: a row the database rejects is rolled back alone and reported
// in BatchResult.Errors while the other rows go in. The returned error is
// set only when the batch could not run at all.
func (s *Session) InsertReviews(ctx context.Context, recs []model.ReviewInsertRecord) (BatchResult, error) {
	var res BatchResult
	if len(recs) == 0 {
		return res, nil
	}
	if s.done {
		return res, ErrTxDone
	}

	query := s.dialect.InsertReviewSQL()
	defer s.logQuery(query, time.Now())

	stmt, err := s.tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return res, fmt.Errorf("preparing review insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range recs {
		if _, err := s.tx.ExecContext(ctx, s.dialect.Savepoint()); err != nil {
			return res, fmt.Errorf("setting savepoint: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, rec); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Errors = append(res.Errors, RowError{Offset: i, Err: err})
			if _, err := s.tx.ExecContext(ctx, s.dialect.RollbackToSavepoint()); err != nil {
				return res, fmt.Errorf("rolling back to savepoint: %w", err)
			}
		} else {
			res.Inserted++
		}

		if err := s.release(ctx); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *Session) release(ctx context.Context) error {
	release := s.dialect.ReleaseSavepoint()
	if release == "" {
		return nil
	}
	if _, err := s.tx.ExecContext(ctx, release); err != nil {
		return fmt.Errorf("releasing savepoint: %w", err)
	}
	return nil
}

// Commit commits the run transaction.
func (s *Session) Commit() error {
	if s.done {
		return ErrTxDone
	}
	s.done = true
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Rollback rolls the run transaction back. It is a no-op once the
// transaction has ended.
func (s *Session) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil {
		return fmt.Errorf("rolling back: %w", err)
	}
	return nil
}

// Close rolls back an unfinished transaction and closes the connection.
func (s *Session) Close() error {
	rbErr := s.Rollback()
	if err := s.db.Close(); err != nil {
		return errors.Join(rbErr, fmt.Errorf("closing database: %w", err))
	}
	return rbErr
}
