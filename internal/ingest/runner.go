// Package ingest loads bank review files into the reviews table in a
// single transaction.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bankreviews-dev/bankreviews/internal/banks"
	"github.com/bankreviews-dev/bankreviews/internal/rejects"
	"github.com/bankreviews-dev/bankreviews/internal/reviews"
	"github.com/bankreviews-dev/bankreviews/internal/store"
)

// Session is the database side of a run: one connection holding one
// transaction.
type Session interface {
	BatchInserter
	ResolveBanks(ctx context.Context) (*banks.Directory, error)
	Commit() error
	Rollback() error
	Close() error
}

// Connector opens a Session.
type Connector func(ctx context.Context) (Session, error)

// StoreConnector returns a Connector opening store sessions.
func StoreConnector(driver, dsn string, logger *slog.Logger) Connector {
	return func(ctx context.Context) (Session, error) {
		s, err := store.Open(ctx, driver, dsn, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// State is the terminal state of a run.
type State string

const (
	StateCommitted     State = "committed"
	StateFailedConnect State = "failed_connect"
	StateFailedResolve State = "failed_resolve"
	StateRolledBack    State = "rolled_back"
)

// FileReport is the outcome of one input file.
type FileReport struct {
	Path    string
	Rows    int
	Err     error // set when the file was skipped
	Inserts []InsertReport
}

// Summary is the outcome of a run.
type Summary struct {
	RunID    string
	State    State
	Banks    int
	Files    []FileReport
	Inserted int
	Skipped  int
	Failed   int // rows rejected by the database
	Rejects  []rejects.Entry
}

func (s *Summary) add(fr FileReport) {
	s.Files = append(s.Files, fr)
	for _, rep := range fr.Inserts {
		s.Inserted += rep.Inserted
		s.Skipped += rep.Skipped
		s.Failed += len(rep.RowErrors)
		s.Rejects = append(s.Rejects, rep.Rejects...)
	}
}

// Runner drives one load: connect, resolve banks, insert every file, commit.
type Runner struct {
	Connect  Connector
	Registry *reviews.Registry
	Logger   *slog.Logger
	RunID    string
	Now      func() time.Time
}

// Run loads files in order inside one transaction. A file that cannot be
// loaded or processed is skipped. Connection, bank resolution and commit
// failures are fatal: the transaction is rolled back and the error
// returned. The session is always closed.
func (r *Runner) Run(ctx context.Context, files []string) (Summary, error) {
	sum := Summary{RunID: r.RunID}
	logger := r.Logger.With("run_id", r.RunID)

	sess, err := r.Connect(ctx)
	if err != nil {
		sum.State = StateFailedConnect
		logger.Error("Error connecting to database", "error", store.Describe(err))
		return sum, fmt.Errorf("connecting: %w", err)
	}
	logger.Info("Connected to the database successfully!")
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Error("Closing database connection", "error", err)
		}
		logger.Info("Database connection closed.")
	}()

	dir, err := sess.ResolveBanks(ctx)
	if err != nil {
		sum.State = StateFailedResolve
		logger.Error("Error retrieving existing banks", "error", store.Describe(err))
		r.rollback(logger, sess)
		return sum, err
	}
	sum.Banks = dir.Len()
	logger.Info(fmt.Sprintf("Retrieved %d existing banks from the database.", dir.Len()))

	ins := NewInserter(dir, sess, logger)
	ins.runID = r.RunID
	if r.Now != nil {
		ins.now = r.Now
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			sum.State = StateRolledBack
			logger.Error("Run interrupted", "error", err)
			r.rollback(logger, sess)
			return sum, err
		}
		sum.add(r.processFile(ctx, logger, ins, path))
	}

	if err := sess.Commit(); err != nil {
		sum.State = StateRolledBack
		logger.Error("Database error during main process", "error", store.Describe(err))
		r.rollback(logger, sess)
		return sum, err
	}
	sum.State = StateCommitted
	logger.Info("All data insertion operations completed and committed!",
		"inserted", sum.Inserted, "skipped", sum.Skipped, "failed", sum.Failed)
	return sum, nil
}

func (r *Runner) rollback(logger *slog.Logger, sess Session) {
	if err := sess.Rollback(); err != nil {
		logger.Error("Rollback failed", "error", err)
	}
}

// processFile loads one file and inserts it partition by partition. Any
// failure, including a panic, ends the file but not the run.
func (r *Runner) processFile(ctx context.Context, logger *slog.Logger, ins *Inserter, path string) (fr FileReport) {
	fr.Path = path
	logger = logger.With("file", path)
	defer func() {
		if p := recover(); p != nil {
			fr.Err = fmt.Errorf("unexpected error: %v", p)
			logger.Error(fmt.Sprintf("Error processing CSV '%s': %v", path, fr.Err))
		}
	}()

	logger.Info(fmt.Sprintf("--- Processing reviews from: %s ---", path))
	tbl, err := r.Registry.LoadFile(path)
	if err != nil {
		fr.Err = err
		if errors.Is(err, fs.ErrNotExist) {
			logger.Error(fmt.Sprintf("Error: CSV file not found at '%s'. Skipping this file.", path))
		} else {
			logger.Error(fmt.Sprintf("Error processing CSV '%s': %v", path, err))
		}
		return fr
	}
	fr.Rows = len(tbl.Rows)
	logger.Info(fmt.Sprintf("Loaded %d reviews from '%s'.", len(tbl.Rows), path))

	for _, col := range tbl.MissingColumns() {
		logger.Warn(fmt.Sprintf("Warning: Column '%s' not found in '%s'. This might cause issues.", col, path))
	}

	parts, err := tbl.Partitions()
	if err != nil {
		fr.Err = err
		logger.Error(fmt.Sprintf("Error processing CSV '%s': %v", path, err))
		return fr
	}

	base := filepath.Base(path)
	for _, part := range parts {
		logger.Info(fmt.Sprintf("--- Inserting reviews for: %s from %s ---", part.Bank, base))
		rep, err := ins.Insert(ctx, path, part)
		fr.Inserts = append(fr.Inserts, rep)
		if err != nil {
			fr.Err = err
			logger.Error(fmt.Sprintf("Error processing CSV '%s': %v", path, store.Describe(err)))
			return fr
		}
	}
	return fr
}
