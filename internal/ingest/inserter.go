package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankreviews-dev/bankreviews/internal/banks"
	"github.com/bankreviews-dev/bankreviews/internal/model"
	"github.com/bankreviews-dev/bankreviews/internal/rejects"
	"github.com/bankreviews-dev/bankreviews/internal/reviews"
	"github.com/bankreviews-dev/bankreviews/internal/store"
)

// BatchInserter submits insert records as one batch.
type BatchInserter interface {
	InsertReviews(ctx context.Context, recs []model.ReviewInsertRecord) (store.BatchResult, error)
}

// Inserter converts bank partitions to insert records and submits them.
type Inserter struct {
	dir    *banks.Directory
	db     BatchInserter
	logger *slog.Logger
	runID  string
	now    func() time.Time
}

// NewInserter creates an Inserter resolving banks through dir.
func NewInserter(dir *banks.Directory, db BatchInserter, logger *slog.Logger) *Inserter {
	return &Inserter{dir: dir, db: db, logger: logger, now: time.Now}
}

// InsertReport is the outcome of inserting one partition.
type InsertReport struct {
	File      string
	Bank      string
	Built     int
	Inserted  int
	Skipped   int // rows not built
	RowErrors []store.RowError
	Rejects   []rejects.Entry
}

// Insert builds records for the partition's rows and submits them as one
// batch. Rows that cannot be built are skipped with a warning; rows the
// database rejects are reported without stopping the batch. The error is
// set only when the batch could not be submitted.
func (ins *Inserter) Insert(ctx context.Context, file string, part reviews.BankPartition) (InsertReport, error) {
	rep := InsertReport{File: file, Bank: part.Bank}
	if len(part.Rows) == 0 {
		ins.logger.Info("No reviews to insert.", "bank", part.Bank)
		return rep, nil
	}

	records, sources, issues := BuildRecords(part.Rows, ins.dir)
	for _, issue := range issues {
		ins.logger.Warn("Warning: "+issue.Err.Error(), "file", file, "line", issue.Line)
		rep.Rejects = append(rep.Rejects, ins.reject(file, issue.Line, issue.Bank, issue.Reason(), issue.Err.Error(), issue.Review))
	}
	rep.Built = len(records)
	rep.Skipped = len(issues)

	if len(records) == 0 {
		ins.logger.Info("No valid review data to insert after processing.", "bank", part.Bank)
		return rep, nil
	}

	res, err := ins.db.InsertReviews(ctx, records)
	rep.Inserted = res.Inserted
	rep.RowErrors = res.Errors
	for _, rowErr := range res.Errors {
		src := sources[rowErr.Offset]
		detail := store.Describe(rowErr.Err)
		ins.logger.Warn("Batch error", "file", file, "line", src.Line, "offset", rowErr.Offset, "error", detail)
		rep.Rejects = append(rep.Rejects, ins.reject(file, src.Line, src.Bank, rejects.ReasonDatabase, detail, src.Review))
	}
	if err != nil {
		return rep, fmt.Errorf("inserting reviews for %s: %w", part.Bank, err)
	}

	ins.logger.Info(fmt.Sprintf("Inserted %d reviews.", res.Inserted), "bank", part.Bank, "batch_errors", len(res.Errors))
	return rep, nil
}

func (ins *Inserter) reject(file string, line int, bank, reason, detail, review string) rejects.Entry {
	return rejects.Entry{
		Timestamp: ins.now(),
		RunID:     ins.runID,
		File:      file,
		Line:      line,
		Bank:      bank,
		Reason:    reason,
		Detail:    detail,
		Review:    review,
	}
}
