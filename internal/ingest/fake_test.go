package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bankreviews-dev/bankreviews/internal/banks"
	"github.com/bankreviews-dev/bankreviews/internal/model"
	"github.com/bankreviews-dev/bankreviews/internal/store"
)

// fakeSession stages inserts in memory and publishes them on commit.
type fakeSession struct {
	dir        *banks.Directory
	resolveErr error
	insertErr  error
	commitErr  error
	failBankID int64 // rows for this bank fail at the database
	panicBank  int64 // inserting rows for this bank panics

	staged    []model.ReviewInsertRecord
	committed []model.ReviewInsertRecord
	batches   int
	commits   int
	rollbacks int
	closes    int
	resolves  int
}

func (f *fakeSession) ResolveBanks(ctx context.Context) (*banks.Directory, error) {
	f.resolves++
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.dir, nil
}

func (f *fakeSession) InsertReviews(ctx context.Context, recs []model.ReviewInsertRecord) (store.BatchResult, error) {
	f.batches++
	var res store.BatchResult
	if f.insertErr != nil {
		return res, f.insertErr
	}
	for i, rec := range recs {
		if f.panicBank != 0 && rec.BankID == f.panicBank {
			panic("driver exploded")
		}
		if f.failBankID != 0 && rec.BankID == f.failBankID {
			res.Errors = append(res.Errors, store.RowError{Offset: i, Err: errors.New("constraint violated")})
			continue
		}
		f.staged = append(f.staged, rec)
		res.Inserted++
	}
	return res, nil
}

func (f *fakeSession) Commit() error {
	f.commits++
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = append(f.committed, f.staged...)
	f.staged = nil
	return nil
}

func (f *fakeSession) Rollback() error {
	f.rollbacks++
	f.staged = nil
	return nil
}

func (f *fakeSession) Close() error {
	f.closes++
	return nil
}

func (f *fakeSession) connector() Connector {
	return func(ctx context.Context) (Session, error) { return f, nil }
}

func newLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const csvHeader = "review,rating,date,bank,source,processed_review,sentiment,vader_sentiment,label\n"

// bytesLog counts occurrences of text in captured log output.
type bytesLog struct {
	buf *bytes.Buffer
}

func (l *bytesLog) count(substr string) int {
	return bytes.Count(l.buf.Bytes(), []byte(substr))
}
