package ingest

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankreviews-dev/bankreviews/internal/banks"
	"github.com/bankreviews-dev/bankreviews/internal/model"
	"github.com/bankreviews-dev/bankreviews/internal/reviews"
)

func newRunner(connect Connector) (*Runner, *bytesLog) {
	logger, buf := newLogger()
	return &Runner{
		Connect:  connect,
		Registry: reviews.DefaultRegistry(),
		Logger:   logger,
		RunID:    "run-test",
		Now:      func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) },
	}, &bytesLog{buf}
}

func TestRun_BankAAndBankB(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "reviews.csv", csvHeader+
		"Great,5,2024-01-01,Bank A,Google Play,great,positive,positive,praise\n"+
		"Bad,3,2024-01-02,Bank B,Google Play,bad,negative,negative,complaint\n")

	fake := &fakeSession{dir: banks.NewDirectory([]model.BankRecord{{ID: 1, Name: "Bank A"}})}
	r, log := newRunner(fake.connector())

	sum, err := r.Run(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, sum.State)
	assert.Equal(t, 1, sum.Inserted)
	assert.Equal(t, 1, sum.Skipped)

	require.Len(t, fake.committed, 1)
	assert.Equal(t, int64(1), fake.committed[0].BankID)
	assert.Equal(t, "Great", fake.committed[0].Review)
	assert.Equal(t, 5, fake.committed[0].Rating)

	assert.Equal(t, 1, log.count("not found in the database's bank ID map"))
	assert.Equal(t, 1, fake.commits)
	assert.Equal(t, 0, fake.rollbacks)
	assert.Equal(t, 1, fake.closes)

	require.Len(t, sum.Rejects, 1)
	assert.Equal(t, "run-test", sum.Rejects[0].RunID)
	assert.Equal(t, "Bank B", sum.Rejects[0].Bank)
}

func TestRun_MissingFileStillCommits(t *testing.T) {
	fake := &fakeSession{dir: testDirectory()}
	r, log := newRunner(fake.connector())

	missing := filepath.Join(t.TempDir(), "nope.csv")
	sum, err := r.Run(context.Background(), []string{missing})
	require.NoError(t, err)

	assert.Equal(t, StateCommitted, sum.State)
	assert.Equal(t, 0, sum.Inserted)
	require.Len(t, sum.Files, 1)
	assert.True(t, errors.Is(sum.Files[0].Err, fs.ErrNotExist))
	assert.Equal(t, 1, log.count("CSV file not found"))
	assert.Equal(t, 1, fake.commits)
	assert.Equal(t, 1, fake.closes)
}

func TestRun_NoFiles(t *testing.T) {
	fake := &fakeSession{dir: testDirectory()}
	r, _ := newRunner(fake.connector())

	sum, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, sum.State)
	assert.Equal(t, 2, sum.Banks)
}

func TestRun_ConnectFailure(t *testing.T) {
	r, log := newRunner(func(ctx context.Context) (Session, error) {
		return nil, errors.New("listener refused the connection")
	})

	sum, err := r.Run(context.Background(), []string{"a.csv"})
	require.Error(t, err)
	assert.Equal(t, StateFailedConnect, sum.State)
	assert.Empty(t, sum.Files)
	assert.Equal(t, 1, log.count("Error connecting to database"))
}

func TestRun_ResolveFailure(t *testing.T) {
	fake := &fakeSession{resolveErr: &banks.QueryError{Err: errors.New("table or view does not exist")}}
	r, _ := newRunner(fake.connector())

	dir := t.TempDir()
	path := writeFile(t, dir, "reviews.csv", csvHeader+"Great,5,2024-01-01,Bank A,,,,,\n")

	sum, err := r.Run(context.Background(), []string{path})
	require.Error(t, err)
	var qe *banks.QueryError
	assert.ErrorAs(t, err, &qe)

	assert.Equal(t, StateFailedResolve, sum.State)
	assert.Empty(t, sum.Files, "no file is processed")
	assert.Equal(t, 0, fake.batches)
	assert.Equal(t, 1, fake.rollbacks)
	assert.Equal(t, 0, fake.commits)
	assert.Equal(t, 1, fake.closes)
}

func TestRun_CommitFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "reviews.csv", csvHeader+"Great,5,2024-01-01,Bank A,,,,,\n")

	fake := &fakeSession{dir: testDirectory(), commitErr: errors.New("ORA-02091: transaction rolled back")}
	r, _ := newRunner(fake.connector())

	sum, err := r.Run(context.Background(), []string{path})
	require.Error(t, err)
	assert.Equal(t, StateRolledBack, sum.State)
	assert.Equal(t, 1, fake.rollbacks)
	assert.Empty(t, fake.committed)
	assert.Equal(t, 1, fake.closes)
}

func TestRun_BadFilesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	malformed := writeFile(t, dir, "malformed.csv", "review,bank\n\"open quote,Bank A\n")
	noBank := writeFile(t, dir, "nobank.csv", "review,rating\nGood,5\n")
	good := writeFile(t, dir, "good.csv", csvHeader+"Great,5,2024-01-01,Bank A,,,,,\n")

	fake := &fakeSession{dir: testDirectory()}
	r, log := newRunner(fake.connector())

	sum, err := r.Run(context.Background(), []string{malformed, noBank, good})
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, sum.State)
	require.Len(t, sum.Files, 3)

	var pe *reviews.ParseError
	assert.ErrorAs(t, sum.Files[0].Err, &pe)
	assert.ErrorIs(t, sum.Files[1].Err, reviews.ErrNoBankColumn)
	assert.NoError(t, sum.Files[2].Err)

	assert.Equal(t, 1, sum.Inserted)
	assert.Len(t, fake.committed, 1)
	assert.Equal(t, 1, log.count("Warning: Column 'bank' not found"))
}

func TestRun_MissingColumnsSkipRows(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "partial.csv", "review,rating,bank\nGood,5,Bank A\nFine,4,Bank A\n")

	fake := &fakeSession{dir: testDirectory()}
	r, log := newRunner(fake.connector())

	sum, err := r.Run(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, sum.State)
	assert.Equal(t, 0, sum.Inserted)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 6, log.count("This might cause issues."))
	assert.Equal(t, 2, log.count("Skipping row due to missing column"))
}

func TestRun_PanicInFileIsRecovered(t *testing.T) {
	dir := t.TempDir()
	boom := writeFile(t, dir, "boom.csv", csvHeader+"Great,5,2024-01-01,Dashen Bank,,,,,\n")
	good := writeFile(t, dir, "good.csv", csvHeader+"Great,5,2024-01-01,Bank A,,,,,\n")

	fake := &fakeSession{dir: testDirectory(), panicBank: 2}
	r, _ := newRunner(fake.connector())

	sum, err := r.Run(context.Background(), []string{boom, good})
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, sum.State)
	require.Len(t, sum.Files, 2)
	assert.ErrorContains(t, sum.Files[0].Err, "driver exploded")
	assert.Len(t, fake.committed, 1)
}

func TestRun_BatchFailureSkipsRestOfFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "two-banks.csv", csvHeader+
		"one,5,2024-01-01,Bank A,,,,,\n"+
		"two,5,2024-01-01,Dashen Bank,,,,,\n")

	fake := &fakeSession{dir: testDirectory(), insertErr: errors.New("lost connection")}
	r, _ := newRunner(fake.connector())

	sum, err := r.Run(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.batches, "second partition is not attempted")
	assert.ErrorContains(t, sum.Files[0].Err, "lost connection")
}

func TestRun_CancelledContextRollsBack(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "reviews.csv", csvHeader+"Great,5,2024-01-01,Bank A,,,,,\n")

	fake := &fakeSession{dir: testDirectory()}
	r, _ := newRunner(fake.connector())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := r.Run(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateRolledBack, sum.State)
	assert.Equal(t, 1, fake.rollbacks)
	assert.Equal(t, 0, fake.commits)
	assert.Equal(t, 1, fake.closes)
}
