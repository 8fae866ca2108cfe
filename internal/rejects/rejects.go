// Package rejects keeps a CSV record of review rows a load skipped, so an
// operator can fix and reload them.
package rejects

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Reasons a row is rejected.
const (
	ReasonUnknownBank   = "unknown_bank"
	ReasonMissingColumn = "missing_column"
	ReasonConversion    = "conversion"
	ReasonDatabase      = "database"
)

// Entry is one rejected row.
type Entry struct {
	Timestamp time.Time
	RunID     string
	File      string
	Line      int
	Bank      string
	Reason    string
	Detail    string
	Review    string
}

// Header is the CSV header of a rejects file.
const Header = "timestamp,run_id,file,line,bank,reason,detail,review"

const (
	numFields    = 8
	colTimestamp = 0
	colRunID     = 1
	colFile      = 2
	colLine      = 3
	colBank      = 4
	colReason    = 5
	colDetail    = 6
	colReview    = 7
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colFile] = e.File
	row[colLine] = strconv.Itoa(e.Line)
	row[colBank] = e.Bank
	row[colReason] = e.Reason
	row[colDetail] = e.Detail
	row[colReview] = e.Review
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	line, err := strconv.Atoi(record[colLine])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing line %q: %w", record[colLine], err)
	}

	return Entry{
		Timestamp: ts,
		RunID:     record[colRunID],
		File:      record[colFile],
		Line:      line,
		Bank:      record[colBank],
		Reason:    record[colReason],
		Detail:    record[colDetail],
		Review:    record[colReview],
	}, nil
}

// Append writes entries to path, creating the file, its directory and the
// header if needed.
func Append(path string, entries []Entry) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating rejects dir: %w", err)
		}
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening rejects file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries of a rejects file.
// Returns an empty slice if the file does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening rejects file: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading rejects CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Count is the number of rejected rows sharing a reason and bank.
type Count struct {
	Reason string
	Bank   string
	N      int
}

// Summarize counts entries by reason and bank, largest first.
func Summarize(entries []Entry) []Count {
	idx := make(map[[2]string]int)
	var counts []Count
	for _, e := range entries {
		key := [2]string{e.Reason, e.Bank}
		i, ok := idx[key]
		if !ok {
			i = len(counts)
			idx[key] = i
			counts = append(counts, Count{Reason: e.Reason, Bank: e.Bank})
		}
		counts[i].N++
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].N != counts[j].N {
			return counts[i].N > counts[j].N
		}
		if counts[i].Reason != counts[j].Reason {
			return counts[i].Reason < counts[j].Reason
		}
		return counts[i].Bank < counts[j].Bank
	})
	return counts
}
