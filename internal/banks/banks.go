// Package banks resolves bank names to their database identifiers.
package banks

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/bankreviews-dev/bankreviews/internal/model"
)

const selectBanks = "SELECT id, name FROM banks"

// QueryError reports a failed read of the banks table.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("retrieving existing banks: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Directory is an immutable bank name to id lookup.
type Directory struct {
	banks  []model.BankRecord
	byName map[string]int64
}

// NewDirectory builds a Directory from bank records. When a name occurs
// more than once the later record wins.
func NewDirectory(records []model.BankRecord) *Directory {
	byName := make(map[string]int64, len(records))
	byID := make(map[int64]model.BankRecord, len(records))
	for _, b := range records {
		byName[b.Name] = b.ID
		byID[b.ID] = b
	}

	banks := make([]model.BankRecord, 0, len(byID))
	for _, b := range byID {
		banks = append(banks, b)
	}
	sort.Slice(banks, func(i, j int) bool { return banks[i].ID < banks[j].ID })

	return &Directory{banks: banks, byName: byName}
}

// Resolve reads every row of the banks table. Rows with a NULL name can
// never match a review and are left out.
func Resolve(ctx context.Context, q sqlx.QueryerContext) (*Directory, error) {
	rows, err := q.QueryxContext(ctx, selectBanks)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	defer rows.Close()

	var records []model.BankRecord
	for rows.Next() {
		var (
			id   int64
			name sql.NullString
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, &QueryError{Err: fmt.Errorf("scanning bank: %w", err)}
		}
		if !name.Valid {
			continue
		}
		records = append(records, model.BankRecord{ID: id, Name: name.String})
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Err: err}
	}
	return NewDirectory(records), nil
}

// Lookup returns the id of the bank with exactly this name.
func (d *Directory) Lookup(name string) (int64, bool) {
	id, ok := d.byName[name]
	return id, ok
}

// All returns the banks ordered by id.
func (d *Directory) All() []model.BankRecord {
	return d.banks
}

// Len returns the number of distinct bank names.
func (d *Directory) Len() int {
	return len(d.byName)
}
