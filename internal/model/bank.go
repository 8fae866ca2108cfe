package model

// BankRecord is a row of the banks reference table.
type BankRecord struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}
