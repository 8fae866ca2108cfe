package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/sijms/go-ora/v2/network"
)

// Describe renders a database error with the driver's error code when the
// driver provides one.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Sprintf("code %s: %s", pqErr.Code, pqErr.Message)
	}

	var oraErr *network.OracleError
	if errors.As(err, &oraErr) {
		return fmt.Sprintf("code ORA-%05d: %s", oraErr.ErrCode, oraErr.ErrMsg)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return fmt.Sprintf("code %d: %s", liteErr.ExtendedCode, liteErr.Error())
	}

	return err.Error()
}
