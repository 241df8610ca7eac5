//go:build cgo

package sql

import (
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"
)

func isSQLiteDuplicateKey(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
