package repository

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrStaleState is returned by compare-and-set updates whose precondition no longer holds
var ErrStaleState = errors.New("record state changed")

// ErrBallotContention is returned when a ballot insert keeps losing its ordinal race
var ErrBallotContention = errors.New("ballot ordinal contention")

// isUniqueViolation reports whether err is a SQLite UNIQUE/PRIMARY KEY constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
