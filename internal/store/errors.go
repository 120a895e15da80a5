package store

import (
	"errors"

	"github.com/lib/pq"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// unique_violation
const pqUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-constraint rejection
// from either supported engine. The unique index on lower(title) is the
// source of truth for title uniqueness; repositories translate this into a
// domain conflict instead of surfacing the raw driver error.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}

	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		code := sqErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT
	}

	return false
}
