package statement

import (
	"github.com/mikependon/repodb/dialect"
)

// NewSQLite returns the SQLite builder. Truncation is a DELETE without a
// filter and identities are read from the last insert id.
func NewSQLite() *BaseBuilder {
	b := newBaseBuilder(dialect.SQLite)
	b.truncate = false
	b.merge = onConflictMerge("excluded")
	return b
}
