package dialect

import (
	"context"
	"strings"
)

// Dialect names for supported databases.
const (
	SQLServer = "sqlserver"
	MySQL     = "mysql"
	Postgres  = "postgres"
	SQLite    = "sqlite"
)

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for the
// database drivers supported by repodb.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Normalize maps a database/sql driver name onto one of the dialect
// constants. Wrapped drivers such as "sqlite3" or "postgres+otel" keep
// their base dialect; "pgx" and "mssql" are treated as aliases.
func Normalize(name string) string {
	switch strings.ToLower(name) {
	case "pgx", "pq":
		return Postgres
	case "mssql":
		return SQLServer
	}
	for _, d := range []string{SQLServer, MySQL, Postgres, SQLite} {
		if strings.HasPrefix(strings.ToLower(name), d) {
			return d
		}
	}
	return name
}
