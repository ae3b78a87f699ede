// Package sql implements dialect.Driver on top of database/sql.
//
// The driver is a thin adapter: connection pooling, transactions and the wire
// protocol stay with database/sql and the registered provider drivers
// (go-sql-driver/mysql, lib/pq, modernc.org/sqlite, go-mssqldb).
//
// # Opening a driver
//
//	import _ "modernc.org/sqlite"
//
//	drv, err := sql.Open("sqlite", "file:app.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// The dialect is derived from the database/sql driver name, so "sqlite3",
// "pgx" and "postgres" all resolve to a known dialect.
//
// # Session variables
//
// Variables attached to a context are set before every statement and reset
// before the connection returns to the pool:
//
//	ctx = sql.WithVar(ctx, "app.tenant", "acme")
//
// # Statistics
//
// StatsDriver times every statement and keeps the counters per operation.
// repodb names the operation of each statement with WithOperation; the
// rest are counted under Unattributed:
//
//	drv := sql.NewStatsDriver(base, sql.WithSlowThreshold(200*time.Millisecond), sql.WithSlowLog(logger))
//	fmt.Println(drv.Stats()["QueryAll"].Avg())
//
// # Constraint errors
//
// IsUniqueConstraintError, IsForeignKeyConstraintError, IsCheckConstraintError
// and IsNotNullConstraintError classify driver errors across providers.
package sql
