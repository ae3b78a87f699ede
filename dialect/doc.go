// Package dialect describes the database providers repodb speaks to.
//
// It defines the Driver, Tx and ExecQuerier contracts implemented by
// dialect/sql, and the per-provider Setting used when statements are
// rendered: identifier quoting, the bind type expected by the driver, and
// the capabilities a statement builder may rely on.
//
// # Supported Dialects
//
//	dialect.SQLServer = "sqlserver"
//	dialect.MySQL     = "mysql"
//	dialect.Postgres  = "postgres"
//	dialect.SQLite    = "sqlite"
//
// # Settings
//
// Settings are registered per dialect and can be replaced:
//
//	s, _ := dialect.Get(dialect.Postgres)
//	s.Quote("public.person")   // "public"."person"
//	s.Param("First Name")      // :First_Name
//
// Statements are always rendered with dialect neutral ":name" placeholders.
// Setting.Rebind turns them into the provider's positional form (?, $1 or
// @p1) together with the ordered argument list.
//
// # Type resolution
//
// ResolveType maps a database column type onto the Go type used to hold its
// values; the entity generator and schema helpers rely on it.
package dialect
