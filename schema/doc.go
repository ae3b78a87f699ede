// Package schema discovers the columns of database tables.
//
// A Helper per dialect reads the catalog of the database: sys.columns on
// SQL Server, INFORMATION_SCHEMA.COLUMNS on MySQL, information_schema on
// PostgreSQL and PRAGMA table_info on SQLite. Cache keeps the results for
// the lifetime of a connection:
//
//	h, _ := schema.HelperFor(drv.Dialect())
//	fields, err := cache.Get(ctx, h, drv, "dbo.Person")
//	pk := fields.Primary()
//
// Validate compares the properties of an entity with the fields of its
// table.
package schema
