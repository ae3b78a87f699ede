// Package mapping maps Go structs onto tables and rows.
//
// Properties are read with sqlx/reflectx using the db tag:
//
//	type Person struct {
//		ID        int64  `db:"Id,primary,identity"`
//		Name      string `db:"Name"`
//		Internal  string `db:"-"`
//		Audit            // embedded fields are flattened
//	}
//
// The table of an entity is resolved from MapTable, then the Tabler
// interface, then the type name. The primary property is resolved from
// MapPrimary or the primary tag option, then a property named Id, then one
// named <Type>Id. Name lookups are case-insensitive.
//
// Assign converts values returned by drivers into the Go type of the
// destination. ScanStructs and ScanRecords materialize rows.
package mapping
