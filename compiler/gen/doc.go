// Package gen generates entity structs from the columns of database
// tables.
//
// Each table becomes one Go file holding a struct whose fields carry the
// db tags read by the mapping package, and a TableName method:
//
//	fields, _ := db.Fields(ctx, "Customers")
//	paths, err := gen.Generate(ctx, []gen.Table{{Name: "Customers", Fields: fields}},
//	    gen.WithDialect(db.Dialect()),
//	    gen.WithPackage("models"),
//	    gen.WithTarget("./models"),
//	)
//
// Struct names are the singular, camel cased table names. Column types are
// resolved with dialect.ResolveType; nullable columns become pointers.
// Files are formatted with goimports and written in parallel.
package gen
