package schema

import (
	"reflect"
	"strings"

	"github.com/mikependon/repodb/dialect"
)

// Field describes a column of a database table.
type Field struct {
	Name       string
	IsPrimary  bool
	IsIdentity bool
	IsNullable bool
	// Type is the database type name, e.g. "nvarchar" or "INTEGER".
	Type      string
	Size      int64
	Precision int64
	Scale     int64
}

// GoType resolves the Go type holding the values of the column.
func (f *Field) GoType(dialectName string) reflect.Type {
	return dialect.ResolveType(dialectName, f.Type)
}

// Fields is the ordered list of the columns of a table.
type Fields []*Field

// Primary returns the first primary key column, or nil.
func (fs Fields) Primary() *Field {
	for _, f := range fs {
		if f.IsPrimary {
			return f
		}
	}
	return nil
}

// Identity returns the identity column, or nil.
func (fs Fields) Identity() *Field {
	for _, f := range fs {
		if f.IsIdentity {
			return f
		}
	}
	return nil
}

// Names returns the column names.
func (fs Fields) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

// Find returns the column with the given name, compared case-insensitively.
func (fs Fields) Find(name string) *Field {
	for _, f := range fs {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}
