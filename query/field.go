package query

import "sort"

// Field names a column.
type Field struct {
	Name string
}

// Fields returns a field for every name.
func Fields(names ...string) []Field {
	fs := make([]Field, 0, len(names))
	for _, n := range names {
		fs = append(fs, Field{Name: n})
	}
	return fs
}

// FieldsOf returns the fields of a record, sorted by name.
func FieldsOf(record map[string]any) []Field {
	names := make([]string, 0, len(record))
	for k := range record {
		names = append(names, k)
	}
	sort.Strings(names)
	return Fields(names...)
}

// FieldNames returns the names of the given fields.
func FieldNames(fs []Field) []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

// Order is the sort direction of an OrderField.
type Order int

// Sort directions.
const (
	Ascending Order = iota
	Descending
)

// String implements fmt.Stringer.
func (o Order) String() string {
	if o == Descending {
		return "DESC"
	}
	return "ASC"
}

// OrderField is a column with its sort direction.
type OrderField struct {
	Name  string
	Order Order
}

// Asc orders by the given column in ascending order.
func Asc(name string) OrderField { return OrderField{Name: name, Order: Ascending} }

// Desc orders by the given column in descending order.
func Desc(name string) OrderField { return OrderField{Name: name, Order: Descending} }
