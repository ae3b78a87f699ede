package query

import (
	"fmt"
	"reflect"
)

// QueryField compares a column against a value.
type QueryField struct {
	Field     Field
	Operation Operation
	Value     any
}

func (*QueryField) expr() {}

// NewQueryField returns a QueryField for the given column, operation and value.
func NewQueryField(name string, op Operation, v any) *QueryField {
	return &QueryField{Field: Field{Name: name}, Operation: op, Value: v}
}

// Eq returns a "name = v" comparison; a nil value renders IS NULL.
func Eq(name string, v any) *QueryField { return NewQueryField(name, OpEqual, v) }

// NotEq returns a "name <> v" comparison; a nil value renders IS NOT NULL.
func NotEq(name string, v any) *QueryField { return NewQueryField(name, OpNotEqual, v) }

// Lt returns a "name < v" comparison.
func Lt(name string, v any) *QueryField { return NewQueryField(name, OpLessThan, v) }

// Gt returns a "name > v" comparison.
func Gt(name string, v any) *QueryField { return NewQueryField(name, OpGreaterThan, v) }

// Lte returns a "name <= v" comparison.
func Lte(name string, v any) *QueryField { return NewQueryField(name, OpLessThanOrEqual, v) }

// Gte returns a "name >= v" comparison.
func Gte(name string, v any) *QueryField { return NewQueryField(name, OpGreaterThanOrEqual, v) }

// Like returns a "name LIKE pattern" comparison.
func Like(name, pattern string) *QueryField { return NewQueryField(name, OpLike, pattern) }

// NotLike returns a "name NOT LIKE pattern" comparison.
func NotLike(name, pattern string) *QueryField { return NewQueryField(name, OpNotLike, pattern) }

// Between returns a "name BETWEEN left AND right" comparison.
func Between(name string, left, right any) *QueryField {
	return NewQueryField(name, OpBetween, []any{left, right})
}

// NotBetween returns a "name NOT BETWEEN left AND right" comparison.
func NotBetween(name string, left, right any) *QueryField {
	return NewQueryField(name, OpNotBetween, []any{left, right})
}

// In returns a "name IN (...)" comparison. A single slice argument is
// expanded into its elements.
func In(name string, vs ...any) *QueryField { return NewQueryField(name, OpIn, listOf(vs)) }

// NotIn returns a "name NOT IN (...)" comparison.
func NotIn(name string, vs ...any) *QueryField { return NewQueryField(name, OpNotIn, listOf(vs)) }

// IsNull returns a "name IS NULL" comparison.
func IsNull(name string) *QueryField { return Eq(name, nil) }

// IsNotNull returns a "name IS NOT NULL" comparison.
func IsNotNull(name string) *QueryField { return NotEq(name, nil) }

// String implements fmt.Stringer.
func (f *QueryField) String() string {
	return fmt.Sprintf("%s %s %v", f.Field.Name, f.Operation, f.Value)
}

// Values returns the value of the field as a list. Slices and arrays other
// than []byte are expanded.
func (f *QueryField) Values() []any {
	switch v := f.Value.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []byte:
		return []any{v}
	}
	rv := reflect.ValueOf(f.Value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{f.Value}
	}
	vs := make([]any, rv.Len())
	for i := range vs {
		vs[i] = rv.Index(i).Interface()
	}
	return vs
}

func listOf(vs []any) any {
	if len(vs) == 1 && isList(vs[0]) {
		return vs[0]
	}
	return vs
}

func isList(v any) bool {
	if _, ok := v.([]byte); ok || v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// IsNullValue reports whether v is nil or a nil pointer.
func IsNullValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map:
		return rv.IsNil()
	}
	return false
}
