package query

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnsupportedWhere is returned by Parse for expressions it cannot turn
// into a QueryGroup.
var ErrUnsupportedWhere = errors.New("query: unsupported where expression")

// Parse converts a where expression into a QueryGroup. It accepts nil,
// QueryGroup, QueryField, []*QueryField, []Expr and map[string]any values.
// A nil group is returned for a nil expression.
func Parse(where any) (*QueryGroup, error) {
	switch w := where.(type) {
	case nil:
		return nil, nil
	case *QueryGroup:
		return w, nil
	case QueryGroup:
		return &w, nil
	case *QueryField:
		if w == nil {
			return nil, nil
		}
		return And(w), nil
	case QueryField:
		return And(&w), nil
	case []*QueryField:
		exprs := make([]Expr, 0, len(w))
		for _, f := range w {
			exprs = append(exprs, f)
		}
		return And(exprs...), nil
	case []Expr:
		return And(w...), nil
	case map[string]any:
		return FromMap(w), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedWhere, where)
}

// FromMap returns the AND of the map entries sorted by key. Entries whose
// value is a list become IN comparisons, all others equalities.
func FromMap(m map[string]any) *QueryGroup {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	exprs := make([]Expr, 0, len(keys))
	for _, k := range keys {
		if isList(m[k]) {
			exprs = append(exprs, In(k, m[k]))
			continue
		}
		exprs = append(exprs, Eq(k, m[k]))
	}
	return And(exprs...)
}
