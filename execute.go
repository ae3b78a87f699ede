package repodb

import (
	"context"
	"fmt"
	"reflect"

	sqldriver "github.com/mikependon/repodb/dialect/sql"
	"github.com/mikependon/repodb/mapping"
	"github.com/mikependon/repodb/query"
)

// paramsOf returns the named parameters of a raw statement. Params may be
// nil, a map, a query group or a struct whose properties are the
// parameters.
func paramsOf(params any) (map[string]any, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return p, nil
	case *query.QueryGroup:
		return p.Params(), nil
	}
	rec, err := mapping.ToRecord(params)
	if err != nil {
		return nil, NewValidationError("parameters", fmt.Errorf("%T: %w", params, err))
	}
	return rec, nil
}

func rawResult[V any](op string, v V, err error) (V, error) {
	v, err = skip(v, err)
	if err != nil {
		return v, fmt.Errorf("repodb: %s: %w", op, err)
	}
	return v, nil
}

// ExecuteQuery runs a raw statement with :name placeholders and
// materializes the rows into T. T may be a struct or a scalar type read
// from the first column.
//
// When params is not empty every colon followed by a name starts a
// placeholder; a literal colon is then written "::", as in
// "SELECT '10::30', :Id". Statements run without params are sent
// unchanged. The same rules apply to every Execute function.
func ExecuteQuery[T any](ctx context.Context, s Session, text string, params any, opts ...QueryOption) ([]T, error) {
	o := newOptions(opts)
	out, err := cached(ctx, s.DB(), o, func() ([]T, error) {
		p, err := paramsOf(params)
		if err != nil {
			return nil, err
		}
		return querySlice[T](ctx, s, o.key(opExecuteQuery), text, p)
	})
	return rawResult(opExecuteQuery, out, err)
}

// ExecuteQueryRecords runs a raw statement and returns its rows as
// records.
func ExecuteQueryRecords(ctx context.Context, s Session, text string, params any, opts ...QueryOption) ([]Record, error) {
	o := newOptions(opts)
	out, err := cached(ctx, s.DB(), o, func() ([]Record, error) {
		p, err := paramsOf(params)
		if err != nil {
			return nil, err
		}
		return queryRecords(ctx, s, o.key(opExecuteQuery), text, p)
	})
	return rawResult(opExecuteQuery, out, err)
}

// ExecuteQueryMultiple runs a raw statement returning several result
// sets and returns the records of each.
func ExecuteQueryMultiple(ctx context.Context, s Session, text string, params any, opts ...QueryOption) ([][]Record, error) {
	o := newOptions(opts)
	out, err := func() ([][]Record, error) {
		p, err := paramsOf(params)
		if err != nil {
			return nil, err
		}
		var sets [][]Record
		err = queryRows(ctx, s, o.key(opExecuteQuery), text, p, func(rows *sqldriver.Rows) (any, error) {
			for {
				recs, err := mapping.ScanRecords(rows)
				if err != nil {
					return nil, err
				}
				sets = append(sets, recs)
				if !rows.NextResultSet() {
					break
				}
			}
			return len(sets), nil
		})
		return sets, err
	}()
	return rawResult(opExecuteQuery, out, err)
}

// ExecuteNonQuery runs a raw statement and returns the number of rows
// affected.
func ExecuteNonQuery(ctx context.Context, s Session, text string, params any, opts ...QueryOption) (int64, error) {
	o := newOptions(opts)
	n, err := func() (int64, error) {
		p, err := paramsOf(params)
		if err != nil {
			return 0, err
		}
		res, err := execute(ctx, s, o.key(opNonQuery), text, p)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	}()
	return rawResult(opNonQuery, n, err)
}

// ExecuteScalar runs a raw statement and converts the first column of the
// first row to T. The zero value is returned when there is no row.
func ExecuteScalar[T any](ctx context.Context, s Session, text string, params any, opts ...QueryOption) (T, error) {
	o := newOptions(opts)
	v, err := func() (T, error) {
		var out T
		p, err := paramsOf(params)
		if err != nil {
			return out, err
		}
		v, err := queryScalar(ctx, s, o.key(opScalar), text, p)
		if err != nil {
			return out, err
		}
		err = mapping.Assign(reflect.ValueOf(&out).Elem(), v)
		return out, err
	}()
	return rawResult(opScalar, v, err)
}
