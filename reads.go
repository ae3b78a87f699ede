package repodb

import (
	"context"
	"fmt"
	"reflect"

	"github.com/mikependon/repodb/mapping"
	"github.com/mikependon/repodb/query"
	"github.com/mikependon/repodb/statement"
)

// selectStatement renders the SELECT of Query and QueryAll. Unfiltered
// statements are kept in the command cache.
func selectStatement(db *DB, b *binding, where *query.QueryGroup, o *options) (string, error) {
	req := &statement.QueryRequest{
		Table:   b.table,
		Fields:  b.selectFields(o),
		Where:   where,
		OrderBy: o.orderBy,
		Top:     o.top,
		Hints:   o.hints,
	}
	if !where.IsEmpty() {
		return db.builder.CreateQuery(req)
	}
	return db.command(commandKey(opQuery, b.table, req.Fields, o.orderBy, o.top, o.hints), func(sb statement.Builder) (string, error) {
		return sb.CreateQuery(req)
	})
}

// batchStatement renders the paged SELECT of BatchQuery.
func batchStatement(db *DB, b *binding, page, rowsPerPage int, orderBy []query.OrderField, where *query.QueryGroup, o *options) (string, error) {
	req := &statement.BatchQueryRequest{
		Table:       b.table,
		Fields:      b.selectFields(o),
		Where:       where,
		OrderBy:     orderBy,
		Page:        page,
		RowsPerPage: rowsPerPage,
		Hints:       o.hints,
	}
	if !where.IsEmpty() {
		return db.builder.CreateBatchQuery(req)
	}
	return db.command(commandKey(opBatchQuery, b.table, req.Fields, orderBy, page, rowsPerPage, o.hints), func(sb statement.Builder) (string, error) {
		return sb.CreateBatchQuery(req)
	})
}

// count returns the number of rows matching where.
func count(ctx context.Context, s Session, table string, where *query.QueryGroup, o *options, op string) (int64, error) {
	db := s.DB()
	req := &statement.CountRequest{Table: table, Where: where, Hints: o.hints}
	var (
		text string
		err  error
	)
	if where.IsEmpty() {
		text, err = db.command(commandKey(opCountAll, table, o.hints), func(sb statement.Builder) (string, error) {
			return sb.CreateCountAll(req)
		})
	} else {
		text, err = db.builder.CreateCount(req)
	}
	if err != nil {
		return 0, err
	}
	v, err := queryScalar(ctx, s, o.key(op), text, where.Params())
	if err != nil {
		return 0, err
	}
	var n int64
	if err := mapping.Assign(reflect.ValueOf(&n).Elem(), v); err != nil {
		return 0, err
	}
	return n, nil
}

// exists reports whether a row matches where.
func exists(ctx context.Context, s Session, table string, where *query.QueryGroup, o *options) (bool, error) {
	text, err := s.DB().builder.CreateExists(&statement.CountRequest{Table: table, Where: where, Hints: o.hints})
	if err != nil {
		return false, err
	}
	v, err := queryScalar(ctx, s, o.key(opExists), text, where.Params())
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

// aggregate computes fn over a column of the rows matching where. The
// result is nil when no row matches.
func aggregate(ctx context.Context, s Session, b *binding, fn statement.Aggregate, field string, where *query.QueryGroup, o *options) (any, error) {
	f := b.fields.Find(field)
	if f == nil {
		return nil, NewValidationError("field", fmt.Errorf("%s is not a column of %s", field, b.table))
	}
	req := &statement.AggregateRequest{Function: fn, Table: b.table, Field: f.Name, Where: where, Hints: o.hints}
	var (
		text string
		err  error
	)
	db := s.DB()
	if where.IsEmpty() {
		text, err = db.command(commandKey(fn.String(), b.table, f.Name, o.hints), func(sb statement.Builder) (string, error) {
			return sb.CreateAggregateAll(req)
		})
	} else {
		text, err = db.builder.CreateAggregate(req)
	}
	if err != nil {
		return nil, err
	}
	return queryScalar(ctx, s, o.key(aggregateOp(fn, where.IsEmpty())), text, where.Params())
}

// aggregateOp names an aggregate operation for the trace.
func aggregateOp(fn statement.Aggregate, all bool) string {
	var op string
	switch fn {
	case statement.Sum:
		op = "Sum"
	case statement.Max:
		op = "Max"
	case statement.Min:
		op = "Min"
	default:
		op = "Average"
	}
	if all {
		op += "All"
	}
	return op
}

// toFloat converts an aggregate result to float64. Nil is zero.
func toFloat(v any) (float64, error) {
	var f float64
	if err := mapping.Assign(reflect.ValueOf(&f).Elem(), v); err != nil {
		return 0, err
	}
	return f, nil
}
