package repodb

import (
	"context"
	"fmt"
	"reflect"

	"github.com/mikependon/repodb/mapping"
	"github.com/mikependon/repodb/query"
	"github.com/mikependon/repodb/statement"
)

// readResult turns a silent cancellation into the zero value and wraps
// other failures in a QueryError.
func readResult[V any](table, op string, v V, err error) (V, error) {
	v, err = skip(v, err)
	if err != nil {
		return v, NewQueryError(table, op, err)
	}
	return v, nil
}

// writeResult is the MutationError counterpart of readResult.
func writeResult[V any](table, op string, v V, err error) (V, error) {
	v, err = skip(v, err)
	if err != nil {
		return v, NewMutationError(table, op, err)
	}
	return v, nil
}

// Query returns the entities matching where. Where is a query expression,
// a map of column values, an entity or a primary key value.
func Query[T any](ctx context.Context, s Session, where any, opts ...QueryOption) ([]T, error) {
	return queryEntities[T](ctx, s, where, opQuery, opts)
}

// QueryAll returns every entity of the table of T.
func QueryAll[T any](ctx context.Context, s Session, opts ...QueryOption) ([]T, error) {
	return queryEntities[T](ctx, s, nil, opQueryAll, opts)
}

func queryEntities[T any](ctx context.Context, s Session, where any, op string, opts []QueryOption) ([]T, error) {
	t := typeOf[T]()
	o := newOptions(opts)
	out, err := cached(ctx, s.DB(), o, func() ([]T, error) {
		b, err := bindType(ctx, s, t)
		if err != nil {
			return nil, err
		}
		w, err := b.where(where)
		if err != nil {
			return nil, err
		}
		text, err := selectStatement(s.DB(), b, w, o)
		if err != nil {
			return nil, err
		}
		return querySlice[T](ctx, s, o.key(op), text, w.Params())
	})
	return readResult(mapping.TableNameOf(t), op, out, err)
}

// BatchQuery returns a page of the entities matching where. Page is zero
// based and orderBy is required.
func BatchQuery[T any](ctx context.Context, s Session, page, rowsPerPage int, orderBy []query.OrderField, where any, opts ...QueryOption) ([]T, error) {
	t := typeOf[T]()
	o := newOptions(opts)
	out, err := cached(ctx, s.DB(), o, func() ([]T, error) {
		b, err := bindType(ctx, s, t)
		if err != nil {
			return nil, err
		}
		w, err := b.where(where)
		if err != nil {
			return nil, err
		}
		text, err := batchStatement(s.DB(), b, page, rowsPerPage, orderBy, w, o)
		if err != nil {
			return nil, err
		}
		return querySlice[T](ctx, s, o.key(opBatchQuery), text, w.Params())
	})
	return readResult(mapping.TableNameOf(t), opBatchQuery, out, err)
}

// Count returns the number of entities matching where.
func Count[T any](ctx context.Context, s Session, where any, opts ...QueryOption) (int64, error) {
	return countEntities[T](ctx, s, where, opCount, opts)
}

// CountAll returns the number of rows of the table of T.
func CountAll[T any](ctx context.Context, s Session, opts ...QueryOption) (int64, error) {
	return countEntities[T](ctx, s, nil, opCountAll, opts)
}

func countEntities[T any](ctx context.Context, s Session, where any, op string, opts []QueryOption) (int64, error) {
	t := typeOf[T]()
	n, err := func() (int64, error) {
		b, err := bindType(ctx, s, t)
		if err != nil {
			return 0, err
		}
		w, err := b.where(where)
		if err != nil {
			return 0, err
		}
		return count(ctx, s, b.table, w, newOptions(opts), op)
	}()
	return readResult(mapping.TableNameOf(t), op, n, err)
}

// Exists reports whether an entity matches where.
func Exists[T any](ctx context.Context, s Session, where any, opts ...QueryOption) (bool, error) {
	t := typeOf[T]()
	ok, err := func() (bool, error) {
		b, err := bindType(ctx, s, t)
		if err != nil {
			return false, err
		}
		w, err := b.where(where)
		if err != nil {
			return false, err
		}
		return exists(ctx, s, b.table, w, newOptions(opts))
	}()
	return readResult(mapping.TableNameOf(t), opExists, ok, err)
}

func aggregateEntities[T any](ctx context.Context, s Session, fn statement.Aggregate, field string, where any, opts []QueryOption) (any, error) {
	t := typeOf[T]()
	b, err := bindType(ctx, s, t)
	if err != nil {
		return nil, err
	}
	w, err := b.where(where)
	if err != nil {
		return nil, err
	}
	return aggregate(ctx, s, b, fn, field, w, newOptions(opts))
}

// Sum returns the sum of field over the entities matching where.
func Sum[T any](ctx context.Context, s Session, field string, where any, opts ...QueryOption) (float64, error) {
	return floatAggregate[T](ctx, s, statement.Sum, field, where, opts)
}

// SumAll returns the sum of field over every row.
func SumAll[T any](ctx context.Context, s Session, field string, opts ...QueryOption) (float64, error) {
	return floatAggregate[T](ctx, s, statement.Sum, field, nil, opts)
}

// Average returns the average of field over the entities matching where.
func Average[T any](ctx context.Context, s Session, field string, where any, opts ...QueryOption) (float64, error) {
	return floatAggregate[T](ctx, s, statement.Average, field, where, opts)
}

// AverageAll returns the average of field over every row.
func AverageAll[T any](ctx context.Context, s Session, field string, opts ...QueryOption) (float64, error) {
	return floatAggregate[T](ctx, s, statement.Average, field, nil, opts)
}

// Max returns the largest value of field among the entities matching
// where, or nil when none matches.
func Max[T any](ctx context.Context, s Session, field string, where any, opts ...QueryOption) (any, error) {
	return anyAggregate[T](ctx, s, statement.Max, field, where, opts)
}

// MaxAll returns the largest value of field.
func MaxAll[T any](ctx context.Context, s Session, field string, opts ...QueryOption) (any, error) {
	return anyAggregate[T](ctx, s, statement.Max, field, nil, opts)
}

// Min returns the smallest value of field among the entities matching
// where, or nil when none matches.
func Min[T any](ctx context.Context, s Session, field string, where any, opts ...QueryOption) (any, error) {
	return anyAggregate[T](ctx, s, statement.Min, field, where, opts)
}

// MinAll returns the smallest value of field.
func MinAll[T any](ctx context.Context, s Session, field string, opts ...QueryOption) (any, error) {
	return anyAggregate[T](ctx, s, statement.Min, field, nil, opts)
}

func floatAggregate[T any](ctx context.Context, s Session, fn statement.Aggregate, field string, where any, opts []QueryOption) (float64, error) {
	v, err := aggregateEntities[T](ctx, s, fn, field, where, opts)
	var f float64
	if err == nil {
		f, err = toFloat(v)
	}
	return readResult(mapping.TableNameOf(typeOf[T]()), aggregateOp(fn, where == nil), f, err)
}

func anyAggregate[T any](ctx context.Context, s Session, fn statement.Aggregate, field string, where any, opts []QueryOption) (any, error) {
	v, err := aggregateEntities[T](ctx, s, fn, field, where, opts)
	return readResult(mapping.TableNameOf(typeOf[T]()), aggregateOp(fn, where == nil), v, err)
}

// Insert inserts an entity and returns its key. The identity generated by
// the database is written back into the entity.
func Insert[T any](ctx context.Context, s Session, entity *T, opts ...QueryOption) (any, error) {
	t := typeOf[T]()
	id, err := func() (any, error) {
		if entity == nil {
			return nil, ErrEmptyEntities
		}
		o := newOptions(opts)
		b, err := bindType(ctx, s, t)
		if err != nil {
			return nil, err
		}
		if err := b.restrict(o); err != nil {
			return nil, err
		}
		v := reflect.ValueOf(entity)
		keys, err := insertRows(ctx, s, b, []Record{b.entityRow(v)}, o.key(opInsert), 1)
		if err != nil {
			return nil, err
		}
		if b.identity != "" {
			if err := b.setIdentity(v, keys[0]); err != nil {
				return nil, err
			}
		}
		return keys[0], nil
	}()
	return writeResult(mapping.TableNameOf(t), opInsert, id, err)
}

// InsertAll inserts the entities in batches and returns how many were
// inserted. Generated identities are written back into the slice. On a
// *DB the batches run in a single transaction.
func InsertAll[T any](ctx context.Context, s Session, entities []T, opts ...QueryOption) (int, error) {
	t := typeOf[T]()
	n, err := func() (int, error) {
		if len(entities) == 0 {
			return 0, ErrEmptyEntities
		}
		o := newOptions(opts)
		b, err := bindType(ctx, s, t)
		if err != nil {
			return 0, err
		}
		if err := b.restrict(o); err != nil {
			return 0, err
		}
		rows := make([]Record, len(entities))
		for i := range entities {
			rows[i] = b.entityRow(reflect.ValueOf(&entities[i]))
		}
		var keys []any
		err = inBatches(ctx, s, len(rows), func(s Session) error {
			keys, err = insertRows(ctx, s, b, rows, o.key(opInsertAll), s.DB().batchSize)
			return err
		})
		if err != nil {
			return 0, err
		}
		if b.identity != "" {
			for i, k := range keys {
				if err := b.setIdentity(reflect.ValueOf(&entities[i]), k); err != nil {
					return 0, err
				}
			}
		}
		return len(rows), nil
	}()
	return writeResult(mapping.TableNameOf(t), opInsertAll, n, err)
}

// inBatches runs fn in a transaction when more than one row is written
// through a *DB.
func inBatches(ctx context.Context, s Session, rows int, fn func(Session) error) error {
	if rows <= 1 {
		return fn(s)
	}
	return withinTx(ctx, s, fn)
}

// Merge inserts the entity or updates the row matching its qualifiers,
// the primary key by default, and returns its key.
func Merge[T any](ctx context.Context, s Session, entity *T, opts ...QueryOption) (any, error) {
	t := typeOf[T]()
	id, err := func() (any, error) {
		if entity == nil {
			return nil, ErrEmptyEntities
		}
		o := newOptions(opts)
		b, err := bindType(ctx, s, t)
		if err != nil {
			return nil, err
		}
		if err := b.restrict(o); err != nil {
			return nil, err
		}
		quals, err := b.qualifiers(o)
		if err != nil {
			return nil, err
		}
		v := reflect.ValueOf(entity)
		keys, err := mergeRows(ctx, s, b, []Record{b.entityRow(v)}, quals, o.key(opMerge), 1)
		if err != nil {
			return nil, err
		}
		if b.identity != "" {
			if err := b.setIdentity(v, keys[0]); err != nil {
				return nil, err
			}
		}
		return keys[0], nil
	}()
	return writeResult(mapping.TableNameOf(t), opMerge, id, err)
}

// MergeAll merges the entities and returns how many were merged.
func MergeAll[T any](ctx context.Context, s Session, entities []T, opts ...QueryOption) (int, error) {
	t := typeOf[T]()
	n, err := func() (int, error) {
		if len(entities) == 0 {
			return 0, ErrEmptyEntities
		}
		o := newOptions(opts)
		b, err := bindType(ctx, s, t)
		if err != nil {
			return 0, err
		}
		if err := b.restrict(o); err != nil {
			return 0, err
		}
		quals, err := b.qualifiers(o)
		if err != nil {
			return 0, err
		}
		rows := make([]Record, len(entities))
		for i := range entities {
			rows[i] = b.entityRow(reflect.ValueOf(&entities[i]))
		}
		var keys []any
		err = inBatches(ctx, s, len(rows), func(s Session) error {
			keys, err = mergeRows(ctx, s, b, rows, quals, o.key(opMergeAll), s.DB().batchSize)
			return err
		})
		if err != nil {
			return 0, err
		}
		if b.identity != "" {
			for i, k := range keys {
				if err := b.setIdentity(reflect.ValueOf(&entities[i]), k); err != nil {
					return 0, err
				}
			}
		}
		return len(rows), nil
	}()
	return writeResult(mapping.TableNameOf(t), opMergeAll, n, err)
}

// Update updates the row of the entity, found by its primary key or by
// WithWhere, and returns the number of rows affected.
func Update[T any](ctx context.Context, s Session, entity T, opts ...QueryOption) (int64, error) {
	t := typeOf[T]()
	n, err := func() (int64, error) {
		o := newOptions(opts)
		b, err := bindType(ctx, s, t)
		if err != nil {
			return 0, err
		}
		if err := b.restrict(o); err != nil {
			return 0, err
		}
		row := b.entityRow(reflect.ValueOf(&entity))
		var w *query.QueryGroup
		if o.hasWhere {
			w, err = b.where(o.where)
		} else {
			w, err = b.keyWhere(row)
		}
		if err != nil {
			return 0, err
		}
		return updateRow(ctx, s, b, row, w, o.key(opUpdate))
	}()
	return writeResult(mapping.TableNameOf(t), opUpdate, n, err)
}

// UpdateAll updates the rows of the entities, matched by their qualifiers
// or primary key, and returns the number of rows affected.
func UpdateAll[T any](ctx context.Context, s Session, entities []T, opts ...QueryOption) (int64, error) {
	t := typeOf[T]()
	n, err := func() (int64, error) {
		if len(entities) == 0 {
			return 0, ErrEmptyEntities
		}
		o := newOptions(opts)
		b, err := bindType(ctx, s, t)
		if err != nil {
			return 0, err
		}
		if err := b.restrict(o); err != nil {
			return 0, err
		}
		quals, err := b.qualifiers(o)
		if err != nil {
			return 0, err
		}
		rows := make([]Record, len(entities))
		for i := range entities {
			rows[i] = b.entityRow(reflect.ValueOf(&entities[i]))
		}
		var affected int64
		err = inBatches(ctx, s, len(rows), func(s Session) error {
			affected, err = updateRows(ctx, s, b, rows, quals, o.key(opUpdateAll), s.DB().batchSize)
			return err
		})
		return affected, err
	}()
	return writeResult(mapping.TableNameOf(t), opUpdateAll, n, err)
}

// Delete deletes the rows matching where, an entity, a primary key value
// or a query expression, and returns the number of rows affected.
func Delete[T any](ctx context.Context, s Session, where any, opts ...QueryOption) (int64, error) {
	t := typeOf[T]()
	n, err := func() (int64, error) {
		b, err := bindType(ctx, s, t)
		if err != nil {
			return 0, err
		}
		w, err := b.where(where)
		if err != nil {
			return 0, err
		}
		if w.IsEmpty() {
			return 0, ErrEmptyWhere
		}
		return deleteRows(ctx, s, b.table, w, newOptions(opts), opDelete)
	}()
	return writeResult(mapping.TableNameOf(t), opDelete, n, err)
}

// DeleteAll deletes the rows whose primary key is one of keys, which may
// be values or entities. Without keys every row is deleted.
func DeleteAll[T any](ctx context.Context, s Session, keys []any, opts ...QueryOption) (int64, error) {
	t := typeOf[T]()
	n, err := func() (int64, error) {
		b, err := bindType(ctx, s, t)
		if err != nil {
			return 0, err
		}
		w, err := b.keysWhere(keys)
		if err != nil {
			return 0, err
		}
		return deleteRows(ctx, s, b.table, w, newOptions(opts), opDeleteAll)
	}()
	return writeResult(mapping.TableNameOf(t), opDeleteAll, n, err)
}

// Truncate removes every row of the table of T.
func Truncate[T any](ctx context.Context, s Session, opts ...QueryOption) (int64, error) {
	t := typeOf[T]()
	table := mapping.TableNameOf(t)
	n, err := truncate(ctx, s, table, newOptions(opts))
	return writeResult(table, opTruncate, n, err)
}

// keysWhere filters on a list of primary keys. No keys yield no filter.
func (b *binding) keysWhere(keys []any) (*query.QueryGroup, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if b.primary == "" {
		return nil, fmt.Errorf("%w: %s", ErrPrimaryKeyNotFound, b.table)
	}
	values := make([]any, len(keys))
	for i, k := range keys {
		v, err := b.keyOf(k)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return query.And(query.In(b.primary, values...)), nil
}
