package repodb

import (
	"context"
	"strings"

	sqldriver "github.com/mikependon/repodb/dialect/sql"
	"github.com/mikependon/repodb/mapping"
	"github.com/mikependon/repodb/query"
	"github.com/mikependon/repodb/statement"
)

// Record is a row keyed by column name.
type Record = map[string]any

// RecordTable runs the operations on a table without a mapped struct.
// Keys and identity come from the schema of the table.
type RecordTable struct {
	s    Session
	name string
}

// Table returns the dynamic operations of the named table.
func Table(s Session, name string) *RecordTable {
	return &RecordTable{s: s, name: name}
}

// Name returns the table name.
func (t *RecordTable) Name() string { return t.name }

// queryRecords materializes the rows of a statement into records.
func queryRecords(ctx context.Context, s Session, key, text string, params map[string]any) ([]Record, error) {
	var out []Record
	err := queryRows(ctx, s, key, text, params, func(rows *sqldriver.Rows) (any, error) {
		var err error
		out, err = mapping.ScanRecords(rows)
		return len(out), err
	})
	return out, err
}

// Query returns the rows matching where.
func (t *RecordTable) Query(ctx context.Context, where any, opts ...QueryOption) ([]Record, error) {
	return t.query(ctx, where, opQuery, opts)
}

// QueryAll returns every row.
func (t *RecordTable) QueryAll(ctx context.Context, opts ...QueryOption) ([]Record, error) {
	return t.query(ctx, nil, opQueryAll, opts)
}

func (t *RecordTable) query(ctx context.Context, where any, op string, opts []QueryOption) ([]Record, error) {
	o := newOptions(opts)
	out, err := cached(ctx, t.s.DB(), o, func() ([]Record, error) {
		b, w, err := t.bind(ctx, where)
		if err != nil {
			return nil, err
		}
		text, err := selectStatement(t.s.DB(), b, w, o)
		if err != nil {
			return nil, err
		}
		return queryRecords(ctx, t.s, o.key(op), text, w.Params())
	})
	return readResult(t.name, op, out, err)
}

// BatchQuery returns a page of the rows matching where.
func (t *RecordTable) BatchQuery(ctx context.Context, page, rowsPerPage int, orderBy []query.OrderField, where any, opts ...QueryOption) ([]Record, error) {
	o := newOptions(opts)
	out, err := cached(ctx, t.s.DB(), o, func() ([]Record, error) {
		b, w, err := t.bind(ctx, where)
		if err != nil {
			return nil, err
		}
		text, err := batchStatement(t.s.DB(), b, page, rowsPerPage, orderBy, w, o)
		if err != nil {
			return nil, err
		}
		return queryRecords(ctx, t.s, o.key(opBatchQuery), text, w.Params())
	})
	return readResult(t.name, opBatchQuery, out, err)
}

// bind binds the table and converts where.
func (t *RecordTable) bind(ctx context.Context, where any) (*binding, *query.QueryGroup, error) {
	b, err := bindRecords(ctx, t.s, t.name, nil)
	if err != nil {
		return nil, nil, err
	}
	w, err := b.where(where)
	if err != nil {
		return nil, nil, err
	}
	return b, w, nil
}

// Count returns the number of rows matching where.
func (t *RecordTable) Count(ctx context.Context, where any, opts ...QueryOption) (int64, error) {
	return t.count(ctx, where, opCount, opts)
}

// CountAll returns the number of rows.
func (t *RecordTable) CountAll(ctx context.Context, opts ...QueryOption) (int64, error) {
	return t.count(ctx, nil, opCountAll, opts)
}

func (t *RecordTable) count(ctx context.Context, where any, op string, opts []QueryOption) (int64, error) {
	n, err := func() (int64, error) {
		b, w, err := t.bind(ctx, where)
		if err != nil {
			return 0, err
		}
		return count(ctx, t.s, b.table, w, newOptions(opts), op)
	}()
	return readResult(t.name, op, n, err)
}

// Exists reports whether a row matches where.
func (t *RecordTable) Exists(ctx context.Context, where any, opts ...QueryOption) (bool, error) {
	ok, err := func() (bool, error) {
		b, w, err := t.bind(ctx, where)
		if err != nil {
			return false, err
		}
		return exists(ctx, t.s, b.table, w, newOptions(opts))
	}()
	return readResult(t.name, opExists, ok, err)
}

func (t *RecordTable) aggregate(ctx context.Context, fn statement.Aggregate, field string, where any, opts []QueryOption) (any, error) {
	v, err := func() (any, error) {
		b, w, err := t.bind(ctx, where)
		if err != nil {
			return nil, err
		}
		return aggregate(ctx, t.s, b, fn, field, w, newOptions(opts))
	}()
	return readResult(t.name, aggregateOp(fn, where == nil), v, err)
}

func (t *RecordTable) floatAggregate(ctx context.Context, fn statement.Aggregate, field string, where any, opts []QueryOption) (float64, error) {
	v, err := t.aggregate(ctx, fn, field, where, opts)
	if err != nil {
		return 0, err
	}
	f, err := toFloat(v)
	return readResult(t.name, aggregateOp(fn, where == nil), f, err)
}

// Sum returns the sum of field over the rows matching where.
func (t *RecordTable) Sum(ctx context.Context, field string, where any, opts ...QueryOption) (float64, error) {
	return t.floatAggregate(ctx, statement.Sum, field, where, opts)
}

// SumAll returns the sum of field over every row.
func (t *RecordTable) SumAll(ctx context.Context, field string, opts ...QueryOption) (float64, error) {
	return t.floatAggregate(ctx, statement.Sum, field, nil, opts)
}

// Average returns the average of field over the rows matching where.
func (t *RecordTable) Average(ctx context.Context, field string, where any, opts ...QueryOption) (float64, error) {
	return t.floatAggregate(ctx, statement.Average, field, where, opts)
}

// AverageAll returns the average of field over every row.
func (t *RecordTable) AverageAll(ctx context.Context, field string, opts ...QueryOption) (float64, error) {
	return t.floatAggregate(ctx, statement.Average, field, nil, opts)
}

// Max returns the largest value of field among the rows matching where.
func (t *RecordTable) Max(ctx context.Context, field string, where any, opts ...QueryOption) (any, error) {
	return t.aggregate(ctx, statement.Max, field, where, opts)
}

// MaxAll returns the largest value of field.
func (t *RecordTable) MaxAll(ctx context.Context, field string, opts ...QueryOption) (any, error) {
	return t.aggregate(ctx, statement.Max, field, nil, opts)
}

// Min returns the smallest value of field among the rows matching where.
func (t *RecordTable) Min(ctx context.Context, field string, where any, opts ...QueryOption) (any, error) {
	return t.aggregate(ctx, statement.Min, field, where, opts)
}

// MinAll returns the smallest value of field.
func (t *RecordTable) MinAll(ctx context.Context, field string, opts ...QueryOption) (any, error) {
	return t.aggregate(ctx, statement.Min, field, nil, opts)
}

// bindWrite binds the records written by an operation and rekeys them by
// column name.
func (t *RecordTable) bindWrite(ctx context.Context, records []Record, o *options) (*binding, []Record, error) {
	if len(records) == 0 {
		return nil, nil, ErrEmptyEntities
	}
	b, err := bindRecords(ctx, t.s, t.name, records)
	if err != nil {
		return nil, nil, err
	}
	if err := b.restrict(o); err != nil {
		return nil, nil, err
	}
	rows := make([]Record, len(records))
	for i, rec := range records {
		rows[i] = b.recordRow(rec)
	}
	return b, rows, nil
}

// setKey stores a generated identity in a record, under its existing key
// when the record has one.
func setKey(rec Record, column string, v any) {
	if v == nil {
		return
	}
	for k := range rec {
		if strings.EqualFold(k, column) {
			rec[k] = v
			return
		}
	}
	rec[column] = v
}

// Insert inserts a record and returns its key. A generated identity is
// stored back into the record.
func (t *RecordTable) Insert(ctx context.Context, rec Record, opts ...QueryOption) (any, error) {
	id, err := func() (any, error) {
		o := newOptions(opts)
		b, rows, err := t.bindWrite(ctx, []Record{rec}, o)
		if err != nil {
			return nil, err
		}
		keys, err := insertRows(ctx, t.s, b, rows, o.key(opInsert), 1)
		if err != nil {
			return nil, err
		}
		if b.identity != "" {
			setKey(rec, b.identity, keys[0])
		}
		return keys[0], nil
	}()
	return writeResult(t.name, opInsert, id, err)
}

// InsertAll inserts the records in batches and returns how many were
// inserted.
func (t *RecordTable) InsertAll(ctx context.Context, records []Record, opts ...QueryOption) (int, error) {
	n, err := func() (int, error) {
		o := newOptions(opts)
		b, rows, err := t.bindWrite(ctx, records, o)
		if err != nil {
			return 0, err
		}
		var keys []any
		err = inBatches(ctx, t.s, len(rows), func(s Session) error {
			keys, err = insertRows(ctx, s, b, rows, o.key(opInsertAll), s.DB().batchSize)
			return err
		})
		if err != nil {
			return 0, err
		}
		if b.identity != "" {
			for i, k := range keys {
				setKey(records[i], b.identity, k)
			}
		}
		return len(rows), nil
	}()
	return writeResult(t.name, opInsertAll, n, err)
}

// Merge inserts the record or updates the row matching its qualifiers,
// and returns its key.
func (t *RecordTable) Merge(ctx context.Context, rec Record, opts ...QueryOption) (any, error) {
	id, err := func() (any, error) {
		o := newOptions(opts)
		b, rows, err := t.bindWrite(ctx, []Record{rec}, o)
		if err != nil {
			return nil, err
		}
		quals, err := b.qualifiers(o)
		if err != nil {
			return nil, err
		}
		keys, err := mergeRows(ctx, t.s, b, rows, quals, o.key(opMerge), 1)
		if err != nil {
			return nil, err
		}
		if b.identity != "" {
			setKey(rec, b.identity, keys[0])
		}
		return keys[0], nil
	}()
	return writeResult(t.name, opMerge, id, err)
}

// MergeAll merges the records and returns how many were merged.
func (t *RecordTable) MergeAll(ctx context.Context, records []Record, opts ...QueryOption) (int, error) {
	n, err := func() (int, error) {
		o := newOptions(opts)
		b, rows, err := t.bindWrite(ctx, records, o)
		if err != nil {
			return 0, err
		}
		quals, err := b.qualifiers(o)
		if err != nil {
			return 0, err
		}
		var keys []any
		err = inBatches(ctx, t.s, len(rows), func(s Session) error {
			keys, err = mergeRows(ctx, s, b, rows, quals, o.key(opMergeAll), s.DB().batchSize)
			return err
		})
		if err != nil {
			return 0, err
		}
		if b.identity != "" {
			for i, k := range keys {
				setKey(records[i], b.identity, k)
			}
		}
		return len(rows), nil
	}()
	return writeResult(t.name, opMergeAll, n, err)
}

// Update updates the row of the record, found by its primary key or by
// WithWhere.
func (t *RecordTable) Update(ctx context.Context, rec Record, opts ...QueryOption) (int64, error) {
	n, err := func() (int64, error) {
		o := newOptions(opts)
		b, rows, err := t.bindWrite(ctx, []Record{rec}, o)
		if err != nil {
			return 0, err
		}
		var w *query.QueryGroup
		if o.hasWhere {
			w, err = b.where(o.where)
		} else {
			w, err = b.keyWhere(rows[0])
		}
		if err != nil {
			return 0, err
		}
		return updateRow(ctx, t.s, b, rows[0], w, o.key(opUpdate))
	}()
	return writeResult(t.name, opUpdate, n, err)
}

// UpdateAll updates the rows of the records, matched by their qualifiers
// or primary key.
func (t *RecordTable) UpdateAll(ctx context.Context, records []Record, opts ...QueryOption) (int64, error) {
	n, err := func() (int64, error) {
		o := newOptions(opts)
		b, rows, err := t.bindWrite(ctx, records, o)
		if err != nil {
			return 0, err
		}
		quals, err := b.qualifiers(o)
		if err != nil {
			return 0, err
		}
		var affected int64
		err = inBatches(ctx, t.s, len(rows), func(s Session) error {
			affected, err = updateRows(ctx, s, b, rows, quals, o.key(opUpdateAll), s.DB().batchSize)
			return err
		})
		return affected, err
	}()
	return writeResult(t.name, opUpdateAll, n, err)
}

// Delete deletes the rows matching where, a primary key value or a query
// expression.
func (t *RecordTable) Delete(ctx context.Context, where any, opts ...QueryOption) (int64, error) {
	n, err := func() (int64, error) {
		b, w, err := t.bind(ctx, where)
		if err != nil {
			return 0, err
		}
		if w.IsEmpty() {
			return 0, ErrEmptyWhere
		}
		return deleteRows(ctx, t.s, b.table, w, newOptions(opts), opDelete)
	}()
	return writeResult(t.name, opDelete, n, err)
}

// DeleteAll deletes the rows whose primary key is one of keys. Without
// keys every row is deleted.
func (t *RecordTable) DeleteAll(ctx context.Context, keys []any, opts ...QueryOption) (int64, error) {
	n, err := func() (int64, error) {
		b, err := bindRecords(ctx, t.s, t.name, nil)
		if err != nil {
			return 0, err
		}
		w, err := b.keysWhere(keys)
		if err != nil {
			return 0, err
		}
		return deleteRows(ctx, t.s, b.table, w, newOptions(opts), opDeleteAll)
	}()
	return writeResult(t.name, opDeleteAll, n, err)
}

// Truncate removes every row.
func (t *RecordTable) Truncate(ctx context.Context, opts ...QueryOption) (int64, error) {
	n, err := truncate(ctx, t.s, t.name, newOptions(opts))
	return writeResult(t.name, opTruncate, n, err)
}
