package repodb

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/mikependon/repodb/cache"
	"github.com/mikependon/repodb/dialect"
	sqldriver "github.com/mikependon/repodb/dialect/sql"
	"github.com/mikependon/repodb/mapping"
	"github.com/mikependon/repodb/schema"
	"github.com/mikependon/repodb/statement"
	"github.com/mikependon/repodb/trace"
)

// Operation names passed to the trace.
const (
	opQuery        = "Query"
	opQueryAll     = "QueryAll"
	opBatchQuery   = "BatchQuery"
	opCount        = "Count"
	opCountAll     = "CountAll"
	opExists       = "Exists"
	opInsert       = "Insert"
	opInsertAll    = "InsertAll"
	opMerge        = "Merge"
	opMergeAll     = "MergeAll"
	opUpdate       = "Update"
	opUpdateAll    = "UpdateAll"
	opDelete       = "Delete"
	opDeleteAll    = "DeleteAll"
	opTruncate     = "Truncate"
	opExecuteQuery = "ExecuteQuery"
	opNonQuery     = "ExecuteNonQuery"
	opScalar       = "ExecuteScalar"
)

// commandCache keeps rendered statements that do not depend on a filter.
type commandCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

func newCommandCache(size int) *commandCache {
	if size <= 0 {
		return nil
	}
	return &commandCache{cache: lru.New(size)}
}

func (c *commandCache) get(key string, build func() (string, error)) (string, error) {
	if c == nil || key == "" {
		return build()
	}
	c.mu.Lock()
	v, ok := c.cache.Get(key)
	c.mu.Unlock()
	if ok {
		return v.(string), nil
	}
	text, err := build()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.cache.Add(key, text)
	c.mu.Unlock()
	return text, nil
}

// len returns the number of cached statements.
func (c *commandCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// commandKey identifies a statement rendered from its parts.
func commandKey(op, table string, parts ...any) string {
	var sb strings.Builder
	sb.WriteString(op)
	sb.WriteByte('|')
	sb.WriteString(strings.ToLower(table))
	for _, p := range parts {
		sb.WriteByte('|')
		switch p := p.(type) {
		case []string:
			sb.WriteString(strings.Join(p, ","))
		default:
			fmt.Fprint(&sb, p)
		}
	}
	return sb.String()
}

// tableFields returns the columns of a table read through q.
func (db *DB) tableFields(ctx context.Context, q dialect.ExecQuerier, table string) (schema.Fields, error) {
	fields, err := db.fields.Get(ctx, db.helper, q, table)
	if err != nil {
		return nil, fmt.Errorf("repodb: reading fields of %s: %w", table, err)
	}
	return fields, nil
}

// run rebinds the statement, calls the trace around fn and classifies
// constraint violations. The context passed to fn names the operation for
// the statistics driver.
func (db *DB) run(ctx context.Context, key, text string, params map[string]any, fn func(context.Context, string, []any) (any, error)) error {
	q, args, err := db.setting.Rebind(text, params)
	if err != nil {
		return err
	}
	var log *trace.CancellableLog
	if db.trace != nil {
		log = trace.NewCancellableLog(key, q, params)
		db.trace.BeforeExecution(ctx, log)
		if log.IsCancelled() {
			if log.IsThrowable() {
				return ErrCancelled
			}
			return errSkipped
		}
	}
	res, err := fn(sqldriver.WithOperation(ctx, key), q, args)
	if err != nil && sqldriver.IsConstraintError(err) {
		err = NewConstraintError(rootCause(err).Error(), err)
	}
	if log != nil {
		db.trace.AfterExecution(ctx, log.Done(res, err))
	}
	return err
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// execute runs a statement that returns no rows.
func execute(ctx context.Context, s Session, key, text string, params map[string]any) (sqldriver.Result, error) {
	var result sqldriver.Result
	err := s.DB().run(ctx, key, text, params, func(ctx context.Context, q string, args []any) (any, error) {
		if err := s.querier().Exec(ctx, q, args, &result); err != nil {
			return nil, err
		}
		n, _ := result.RowsAffected()
		return n, nil
	})
	return result, err
}

// queryRows runs a statement and hands its rows to fn. The rows are closed
// when fn returns.
func queryRows(ctx context.Context, s Session, key, text string, params map[string]any, fn func(*sqldriver.Rows) (any, error)) error {
	return s.DB().run(ctx, key, text, params, func(ctx context.Context, q string, args []any) (any, error) {
		var rows sqldriver.Rows
		if err := s.querier().Query(ctx, q, args, &rows); err != nil {
			return nil, err
		}
		defer rows.Close()
		res, err := fn(&rows)
		if err != nil {
			return nil, err
		}
		return res, rows.Err()
	})
}

// queryScalar returns the first column of the first row, or nil.
func queryScalar(ctx context.Context, s Session, key, text string, params map[string]any) (any, error) {
	var v any
	err := queryRows(ctx, s, key, text, params, func(rows *sqldriver.Rows) (any, error) {
		if !rows.Next() {
			return nil, nil
		}
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		dest := make([]any, len(cols))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		v = *(dest[0].(*any))
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		return v, nil
	})
	return v, err
}

// querySlice materializes the rows of a statement into T.
func querySlice[T any](ctx context.Context, s Session, key, text string, params map[string]any) ([]T, error) {
	var out []T
	err := queryRows(ctx, s, key, text, params, func(rows *sqldriver.Rows) (any, error) {
		var err error
		out, err = mapping.ScanStructs[T](rows)
		return len(out), err
	})
	return out, err
}

// cached returns the cached result of a query, or loads and caches it.
// Cache failures are logged and never fail the query.
func cached[T any](ctx context.Context, db *DB, o *options, load func() (T, error)) (T, error) {
	if o.cacheKey == "" || db.cache == nil {
		return load()
	}
	data, err := db.cache.Get(ctx, o.cacheKey)
	if err != nil {
		db.logger.WarnContext(ctx, "repodb: reading cache", "key", o.cacheKey, "error", err)
	} else if data != nil {
		var v T
		if err := cache.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		db.logger.WarnContext(ctx, "repodb: decoding cached value", "key", o.cacheKey, "error", err)
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	ttl := o.cacheTTL
	if ttl <= 0 {
		ttl = db.cacheTTL
	}
	if data, err := cache.Marshal(v); err != nil {
		db.logger.WarnContext(ctx, "repodb: encoding cached value", "key", o.cacheKey, "error", err)
	} else if err := db.cache.Set(ctx, o.cacheKey, data, ttl); err != nil {
		db.logger.WarnContext(ctx, "repodb: writing cache", "key", o.cacheKey, "error", err)
	}
	return v, nil
}

// command renders a statement, reusing the cached text when key is set.
func (db *DB) command(key string, build func(statement.Builder) (string, error)) (string, error) {
	return db.commands.get(key, func() (string, error) { return build(db.builder) })
}

// skip turns a silent cancellation into the zero result.
func skip[T any](v T, err error) (T, error) {
	if errors.Is(err, errSkipped) {
		var zero T
		return zero, nil
	}
	return v, err
}

// typeOf returns the struct type of T.
func typeOf[T any]() reflect.Type {
	return indirectType(reflect.TypeOf((*T)(nil)).Elem())
}
