package repodb

import (
	"context"
	"fmt"
	"slices"

	"github.com/mikependon/repodb/mapping"
	"github.com/mikependon/repodb/query"
)

// Repository exposes the operations of one entity type over a session.
// Its default options are applied before the options of every call.
type Repository[T any] struct {
	s    Session
	opts []QueryOption
}

// NewRepository returns a repository of T.
func NewRepository[T any](s Session, opts ...QueryOption) *Repository[T] {
	return &Repository[T]{s: s, opts: opts}
}

// Session returns the session the repository runs on.
func (r *Repository[T]) Session() Session { return r.s }

// TableName returns the table of T.
func (r *Repository[T]) TableName() string { return mapping.TableName[T]() }

func (r *Repository[T]) with(opts []QueryOption) []QueryOption {
	if len(r.opts) == 0 {
		return opts
	}
	return append(append(make([]QueryOption, 0, len(r.opts)+len(opts)), r.opts...), opts...)
}

// WithTx runs fn with a repository bound to a transaction. A repository
// already running in a transaction is reused.
func (r *Repository[T]) WithTx(ctx context.Context, fn func(*Repository[T]) error) error {
	if r.s.inTx() {
		return fn(r)
	}
	return r.s.DB().WithTx(ctx, func(tx *Tx) error {
		return fn(&Repository[T]{s: tx, opts: r.opts})
	})
}

// Get returns the entity with the given primary key. A NotFoundError is
// returned when there is none. A cache key, from the repository or the
// call, is suffixed with ":" and the key value.
func (r *Repository[T]) Get(ctx context.Context, key any, opts ...QueryOption) (*T, error) {
	opts = append(slices.Clip(opts), WithTop(1), cacheKeyOf(key))
	out, err := Query[T](ctx, r.s, key, r.with(opts)...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, NewNotFoundError(r.TableName(), key)
	}
	return &out[0], nil
}

func cacheKeyOf(key any) QueryOption {
	return func(o *options) {
		if o.cacheKey != "" {
			o.cacheKey = fmt.Sprintf("%s:%v", o.cacheKey, key)
		}
	}
}

// Query returns the entities matching where.
func (r *Repository[T]) Query(ctx context.Context, where any, opts ...QueryOption) ([]T, error) {
	return Query[T](ctx, r.s, where, r.with(opts)...)
}

// QueryAll returns every entity.
func (r *Repository[T]) QueryAll(ctx context.Context, opts ...QueryOption) ([]T, error) {
	return QueryAll[T](ctx, r.s, r.with(opts)...)
}

// BatchQuery returns a page of the entities matching where.
func (r *Repository[T]) BatchQuery(ctx context.Context, page, rowsPerPage int, orderBy []query.OrderField, where any, opts ...QueryOption) ([]T, error) {
	return BatchQuery[T](ctx, r.s, page, rowsPerPage, orderBy, where, r.with(opts)...)
}

// Count returns the number of entities matching where.
func (r *Repository[T]) Count(ctx context.Context, where any, opts ...QueryOption) (int64, error) {
	return Count[T](ctx, r.s, where, r.with(opts)...)
}

// CountAll returns the number of entities.
func (r *Repository[T]) CountAll(ctx context.Context, opts ...QueryOption) (int64, error) {
	return CountAll[T](ctx, r.s, r.with(opts)...)
}

// Exists reports whether an entity matches where.
func (r *Repository[T]) Exists(ctx context.Context, where any, opts ...QueryOption) (bool, error) {
	return Exists[T](ctx, r.s, where, r.with(opts)...)
}

// Sum returns the sum of field over the entities matching where.
func (r *Repository[T]) Sum(ctx context.Context, field string, where any, opts ...QueryOption) (float64, error) {
	return Sum[T](ctx, r.s, field, where, r.with(opts)...)
}

// Average returns the average of field over the entities matching where.
func (r *Repository[T]) Average(ctx context.Context, field string, where any, opts ...QueryOption) (float64, error) {
	return Average[T](ctx, r.s, field, where, r.with(opts)...)
}

// Max returns the largest value of field among the entities matching
// where.
func (r *Repository[T]) Max(ctx context.Context, field string, where any, opts ...QueryOption) (any, error) {
	return Max[T](ctx, r.s, field, where, r.with(opts)...)
}

// Min returns the smallest value of field among the entities matching
// where.
func (r *Repository[T]) Min(ctx context.Context, field string, where any, opts ...QueryOption) (any, error) {
	return Min[T](ctx, r.s, field, where, r.with(opts)...)
}

// Insert inserts an entity and returns its key.
func (r *Repository[T]) Insert(ctx context.Context, entity *T, opts ...QueryOption) (any, error) {
	return Insert(ctx, r.s, entity, r.with(opts)...)
}

// InsertAll inserts the entities.
func (r *Repository[T]) InsertAll(ctx context.Context, entities []T, opts ...QueryOption) (int, error) {
	return InsertAll(ctx, r.s, entities, r.with(opts)...)
}

// Merge inserts or updates an entity and returns its key.
func (r *Repository[T]) Merge(ctx context.Context, entity *T, opts ...QueryOption) (any, error) {
	return Merge(ctx, r.s, entity, r.with(opts)...)
}

// MergeAll inserts or updates the entities.
func (r *Repository[T]) MergeAll(ctx context.Context, entities []T, opts ...QueryOption) (int, error) {
	return MergeAll(ctx, r.s, entities, r.with(opts)...)
}

// Update updates an entity.
func (r *Repository[T]) Update(ctx context.Context, entity T, opts ...QueryOption) (int64, error) {
	return Update(ctx, r.s, entity, r.with(opts)...)
}

// UpdateAll updates the entities.
func (r *Repository[T]) UpdateAll(ctx context.Context, entities []T, opts ...QueryOption) (int64, error) {
	return UpdateAll(ctx, r.s, entities, r.with(opts)...)
}

// Delete deletes the entities matching where.
func (r *Repository[T]) Delete(ctx context.Context, where any, opts ...QueryOption) (int64, error) {
	return Delete[T](ctx, r.s, where, r.with(opts)...)
}

// DeleteAll deletes the entities with the given keys, or every entity.
func (r *Repository[T]) DeleteAll(ctx context.Context, keys []any, opts ...QueryOption) (int64, error) {
	return DeleteAll[T](ctx, r.s, keys, r.with(opts)...)
}

// Truncate removes every entity.
func (r *Repository[T]) Truncate(ctx context.Context, opts ...QueryOption) (int64, error) {
	return Truncate[T](ctx, r.s, r.with(opts)...)
}
