package repodb

import (
	"time"

	"github.com/mikependon/repodb/query"
)

// QueryOption configures a single operation.
type QueryOption func(*options)

type options struct {
	fields     []string
	orderBy    []query.OrderField
	top        int
	hints      string
	cacheKey   string
	cacheTTL   time.Duration
	qualifiers []string
	where      any
	hasWhere   bool
	traceKey   string
}

func newOptions(opts []QueryOption) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// key returns the trace key of the operation.
func (o *options) key(op string) string {
	if o.traceKey != "" {
		return o.traceKey
	}
	return op
}

// WithFields restricts the columns read or written by the operation.
func WithFields(names ...string) QueryOption {
	return func(o *options) { o.fields = append(o.fields, names...) }
}

// WithOrderBy sorts the rows returned by a query.
func WithOrderBy(fields ...query.OrderField) QueryOption {
	return func(o *options) { o.orderBy = append(o.orderBy, fields...) }
}

// WithTop limits the number of rows returned by a query.
func WithTop(n int) QueryOption {
	return func(o *options) { o.top = n }
}

// WithHints sets the table hints of the statement, such as query.NoLock.
// Hints are rejected by dialects that do not support them.
func WithHints(hints string) QueryOption {
	return func(o *options) { o.hints = hints }
}

// WithCacheKey caches the result of a query under key. A cached result is
// returned without querying the database.
func WithCacheKey(key string) QueryOption {
	return func(o *options) { o.cacheKey = key }
}

// WithCacheItemExpiration sets the lifetime of the cached result. The
// default lifetime of the DB is used when it is not set.
func WithCacheItemExpiration(d time.Duration) QueryOption {
	return func(o *options) { o.cacheTTL = d }
}

// WithQualifiers sets the columns used to match existing rows in Merge,
// MergeAll and UpdateAll. The primary key is used by default.
func WithQualifiers(names ...string) QueryOption {
	return func(o *options) { o.qualifiers = append(o.qualifiers, names...) }
}

// WithWhere filters the rows changed by Update instead of the primary key
// of the entity.
func WithWhere(where any) QueryOption {
	return func(o *options) { o.where, o.hasWhere = where, true }
}

// WithTraceKey replaces the operation name passed to the trace.
func WithTraceKey(key string) QueryOption {
	return func(o *options) { o.traceKey = key }
}
