// Package repodb is a hybrid micro-ORM. It renders the statements of a
// fixed set of operations for the dialect of a database/sql driver,
// executes them and materializes the rows into structs or records.
//
// # Opening a connection
//
//	import _ "modernc.org/sqlite"
//
//	db, err := repodb.Open("sqlite", "file:app.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
// # Typed operations
//
// Entities are plain structs mapped with the db tag:
//
//	type Person struct {
//	    ID   int64  `db:"Id,primary,identity"`
//	    Name string `db:"Name"`
//	}
//
//	id, err := repodb.Insert(ctx, db, &Person{Name: "John"})
//	people, err := repodb.Query[Person](ctx, db, query.Eq("Name", "John"))
//	n, err := repodb.Delete[Person](ctx, db, id)
//
// Only the properties that match a column of the table are written. The
// columns of a table are read once through the schema helper of the
// dialect and cached.
//
// # Dynamic operations
//
// Tables without a struct are handled with records:
//
//	people := repodb.Table(db, "Person")
//	id, err := people.Insert(ctx, repodb.Record{"Name": "John"})
//
// # Transactions
//
// Every operation accepts a Session, implemented by *DB and *Tx:
//
//	err := db.WithTx(ctx, func(tx *repodb.Tx) error {
//	    _, err := repodb.Insert(ctx, tx, &Person{Name: "Jane"})
//	    return err
//	})
package repodb

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mikependon/repodb/cache"
	"github.com/mikependon/repodb/cache/redis"
	"github.com/mikependon/repodb/config"
	"github.com/mikependon/repodb/dialect"
	sqldriver "github.com/mikependon/repodb/dialect/sql"
	"github.com/mikependon/repodb/schema"
	"github.com/mikependon/repodb/statement"
	"github.com/mikependon/repodb/trace"
)

// Defaults of a DB.
const (
	DefaultBatchSize        = config.DefaultBatchSize
	DefaultCacheExpiration  = config.DefaultCacheExpiration
	DefaultCommandCacheSize = config.DefaultCommandCacheSize
)

// DB is a connection to a database. It is safe for concurrent use.
type DB struct {
	driver    dialect.Driver
	setting   dialect.Setting
	builder   statement.Builder
	helper    schema.Helper
	fields    *schema.Cache
	cache     cache.Cache
	cacheTTL  time.Duration
	trace     trace.Trace
	logger    *slog.Logger
	batchSize int
	commands  *commandCache
	closers   []func() error
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) { db.logger = l }
}

// WithCache sets the cache used by queries given a cache key.
func WithCache(c cache.Cache) Option {
	return func(db *DB) { db.cache = c }
}

// WithCacheExpiration sets the default lifetime of cached query results.
func WithCacheExpiration(d time.Duration) Option {
	return func(db *DB) { db.cacheTTL = d }
}

// WithTrace sets the trace called around every execution.
func WithTrace(t trace.Trace) Option {
	return func(db *DB) { db.trace = t }
}

// WithBuilder replaces the statement builder of the dialect.
func WithBuilder(b statement.Builder) Option {
	return func(db *DB) { db.builder = b }
}

// WithHelper replaces the schema helper of the dialect.
func WithHelper(h schema.Helper) Option {
	return func(db *DB) { db.helper = h }
}

// WithTableFields declares the columns of a table so that they are never
// read from the database.
func WithTableFields(table string, fields ...*schema.Field) Option {
	return func(db *DB) { db.fields.Seed(table, fields...) }
}

// WithBatchSize sets the number of rows written per statement by the
// batch operations.
func WithBatchSize(n int) Option {
	return func(db *DB) { db.batchSize = n }
}

// WithCommandCacheSize sets how many rendered statements are kept.
func WithCommandCacheSize(n int) Option {
	return func(db *DB) { db.commands = newCommandCache(n) }
}

// Open opens a database with a registered database/sql driver.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	drv, err := sqldriver.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("repodb: open %s: %w", driverName, err)
	}
	db, err := New(drv, opts...)
	if err != nil {
		drv.Close()
		return nil, err
	}
	return db, nil
}

// New returns a DB executing through the given driver.
func New(drv dialect.Driver, opts ...Option) (*DB, error) {
	name := drv.Dialect()
	setting, ok := dialect.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, name)
	}
	db := &DB{
		driver:    drv,
		setting:   setting,
		fields:    schema.NewCache(),
		cacheTTL:  DefaultCacheExpiration,
		logger:    slog.Default(),
		batchSize: DefaultBatchSize,
		commands:  newCommandCache(DefaultCommandCacheSize),
	}
	db.builder, _ = statement.Get(name)
	db.helper, _ = schema.HelperFor(name)
	for _, opt := range opts {
		opt(db)
	}
	if db.builder == nil {
		return nil, fmt.Errorf("%w: no statement builder for %q", ErrUnsupportedDialect, name)
	}
	if db.helper == nil {
		return nil, fmt.Errorf("%w: no schema helper for %q", ErrUnsupportedDialect, name)
	}
	db.setting = db.builder.Setting()
	if db.batchSize < 1 {
		db.batchSize = 1
	}
	return db, nil
}

// OpenConfig opens a database from a loaded configuration. The options
// are applied after the ones derived from the configuration.
func OpenConfig(ctx context.Context, cfg config.Config, opts ...Option) (*DB, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	drv, err := sqldriver.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("repodb: open %s: %w", cfg.Driver, err)
	}
	pool := drv.DB()
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	var wrapped dialect.Driver = drv
	if cfg.SlowQueryThreshold > 0 {
		wrapped = sqldriver.NewStatsDriver(drv,
			sqldriver.WithSlowThreshold(cfg.SlowQueryThreshold),
			sqldriver.WithSlowLog(logger),
		)
	}
	base := []Option{
		WithLogger(logger),
		WithBatchSize(cfg.BatchSize),
		WithCacheExpiration(cfg.CacheExpiration),
		WithCommandCacheSize(cfg.CommandCacheSize),
	}
	if cfg.Log.Statements {
		var topts []trace.LoggerOption
		if cfg.Log.Parameters {
			topts = append(topts, trace.WithParameters())
		}
		base = append(base, WithTrace(trace.NewLogger(logger, topts...)))
	}
	var closers []func() error
	if cfg.Redis.Addr != "" {
		var ropts []redis.Option
		if cfg.Redis.Prefix != "" {
			ropts = append(ropts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		rc, err := redis.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, ropts...)
		if err != nil {
			drv.Close()
			return nil, err
		}
		base = append(base, WithCache(rc))
		closers = append(closers, rc.Close)
	}
	db, err := New(wrapped, append(base, opts...)...)
	if err != nil {
		drv.Close()
		for _, c := range closers {
			c()
		}
		return nil, err
	}
	db.closers = closers
	return db, nil
}

// Driver returns the underlying driver.
func (db *DB) Driver() dialect.Driver { return db.driver }

// Dialect returns the dialect name.
func (db *DB) Dialect() string { return db.setting.Name }

// Setting returns the dialect setting used to render statements.
func (db *DB) Setting() dialect.Setting { return db.setting }

// Builder returns the statement builder.
func (db *DB) Builder() statement.Builder { return db.builder }

// Cache returns the result cache, or nil.
func (db *DB) Cache() cache.Cache { return db.cache }

// Logger returns the logger.
func (db *DB) Logger() *slog.Logger { return db.logger }

// Stats returns the statement statistics per operation, or false when the
// driver does not collect them.
func (db *DB) Stats() (sqldriver.Stats, bool) {
	if s, ok := db.driver.(*sqldriver.StatsDriver); ok {
		return s.Stats(), true
	}
	return nil, false
}

// Fields returns the columns of a table, reading them on first use.
func (db *DB) Fields(ctx context.Context, table string) (schema.Fields, error) {
	return db.tableFields(ctx, db.driver, table)
}

// InvalidateFields forgets the cached columns of a table.
func (db *DB) InvalidateFields(table string) {
	db.fields.Invalidate(table)
}

// Close closes the driver and the resources opened with it.
func (db *DB) Close() error {
	errs := []error{db.driver.Close()}
	for _, c := range db.closers {
		errs = append(errs, c())
	}
	return NewAggregateError(errs...)
}

// Session is implemented by *DB and *Tx. Operations given a *Tx run in
// that transaction.
type Session interface {
	// DB returns the connection the session belongs to.
	DB() *DB
	querier() dialect.ExecQuerier
	inTx() bool
}

// DB implements Session.
func (db *DB) DB() *DB { return db }

func (db *DB) querier() dialect.ExecQuerier { return db.driver }

func (db *DB) inTx() bool { return false }

// Tx is a transaction.
type Tx struct {
	db *DB
	tx dialect.Tx
}

// Tx starts a transaction.
func (db *DB) Tx(ctx context.Context) (*Tx, error) {
	tx, err := db.driver.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("repodb: starting a transaction: %w", err)
	}
	return &Tx{db: db, tx: tx}, nil
}

// WithTx runs fn in a transaction. The transaction is committed when fn
// returns nil and rolled back when it fails or panics.
func (db *DB) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := db.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if v := recover(); v != nil {
			tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: %w", err, &RollbackError{Err: rerr})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repodb: committing transaction: %w", err)
	}
	return nil
}

// Commit commits the transaction.
func (tx *Tx) Commit() error { return tx.tx.Commit() }

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error { return tx.tx.Rollback() }

// DB implements Session.
func (tx *Tx) DB() *DB { return tx.db }

func (tx *Tx) querier() dialect.ExecQuerier { return tx.tx }

func (tx *Tx) inTx() bool { return true }

// withinTx runs fn in the transaction of the session, starting one when
// the session is not a transaction.
func withinTx(ctx context.Context, s Session, fn func(Session) error) error {
	if s.inTx() {
		return fn(s)
	}
	return s.DB().WithTx(ctx, func(tx *Tx) error { return fn(tx) })
}
