package sql

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mikependon/repodb/dialect"
)

// Unattributed is the operation name of statements run without WithOperation.
const Unattributed = "-"

type operationKey struct{}

// WithOperation returns a context that attributes the statements executed
// with it to the named operation.
func WithOperation(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationKey{}, name)
}

// OperationFromContext returns the operation attached to ctx, or Unattributed.
func OperationFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(operationKey{}).(string); ok && name != "" {
		return name
	}
	return Unattributed
}

// OperationStats holds the counters of a single operation.
type OperationStats struct {
	Calls  int64
	Errors int64
	Slow   int64
	Total  time.Duration
	Max    time.Duration
}

// Avg returns the mean duration of a call.
func (s OperationStats) Avg() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Calls)
}

func (s *OperationStats) add(o OperationStats) {
	s.Calls += o.Calls
	s.Errors += o.Errors
	s.Slow += o.Slow
	s.Total += o.Total
	s.Max = max(s.Max, o.Max)
}

// Stats is a point-in-time copy of the counters, keyed by operation.
type Stats map[string]OperationStats

// Sum folds the counters of all operations together.
func (s Stats) Sum() OperationStats {
	var sum OperationStats
	for _, o := range s {
		sum.add(o)
	}
	return sum
}

// String renders one line per operation in name order.
func (s Stats) String() string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('\n')
		}
		o := s[name]
		fmt.Fprintf(&b, "%s: calls=%d errors=%d slow=%d avg=%v max=%v", name, o.Calls, o.Errors, o.Slow, o.Avg(), o.Max)
	}
	return b.String()
}

// SlowFunc is called for every statement that ran longer than the threshold.
type SlowFunc func(ctx context.Context, operation, query string, d time.Duration)

// StatsDriver is a dialect.Driver that times every statement and keeps the
// counters per operation. Statements run in transactions are counted too.
type StatsDriver struct {
	dialect.Driver
	threshold time.Duration
	slow      SlowFunc

	mu  sync.Mutex
	ops map[string]*OperationStats
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// Zero disables the detection.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.threshold = d }
}

// WithSlowFunc sets the function called for slow statements.
func WithSlowFunc(fn SlowFunc) StatsOption {
	return func(s *StatsDriver) { s.slow = fn }
}

// WithSlowLog reports slow statements as warnings on l.
func WithSlowLog(l *slog.Logger) StatsOption {
	return WithSlowFunc(func(ctx context.Context, op, query string, d time.Duration) {
		l.WarnContext(ctx, "repodb: slow statement", "operation", op, "statement", query, "duration", d)
	})
}

// NewStatsDriver wraps drv.
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, ops: make(map[string]*OperationStats)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exec implements the dialect.Execer method.
func (s *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := s.Driver.Exec(ctx, query, args, v)
	s.observe(ctx, query, time.Since(start), err)
	return err
}

// Query implements the dialect.Querier method. The time spent reading the
// rows is not included.
func (s *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := s.Driver.Query(ctx, query, args, v)
	s.observe(ctx, query, time.Since(start), err)
	return err
}

// Tx starts a transaction whose statements are counted by s.
func (s *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := s.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &statsTx{Tx: tx, s: s}, nil
}

// Stats returns a copy of the counters.
func (s *StatsDriver) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Stats, len(s.ops))
	for name, o := range s.ops {
		out[name] = *o
	}
	return out
}

// Reset clears the counters.
func (s *StatsDriver) Reset() {
	s.mu.Lock()
	s.ops = make(map[string]*OperationStats)
	s.mu.Unlock()
}

func (s *StatsDriver) observe(ctx context.Context, query string, d time.Duration, err error) {
	op := OperationFromContext(ctx)
	slow := s.threshold > 0 && d > s.threshold
	rec := OperationStats{Calls: 1, Total: d, Max: d}
	if err != nil {
		rec.Errors = 1
	}
	if slow {
		rec.Slow = 1
	}
	s.mu.Lock()
	o, ok := s.ops[op]
	if !ok {
		o = &OperationStats{}
		s.ops[op] = o
	}
	o.add(rec)
	s.mu.Unlock()
	if slow && s.slow != nil {
		s.slow(ctx, op, query, d)
	}
}

type statsTx struct {
	dialect.Tx
	s *StatsDriver
}

func (tx *statsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.s.observe(ctx, query, time.Since(start), err)
	return err
}

func (tx *statsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.s.observe(ctx, query, time.Since(start), err)
	return err
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*statsTx)(nil)
)
