// Package trace lets callers observe and cancel the statements repodb
// executes.
//
// A Trace is called before and after every execution. BeforeExecution
// receives a CancellableLog and may cancel the execution; AfterExecution
// receives the outcome. Both logs share the session id of the execution.
package trace

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Trace observes statement executions.
type Trace interface {
	BeforeExecution(context.Context, *CancellableLog)
	AfterExecution(context.Context, *ResultLog)
}

// Log describes one execution.
type Log struct {
	// SessionID correlates the before and after logs of an execution.
	SessionID uuid.UUID
	// Key is the operation name, or the trace key given by the caller.
	Key        string
	Statement  string
	Parameters map[string]any
	StartTime  time.Time
}

// CancellableLog is passed to BeforeExecution.
type CancellableLog struct {
	Log
	cancelled bool
	throw     bool
}

// NewCancellableLog starts the log of a new execution.
func NewCancellableLog(key, statement string, params map[string]any) *CancellableLog {
	return &CancellableLog{Log: Log{
		SessionID:  uuid.New(),
		Key:        key,
		Statement:  statement,
		Parameters: params,
		StartTime:  time.Now(),
	}}
}

// Cancel stops the execution. When throw is true the operation fails with
// an error; otherwise it returns its zero result silently.
func (l *CancellableLog) Cancel(throw bool) {
	l.cancelled = true
	l.throw = throw
}

// IsCancelled reports whether Cancel was called.
func (l *CancellableLog) IsCancelled() bool { return l.cancelled }

// IsThrowable reports whether the cancellation must surface as an error.
func (l *CancellableLog) IsThrowable() bool { return l.throw }

// Done builds the result log of the execution.
func (l *CancellableLog) Done(result any, err error) *ResultLog {
	return &ResultLog{
		Log:     l.Log,
		Result:  result,
		Elapsed: time.Since(l.StartTime),
		Err:     err,
	}
}

// ResultLog is passed to AfterExecution.
type ResultLog struct {
	Log
	// Result is the number of affected rows, the returned key, or the
	// materialized rows, depending on the operation.
	Result  any
	Elapsed time.Duration
	Err     error
}

// Funcs adapts two functions to a Trace. Nil functions are skipped.
type Funcs struct {
	Before func(context.Context, *CancellableLog)
	After  func(context.Context, *ResultLog)
}

// BeforeExecution implements Trace.
func (f Funcs) BeforeExecution(ctx context.Context, l *CancellableLog) {
	if f.Before != nil {
		f.Before(ctx, l)
	}
}

// AfterExecution implements Trace.
func (f Funcs) AfterExecution(ctx context.Context, l *ResultLog) {
	if f.After != nil {
		f.After(ctx, l)
	}
}

// Multi calls every trace in order.
func Multi(traces ...Trace) Trace {
	return multi(traces)
}

type multi []Trace

func (m multi) BeforeExecution(ctx context.Context, l *CancellableLog) {
	for _, t := range m {
		t.BeforeExecution(ctx, l)
	}
}

func (m multi) AfterExecution(ctx context.Context, l *ResultLog) {
	for _, t := range m {
		t.AfterExecution(ctx, l)
	}
}

// Logger writes executions to a slog.Logger. Statements are logged at
// debug level, results at info level and failures at error level.
type Logger struct {
	logger     *slog.Logger
	parameters bool
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithParameters includes the parameter values in the log records.
func WithParameters() LoggerOption {
	return func(l *Logger) { l.parameters = true }
}

// NewLogger returns a Trace logging to logger, or to slog.Default when
// logger is nil.
func NewLogger(logger *slog.Logger, opts ...LoggerOption) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// BeforeExecution implements Trace.
func (l *Logger) BeforeExecution(ctx context.Context, log *CancellableLog) {
	attrs := []any{
		slog.String("session", log.SessionID.String()),
		slog.String("key", log.Key),
		slog.String("statement", log.Statement),
	}
	if l.parameters {
		attrs = append(attrs, slog.Any("parameters", log.Parameters))
	}
	l.logger.DebugContext(ctx, "executing statement", attrs...)
}

// AfterExecution implements Trace.
func (l *Logger) AfterExecution(ctx context.Context, log *ResultLog) {
	attrs := []any{
		slog.String("session", log.SessionID.String()),
		slog.String("key", log.Key),
		slog.Duration("elapsed", log.Elapsed),
	}
	if log.Err != nil {
		l.logger.ErrorContext(ctx, "statement failed", append(attrs, slog.String("statement", log.Statement), slog.Any("error", log.Err))...)
		return
	}
	l.logger.InfoContext(ctx, "statement executed", attrs...)
}

var (
	_ Trace = Funcs{}
	_ Trace = (*Logger)(nil)
)
