// Package oteltrace reports repodb executions as OpenTelemetry spans.
package oteltrace

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/mikependon/repodb/trace"
)

const instrumentation = "github.com/mikependon/repodb"

// Tracer starts one span per execution. The span is named after the
// execution key and ends when the execution completes.
type Tracer struct {
	tracer oteltrace.Tracer
	system string
	spans  sync.Map // uuid.UUID -> oteltrace.Span
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithSystem sets the db.system attribute, such as "postgresql".
func WithSystem(name string) Option {
	return func(t *Tracer) { t.system = name }
}

// New returns a Tracer using tracer, or the global tracer provider when
// tracer is nil.
func New(tracer oteltrace.Tracer, opts ...Option) *Tracer {
	if tracer == nil {
		tracer = otel.Tracer(instrumentation)
	}
	t := &Tracer{tracer: tracer}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BeforeExecution implements trace.Trace.
func (t *Tracer) BeforeExecution(ctx context.Context, l *trace.CancellableLog) {
	attrs := []attribute.KeyValue{
		attribute.String("db.statement", l.Statement),
		attribute.String("repodb.session", l.SessionID.String()),
	}
	if t.system != "" {
		attrs = append(attrs, attribute.String("db.system", t.system))
	}
	_, span := t.tracer.Start(ctx, l.Key,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithTimestamp(l.StartTime),
		oteltrace.WithAttributes(attrs...),
	)
	t.spans.Store(l.SessionID, span)
}

// AfterExecution implements trace.Trace.
func (t *Tracer) AfterExecution(_ context.Context, l *trace.ResultLog) {
	v, ok := t.spans.LoadAndDelete(l.SessionID)
	if !ok {
		return
	}
	span := v.(oteltrace.Span)
	if n, ok := l.Result.(int64); ok {
		span.SetAttributes(attribute.Int64("db.rows_affected", n))
	}
	if l.Err != nil {
		span.RecordError(l.Err)
		span.SetStatus(codes.Error, l.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Pending returns the number of spans started but not ended.
func (t *Tracer) Pending() int {
	n := 0
	t.spans.Range(func(any, any) bool { n++; return true })
	return n
}

var _ trace.Trace = (*Tracer)(nil)
