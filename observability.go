package ormx

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/arllen133/ormx"

// DefaultSlowQueryThreshold applies to sessions built without WithSlowQueryThreshold.
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// Metrics holds the OpenTelemetry instruments a session reports to.
type Metrics struct {
	Statements metric.Int64Counter
	Duration   metric.Float64Histogram
	Errors     metric.Int64Counter
	Rows       metric.Int64Histogram
}

// NewMetrics creates the ormx.query.* instruments on meter.
func NewMetrics(meter metric.Meter) *Metrics {
	statements, _ := meter.Int64Counter("ormx.query.count",
		metric.WithDescription("Statements sent to the database"),
		metric.WithUnit("{statement}"),
	)
	duration, _ := meter.Float64Histogram("ormx.query.duration",
		metric.WithDescription("Statement round trip time"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	errs, _ := meter.Int64Counter("ormx.query.errors",
		metric.WithDescription("Statements that returned an error"),
		metric.WithUnit("{error}"),
	)
	rows, _ := meter.Int64Histogram("ormx.query.rows",
		metric.WithDescription("Rows fetched by a query or affected by an exec"),
		metric.WithUnit("{row}"),
		metric.WithExplicitBucketBoundaries(0, 1, 10, 100, 1000, 10000),
	)
	return &Metrics{Statements: statements, Duration: duration, Errors: errs, Rows: rows}
}

// observer is the per-session logging, tracing and metrics setup. Every
// part is optional; the zero value observes nothing.
type observer struct {
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *Metrics
	slowThreshold time.Duration
	logQueries    bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.obs.logger = logger }
}

func WithTracer(tracer trace.Tracer) SessionOption {
	return func(s *Session) { s.obs.tracer = tracer }
}

// WithDefaultTracer traces through the global OpenTelemetry provider.
func WithDefaultTracer() SessionOption {
	return WithTracer(otel.Tracer(instrumentationName))
}

func WithMeter(meter metric.Meter) SessionOption {
	return func(s *Session) { s.obs.metrics = NewMetrics(meter) }
}

// WithDefaultMeter reports to the global OpenTelemetry provider.
func WithDefaultMeter() SessionOption {
	return WithMeter(otel.Meter(instrumentationName))
}

// WithSlowQueryThreshold logs statements slower than d at WARN. Zero disables it.
func WithSlowQueryThreshold(d time.Duration) SessionOption {
	return func(s *Session) { s.obs.slowThreshold = d }
}

// WithQueryLogging logs every statement at DEBUG and attaches the SQL text
// to logs and spans. SQL text is omitted otherwise.
func WithQueryLogging(enabled bool) SessionOption {
	return func(s *Session) { s.obs.logQueries = enabled }
}

// statement tracks one round trip from begin to end.
type statement struct {
	operation string // "query" or "exec"
	kind      string // leading SQL keyword
	sql       string
	start     time.Time
	rows      int64 // -1 when unknown
	span      trace.Span
}

// statementKind returns the leading keyword of query, so "WITH ..." reads as
// WITH and an INSERT ... RETURNING as INSERT.
func statementKind(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

func (o *observer) begin(ctx context.Context, system, operation, query string) (context.Context, *statement) {
	st := &statement{operation: operation, kind: statementKind(query), sql: query, start: time.Now(), rows: -1}
	if o.tracer == nil {
		return ctx, st
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.system", system),
		attribute.String("db.operation", st.kind),
	}
	if o.logQueries {
		attrs = append(attrs, attribute.String("db.statement", query))
	}
	ctx, st.span = o.tracer.Start(ctx, "ormx."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, st
}

func (o *observer) end(ctx context.Context, system string, st *statement, err error) {
	elapsed := time.Since(st.start)

	if st.span != nil {
		if st.rows >= 0 {
			st.span.SetAttributes(attribute.Int64("db.rows", st.rows))
		}
		if err != nil {
			st.span.RecordError(err)
			st.span.SetStatus(codes.Error, err.Error())
		}
		st.span.End()
	}

	if m := o.metrics; m != nil {
		attrs := metric.WithAttributes(
			attribute.String("db.system", system),
			attribute.String("db.operation", st.kind),
		)
		m.Statements.Add(ctx, 1, attrs)
		m.Duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
		if err != nil {
			m.Errors.Add(ctx, 1, attrs)
		} else if st.rows >= 0 {
			m.Rows.Record(ctx, st.rows, attrs)
		}
	}

	o.log(ctx, st, elapsed, err)
}

func (o *observer) log(ctx context.Context, st *statement, elapsed time.Duration, err error) {
	if o.logger == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("operation", st.operation),
		slog.String("statement", st.kind),
		slog.Duration("duration", elapsed),
	}
	if st.rows >= 0 {
		attrs = append(attrs, slog.Int64("rows", st.rows))
	}
	if o.logQueries {
		attrs = append(attrs, slog.String("query", st.sql))
	}

	switch {
	case err != nil:
		o.logger.LogAttrs(ctx, slog.LevelError, "query failed", append(attrs, slog.String("error", err.Error()))...)
	case o.slowThreshold > 0 && elapsed > o.slowThreshold:
		o.logger.LogAttrs(ctx, slog.LevelWarn, "slow query", attrs...)
	case o.logQueries:
		o.logger.LogAttrs(ctx, slog.LevelDebug, "query executed", attrs...)
	}
}
