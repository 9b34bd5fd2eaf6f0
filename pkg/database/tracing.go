package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/bookcatalog/pkg/database"

// CommandTracer turns driver command events into client spans and logs
// commands slower than a threshold. A zero threshold or nil logger
// disables slow command logging.
type CommandTracer struct {
	threshold time.Duration
	logger    *slog.Logger

	mu    sync.Mutex
	spans map[int64]trace.Span
}

// NewCommandTracer creates a tracer with the given slow command threshold.
func NewCommandTracer(threshold time.Duration, logger *slog.Logger) *CommandTracer {
	return &CommandTracer{
		threshold: threshold,
		logger:    logger,
		spans:     make(map[int64]trace.Span),
	}
}

// Monitor returns the driver hook.
func (t *CommandTracer) Monitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started:   t.started,
		Succeeded: t.succeeded,
		Failed:    t.failed,
	}
}

func (t *CommandTracer) started(ctx context.Context, evt *event.CommandStartedEvent) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "mongodb"),
		attribute.String("db.name", evt.DatabaseName),
		attribute.String("db.operation", evt.CommandName),
	}
	if coll, ok := evt.Command.Lookup(evt.CommandName).StringValueOK(); ok {
		attrs = append(attrs, attribute.String("db.mongodb.collection", coll))
	}

	_, span := otel.Tracer(tracerName).Start(ctx, "mongo."+evt.CommandName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	t.mu.Lock()
	t.spans[evt.RequestID] = span
	t.mu.Unlock()
}

func (t *CommandTracer) succeeded(ctx context.Context, evt *event.CommandSucceededEvent) {
	t.finish(ctx, evt.CommandFinishedEvent, "")
}

func (t *CommandTracer) failed(ctx context.Context, evt *event.CommandFailedEvent) {
	t.finish(ctx, evt.CommandFinishedEvent, evt.Failure)
}

func (t *CommandTracer) finish(ctx context.Context, evt event.CommandFinishedEvent, failure string) {
	t.mu.Lock()
	span, ok := t.spans[evt.RequestID]
	delete(t.spans, evt.RequestID)
	t.mu.Unlock()

	if ok {
		if failure != "" {
			span.SetStatus(codes.Error, failure)
		}
		span.End()
	}

	if t.threshold <= 0 || t.logger == nil || evt.Duration < t.threshold {
		return
	}
	attrs := []any{
		slog.String("command", evt.CommandName),
		slog.String("database", evt.DatabaseName),
		slog.Duration("duration", evt.Duration),
	}
	if failure != "" {
		attrs = append(attrs, slog.String("error", failure))
	}
	t.logger.WarnContext(ctx, "slow mongo command", attrs...)
}

// InFlight reports the number of commands started but not yet finished.
func (t *CommandTracer) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.spans)
}
