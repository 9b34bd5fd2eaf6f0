// Package graphql exposes the catalog services as a GraphQL API.
package graphql

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/graph-gophers/graphql-go"
	gqlotel "github.com/graph-gophers/graphql-go/trace/otel"
	"go.opentelemetry.io/otel"

	"github.com/utafrali/bookcatalog/pkg/logger"
)

//go:embed schema.graphql
var sdl string

// DefaultMaxDepth bounds query nesting when no limit is configured.
const DefaultMaxDepth = 10

// NewSchema parses the embedded schema against root. Resolver spans are
// emitted through the global OpenTelemetry tracer provider.
func NewSchema(root *Resolver, maxDepth int, l *slog.Logger) (*graphql.Schema, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	schema, err := graphql.ParseSchema(sdl, root,
		graphql.UseFieldResolvers(),
		graphql.MaxDepth(maxDepth),
		graphql.Tracer(&gqlotel.Tracer{Tracer: otel.Tracer("catalog-graphql")}),
		graphql.Logger(panicLogger{l}),
	)
	if err != nil {
		return nil, fmt.Errorf("parse graphql schema: %w", err)
	}
	return schema, nil
}

// panicLogger routes recovered resolver panics to slog.
type panicLogger struct {
	l *slog.Logger
}

func (p panicLogger) LogPanic(ctx context.Context, value interface{}) {
	logger.WithContext(ctx, p.l).ErrorContext(ctx, "graphql resolver panic",
		slog.String("panic", fmt.Sprint(value)),
	)
}
