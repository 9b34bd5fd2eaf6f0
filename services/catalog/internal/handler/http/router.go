package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/bookcatalog/pkg/health"
	"github.com/utafrali/bookcatalog/pkg/middleware"
)

// ServiceName labels metrics and spans.
const ServiceName = "catalog"

// RouterConfig holds the router's tunables.
type RouterConfig struct {
	CORSOrigins []string
	PprofCIDRs  []string
	Timeout     time.Duration
}

// NewRouter creates a chi router serving /graphql plus the operational
// endpoints. Requests carrying a bearer secret are resolved to a user id
// before reaching the GraphQL handler.
func NewRouter(
	graphqlHandler http.Handler,
	resolveSecret middleware.SecretResolver,
	healthHandler *health.Handler,
	metrics *middleware.HTTPMetrics,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORSOrigins) > 0 {
		cors.AllowedOrigins = cfg.CORSOrigins
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cors))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.Timeout))
	r.Use(middleware.RequestLogging(logger, "/health", "/metrics"))
	r.Use(metrics.Middleware)
	r.Use(middleware.Tracing(ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(resolveSecret, logger))
		r.Use(middleware.RequestLogger(logger))
		r.Handle("/graphql", graphqlHandler)
	})

	return r
}
