package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glowcart/storefront-search/pkg/health"
	"github.com/glowcart/storefront-search/pkg/middleware"
)

// requestTimeout bounds storefront requests. Admin sync requests run a full
// reindex and are not bounded.
const requestTimeout = 30 * time.Second

// RouterConfig holds the router settings taken from the service config.
type RouterConfig struct {
	Service string
	// AdminJWTSecret enables bearer token checks on the admin routes. Empty
	// disables them.
	AdminJWTSecret string
}

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(
	searcher Searcher,
	suggester Suggester,
	syncer Syncer,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.Service))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.Service))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	searchHandler := NewSearchHandler(searcher, logger)
	suggestionHandler := NewSuggestionHandler(suggester, logger)
	adminHandler := NewAdminHandler(syncer, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))
			r.Get("/search", searchHandler.Search)
			r.Get("/search/suggestions", suggestionHandler.Suggest)
			r.Get("/products", searchHandler.List)
		})

		r.Route("/admin", func(r chi.Router) {
			if cfg.AdminJWTSecret != "" {
				r.Use(middleware.Auth(middleware.HS256Validator(cfg.AdminJWTSecret)))
				r.Use(middleware.RequireRole(middleware.RoleAdmin))
				r.Use(middleware.RequestLogger(logger))
			}
			r.Get("/sync", adminHandler.Status)
			r.Post("/sync", adminHandler.Sync)
		})
	})

	return r
}
