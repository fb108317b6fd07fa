package main

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eucookie/internal/pageload/handler"
	"eucookie/internal/platform/config"
	"eucookie/internal/platform/health"
	"eucookie/pkg/platform/middleware/admin"
	"eucookie/pkg/platform/middleware/metadata"
	"eucookie/pkg/platform/middleware/request"
	"eucookie/pkg/platform/validation"
)

type routerDeps struct {
	cfg            config.Server
	logger         *slog.Logger
	registry       *prometheus.Registry
	trustedProxies []netip.Prefix
	pages          *handler.Handler
	health         *health.Handler
	latency        *request.Metrics
}

func newRouter(deps routerDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(&metadata.Config{TrustedProxies: deps.trustedProxies}).Handler)
	r.Use(request.Recovery(deps.logger))
	r.Use(request.Logger(deps.logger))
	r.Use(request.Latency(deps.latency, routePattern))

	deps.health.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(deps.cfg.RequestTimeout))
		r.Use(request.BodyLimit(validation.MaxBodySize))
		r.Use(request.ContentTypeJSON)
		deps.pages.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(deps.cfg.AdminToken, deps.logger))
			deps.pages.RegisterAdmin(r)
		})
	})
	return r
}

// routePattern labels latency by route template so page IDs do not become labels.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
