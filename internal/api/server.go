// SPDX-License-Identifier: MIT

// Package api provides the HTTP server of the DIYP guide endpoint.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/diyepg/internal/api/middleware"
	"github.com/ManuGH/diyepg/internal/config"
	"github.com/ManuGH/diyepg/internal/diyp"
	"github.com/ManuGH/diyepg/internal/health"
	"github.com/ManuGH/diyepg/internal/telemetry"
)

// Guide answers guide lookups. *guide.Service implements it.
type Guide interface {
	Lookup(ctx context.Context, q diyp.Query) (diyp.Response, error)
	Now() time.Time
	Location() *time.Location
}

// Options configures the router.
type Options struct {
	AllowedOrigins []string

	// ServeMetrics mounts /metrics on the main router. It is off when a
	// separate metrics listener is configured.
	ServeMetrics bool

	// TracingService names the server spans; empty disables HTTP tracing.
	TracingService string
}

// OptionsFrom derives router options from the application config.
func OptionsFrom(cfg config.AppConfig) Options {
	opts := Options{
		AllowedOrigins: cfg.AllowedOrigins,
		ServeMetrics:   cfg.MetricsAddr == "",
	}
	if cfg.Tracing.Enabled {
		opts.TracingService = telemetry.ServiceName
	}
	return opts
}

// epgPaths are the routes answering guide requests. DIYP players are
// configured with a bare URL, so "/" is included.
var epgPaths = []string{"/", "/epg", "/json", "/diyp"}

// Server represents the HTTP API server.
type Server struct {
	guide  Guide
	health *health.Manager
	opts   Options
}

// New creates a Server. A nil health manager gets an empty one.
func New(g Guide, hm *health.Manager, opts Options) *Server {
	if hm == nil {
		hm = health.NewManager("")
	}
	return &Server{guide: g, health: hm, opts: opts}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins:        s.opts.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.opts.TracingService,
		EnableLogging:         true,
	})
	r.Use(chimw.GetHead)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	if s.opts.ServeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(compress)
		for _, p := range epgPaths {
			r.Get(p, s.handleEPG)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "only GET is supported")
	})
	return r
}

// compress gzips responses for clients that accept it.
func compress(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}
