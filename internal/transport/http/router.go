// Package httptransport assembles the HTTP surface: the shared middleware
// chain, operational endpoints and every module's routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"examsite/pkg/platform/httputil"
	adminmw "examsite/pkg/platform/middleware/admin"
	authmw "examsite/pkg/platform/middleware/auth"
	"examsite/pkg/platform/middleware/metadata"
	request "examsite/pkg/platform/middleware/request"
	"examsite/pkg/platform/middleware/requesttime"
)

// Module mounts routes that require an authenticated caller.
type Module interface {
	Register(r chi.Router)
}

// PublicModule mounts routes reachable without a token.
type PublicModule interface {
	RegisterPublic(r chi.Router)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Logger         *slog.Logger
	Observer       request.RequestObserver
	MetricsHandler http.Handler
	MetricsToken   string
	RequestTimeout time.Duration
	Tokens         authmw.JWTValidator
	PublicLimit    func(http.Handler) http.Handler
	HealthChecks   map[string]HealthCheck
	Public         []PublicModule
	Modules        []Module
}

// NewRouter builds the root handler.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.Logger(cfg.Logger))
	if cfg.Observer != nil {
		r.Use(request.Metrics(cfg.Observer))
	}
	if cfg.RequestTimeout > 0 {
		r.Use(request.Timeout(cfg.RequestTimeout))
	}
	r.Use(request.ContentTypeJSON)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.With(adminmw.RequireAdminToken(cfg.MetricsToken, cfg.Logger)).Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		if cfg.PublicLimit != nil {
			r.Use(cfg.PublicLimit)
		}
		for _, m := range cfg.Public {
			m.RegisterPublic(r)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(cfg.Tokens, cfg.Logger))
		for _, m := range cfg.Modules {
			m.Register(r)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	})
	return r
}

// RoleGuard adapts the role middleware to the per-module guard signature.
func RoleGuard(logger *slog.Logger) func(roles ...string) func(http.Handler) http.Handler {
	return func(roles ...string) func(http.Handler) http.Handler {
		return authmw.RequireRole(logger, roles...)
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
