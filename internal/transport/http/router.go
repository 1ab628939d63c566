// Package httptransport assembles the HTTP surface: shared middleware, the
// operational endpoints, and the authenticated and admin route groups that
// module handlers mount themselves onto.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"faceguard/internal/platform/metrics"
	"faceguard/pkg/platform/httputil"
	adminmw "faceguard/pkg/platform/middleware/admin"
	authmw "faceguard/pkg/platform/middleware/auth"
	"faceguard/pkg/platform/middleware/metadata"
	"faceguard/pkg/platform/middleware/requesttime"
)

const healthCheckTimeout = 2 * time.Second

// Registrar mounts a module's routes. Module handlers expose Register and
// RegisterAdmin methods with this shape.
type Registrar func(r chi.Router)

// HealthCheck reports a dependency's readiness.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tokens  authmw.TokenValidator
	// User routes require a valid bearer token.
	User []Registrar
	// Admin routes additionally require the admin role.
	Admin  []Registrar
	Health map[string]HealthCheck
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(metadata.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/healthz", healthHandler(d.Health))
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(d.Tokens, logger))
		for _, register := range d.User {
			register(r)
		}
		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdmin(logger))
			for _, register := range d.Admin {
				register(r)
			}
		})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
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
