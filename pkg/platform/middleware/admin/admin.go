package admin

import (
	"log/slog"
	"net/http"

	"faceguard/pkg/requestcontext"
)

// RequireAdmin admits only principals carrying the admin role. It must run after
// auth.RequireAuth so the acting admin's identity is on the context for auditing.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.UserID(ctx).IsNil() || requestcontext.Role(ctx) != requestcontext.RoleAdmin {
				logger.WarnContext(ctx, "admin access denied",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", requestcontext.UserID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin role required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
