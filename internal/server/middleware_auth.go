package server

import (
	"net/http"

	"vrbridge/internal/auth"
)

// RequireAuth gates a route group behind an admin session. A Service with no
// auth method configured passes everything through.
func RequireAuth(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if svc != nil && svc.Enabled() && !svc.Authenticated(r) {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
