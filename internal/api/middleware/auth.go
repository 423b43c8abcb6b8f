package middleware

import (
	"encoding/json"
	"net/http"
)

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// AdminChecker reports whether the signed-in session is an admin.
type AdminChecker interface {
	RequireAdmin() error
}

// RequireAdmin rejects the request unless the local session belongs to an
// admin. The return server serves a single signed-in user, so there is no
// per-request token.
func RequireAdmin(checker AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := checker.RequireAdmin(); err != nil {
				respondError(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
