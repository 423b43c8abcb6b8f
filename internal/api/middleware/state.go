package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// Reloader refreshes in-memory state from its backing store.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloadState re-reads every reloader before the request is handled so the
// server sees cart and session changes made by other CLI invocations.
func ReloadState(logger *zap.Logger, reloaders ...Reloader) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, rl := range reloaders {
				if err := rl.Reload(r.Context()); err != nil {
					logger.Error("reload state", zap.String("path", r.URL.Path), zap.Error(err))
					respondError(w, "state unavailable", http.StatusServiceUnavailable)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
