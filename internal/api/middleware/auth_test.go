package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubChecker struct{ err error }

func (s stubChecker) RequireAdmin() error { return s.err }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// ============================================
// RequireAdmin Tests
// ============================================

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"admin passes", nil, http.StatusOK},
		{"non-admin forbidden", errors.New("admin session required"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
			rec := httptest.NewRecorder()

			RequireAdmin(stubChecker{err: tt.err})(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestRequireAdmin_ErrorBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	rec := httptest.NewRecorder()

	RequireAdmin(stubChecker{err: errors.New("no")})(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
}

// ============================================
// RequestLogger Tests
// ============================================

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	}))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "http", entries[0].LoggerName)
		assert.Equal(t, "/health", fields["path"])
		assert.Equal(t, int64(http.StatusTeapot), fields["status"])
		assert.Equal(t, int64(2), fields["bytes"])
	}
}

func TestRequestLogger_NilLogger(t *testing.T) {
	rec := httptest.NewRecorder()

	RequestLogger(nil)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
