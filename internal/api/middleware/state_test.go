package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubReloader struct {
	calls int
	err   error
}

func (s *stubReloader) Reload(ctx context.Context) error {
	s.calls++
	return s.err
}

// ============================================
// ReloadState Tests
// ============================================

func TestReloadState(t *testing.T) {
	tests := []struct {
		name        string
		firstErr    error
		expected    int
		secondCalls int
	}{
		{"reloads every store", nil, http.StatusOK, 1},
		{"load failure stops the request", errors.New("disk unplugged"), http.StatusServiceUnavailable, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := &stubReloader{err: tt.firstErr}
			second := &stubReloader{}
			core, logs := observer.New(zap.ErrorLevel)
			handler := ReloadState(zap.New(core), first, second)(okHandler())

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

			assert.Equal(t, tt.expected, rec.Code)
			assert.Equal(t, 1, first.calls)
			assert.Equal(t, tt.secondCalls, second.calls)
			if tt.firstErr != nil {
				assert.Contains(t, rec.Body.String(), "state unavailable")
				assert.Equal(t, 1, logs.Len())
			}
		})
	}
}

func TestReloadState_RunsOnEveryRequest(t *testing.T) {
	rl := &stubReloader{}
	handler := ReloadState(nil, rl)(okHandler())

	for range 3 {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cart", nil))
	}

	assert.Equal(t, 3, rl.calls)
}
