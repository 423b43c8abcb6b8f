package main

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================
// Browser Navigator Tests
// ============================================

func TestBrowserNavigator_Navigate(t *testing.T) {
	tests := []struct {
		name      string
		open      bool
		program   string
		wantCalls int
		wantErr   string
	}{
		{"print only", false, "true", 0, ""},
		{"opener succeeds", true, "true", 1, ""},
		{"opener exit status is returned", true, "false", 1, "open browser: exit status 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := exec.LookPath(tt.program); err != nil {
				t.Skipf("%s not available", tt.program)
			}
			var out bytes.Buffer
			var calls int
			var cmd *exec.Cmd
			nav := browserNavigator{
				out:  &out,
				open: tt.open,
				opener: func(ctx context.Context, url string) *exec.Cmd {
					calls++
					cmd = exec.CommandContext(ctx, tt.program)
					return cmd
				},
			}

			err := nav.Navigate(context.Background(), "https://pay.example/o/1")

			assert.Contains(t, out.String(), "Mở trang thanh toán: https://pay.example/o/1")
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			if cmd != nil {
				// Run has waited, so the child is reaped.
				assert.NotNil(t, cmd.ProcessState)
			}
		})
	}
}
