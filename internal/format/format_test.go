package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVND(t *testing.T) {
	tests := []struct {
		amount   int64
		expected string
	}{
		{0, "0 ₫"},
		{30000, "30.000 ₫"},
		{500001, "500.001 ₫"},
		{1250000, "1.250.000 ₫"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, VND(tt.amount))
		})
	}
}

func TestDateTime(t *testing.T) {
	ts := time.Date(2026, 3, 4, 20, 5, 9, 0, time.UTC)

	assert.Equal(t, "03:05:09 5/3/2026", DateTime(ts))
	assert.Empty(t, DateTime(time.Time{}))
}

func TestDate(t *testing.T) {
	ts := time.Date(2026, 3, 5, 1, 0, 0, 0, Vietnam)

	assert.Equal(t, "2026-03-04", Date(ts))
}
