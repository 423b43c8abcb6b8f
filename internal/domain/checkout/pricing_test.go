package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Quote(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name     string
		subtotal int64
		discount int64
		shipping int64
		total    int64
	}{
		{"empty cart pays flat fee", 0, 0, 30000, 30000},
		{"below threshold", 250000, 0, 30000, 280000},
		{"exactly at threshold pays fee", 500000, 0, 30000, 530000},
		{"one dong above threshold ships free", 500001, 0, 0, 500001},
		{"discount applied before shipping", 800000, 100000, 0, 700000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := policy.Quote(tt.subtotal, tt.discount)

			assert.Equal(t, tt.subtotal, q.Subtotal)
			assert.Equal(t, tt.discount, q.Discount)
			assert.Equal(t, tt.shipping, q.Shipping)
			assert.Equal(t, tt.total, q.Total)
			assert.Equal(t, tt.shipping == 0, q.FreeShipping())
		})
	}
}

func TestPolicy_CustomThresholds(t *testing.T) {
	policy := Policy{FreeShippingThreshold: 100, FlatShippingFee: 7}

	assert.Equal(t, int64(7), policy.Shipping(100))
	assert.Equal(t, int64(0), policy.Shipping(101))
}

func TestPolicy_RemainingForFreeShipping(t *testing.T) {
	policy := DefaultPolicy()

	assert.Equal(t, int64(500001), policy.RemainingForFreeShipping(0))
	assert.Equal(t, int64(1), policy.RemainingForFreeShipping(500000))
	assert.Equal(t, int64(0), policy.RemainingForFreeShipping(500001))
	assert.Equal(t, int64(0), policy.RemainingForFreeShipping(2000000))
}
