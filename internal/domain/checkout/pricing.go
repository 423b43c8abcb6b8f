package checkout

const (
	DefaultFreeShippingThreshold int64 = 500000
	DefaultFlatShippingFee       int64 = 30000
)

// Policy decides shipping for a cart subtotal. Orders strictly above the
// threshold ship free; everything else pays the flat fee.
type Policy struct {
	FreeShippingThreshold int64
	FlatShippingFee       int64
}

func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		FlatShippingFee:       DefaultFlatShippingFee,
	}
}

// Quote is the priced breakdown shown at checkout. All amounts are VND.
type Quote struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
}

func (q Quote) FreeShipping() bool {
	return q.Shipping == 0
}

func (p Policy) Shipping(subtotal int64) int64 {
	if subtotal > p.FreeShippingThreshold {
		return 0
	}
	return p.FlatShippingFee
}

// Quote prices a subtotal. It is recomputed on every read and never stored.
func (p Policy) Quote(subtotal, discount int64) Quote {
	shipping := p.Shipping(subtotal)
	return Quote{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Total:    subtotal - discount + shipping,
	}
}

// RemainingForFreeShipping is how much more the customer has to add before
// shipping becomes free. Zero once it already is.
func (p Policy) RemainingForFreeShipping(subtotal int64) int64 {
	if subtotal > p.FreeShippingThreshold {
		return 0
	}
	return p.FreeShippingThreshold - subtotal + 1
}
