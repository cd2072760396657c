// Package pricing computes ticket batch totals from the tiered price table.
package pricing

// Engine maps a requested quantity of tickets to a total amount. It is a
// pure function of its configuration; prices are whole currency units.
type Engine struct {
	// UnitPrice applies below Tier1From.
	UnitPrice int64
	// TierPrice1 applies from Tier1From up to (not including) BundleSize.
	TierPrice1 int64
	// BundlePrice is the flat total at exactly BundleSize units. The step
	// is intentionally non-linear and must not be smoothed.
	BundlePrice int64
	// TierPrice2 applies above BundleSize.
	TierPrice2 int64
	// Tier1From is the smallest quantity priced at TierPrice1.
	Tier1From int
	// BundleSize is the quantity that triggers the flat bundle price.
	BundleSize int
}

// Default returns the production price table.
func Default() Engine {
	return Engine{
		UnitPrice:   25,
		TierPrice1:  22,
		BundlePrice: 1999,
		TierPrice2:  20,
		Tier1From:   10,
		BundleSize:  100,
	}
}

// Total returns the batch total for quantity units. Quantities below one
// price to zero; callers reject them as validation errors before pricing.
func (e Engine) Total(quantity int) int64 {
	if quantity < 1 {
		return 0
	}
	switch {
	case quantity < e.Tier1From:
		return int64(quantity) * e.UnitPrice
	case quantity < e.BundleSize:
		return int64(quantity) * e.TierPrice1
	case quantity == e.BundleSize:
		return e.BundlePrice
	default:
		return int64(quantity) * e.TierPrice2
	}
}

// Split divides a batch total into per-unit amounts. Shares are equal with
// the rounding remainder absorbed into the last unit, so the shares always
// sum exactly to the total.
func Split(total int64, quantity int) []int64 {
	if quantity < 1 {
		return nil
	}
	share := total / int64(quantity)
	out := make([]int64, quantity)
	for i := range out {
		out[i] = share
	}
	out[quantity-1] += total - share*int64(quantity)
	return out
}
