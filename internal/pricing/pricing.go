// Package pricing computes final purchase prices from stacked discounts.
// All amounts are integer minor-currency units; the computation is pure and
// deterministic.
package pricing

// Input carries the full price and every discount that applies to it.
// Flat discounts (class-rep, early-bird, fixed promo amount) are applied
// before the percent discount; the order is part of the contract.
type Input struct {
	FullPrice            int64
	ClassRepDiscount     int64
	EarlyBirdDiscount    int64
	PromoDiscountAmount  int64
	PromoDiscountPercent int64
}

// FinalPrice computes the chargeable amount. The result is always within
// [0, FullPrice]. Percent discounts round to the nearest minor unit.
func FinalPrice(in Input) int64 {
	if in.FullPrice <= 0 {
		return 0
	}

	afterFixed := in.FullPrice - in.ClassRepDiscount - in.EarlyBirdDiscount - in.PromoDiscountAmount
	if afterFixed < 0 {
		afterFixed = 0
	}

	final := afterFixed
	if pct := in.PromoDiscountPercent; pct > 0 {
		if pct >= 100 {
			final = 0
		} else {
			final = (afterFixed*(100-pct) + 50) / 100
		}
	}

	if final < 0 {
		final = 0
	}
	if final > in.FullPrice {
		final = in.FullPrice
	}
	return final
}
