package service

import "github.com/shopspring/decimal"

// Per-unit royalty rates, USD. Click is part of the rate table but only views
// and shares feed statement totals today.
var (
	RateView  = decimal.NewFromFloat(0.001)
	RateShare = decimal.NewFromFloat(0.01)
	RateClick = decimal.NewFromFloat(0.005)
)

// CalculateRoyalty prices a counter triple, rounded to cents. Deterministic
// and monotonically non-decreasing in every argument.
func CalculateRoyalty(views, shares, clicks int64) decimal.Decimal {
	amount := RateView.Mul(decimal.NewFromInt(views)).
		Add(RateShare.Mul(decimal.NewFromInt(shares))).
		Add(RateClick.Mul(decimal.NewFromInt(clicks)))
	return amount.Round(2)
}
