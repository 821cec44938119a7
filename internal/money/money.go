// Package money holds the rounding and coercion rules shared by every place that
// touches rupee amounts.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Safe turns NaN and ±Inf into 0.
func Safe(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// NonNegative is Safe plus clamping below zero.
func NonNegative(v float64) float64 {
	v = Safe(v)
	if v < 0 {
		return 0
	}
	return v
}

// Round rounds to the nearest whole rupee, halves away from zero.
func Round(v float64) float64 {
	return decimal.NewFromFloat(Safe(v)).Round(0).InexactFloat64()
}

// Round2 rounds to paise.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(Safe(v)).Round(2).InexactFloat64()
}

// Parse reads a money token such as "1,00,000.50", "₹ 1800" or "Rs.250".
func Parse(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	for _, p := range []string{"₹", "INR", "inr", "Rs.", "rs.", "Rs", "rs", "$"} {
		s = strings.TrimPrefix(s, p)
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	s = strings.TrimSuffix(s, "/-")
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}
