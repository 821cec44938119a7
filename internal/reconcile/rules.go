package reconcile

import (
	"math"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/money"
)

// BreakdownTolerance is how far, in rupees, the component taxes may drift from the
// tax amount before they override it.
const BreakdownTolerance = 2

// percentSources are tried in order until one yields a non-zero slab.
var percentSources = []struct {
	name  string
	value func(*state) float64
}{
	{"explicit", func(s *state) float64 { return s.rec.TaxPercent }},
	{"breakdown-ratio", func(s *state) float64 {
		if s.rec.Amount <= 0 {
			return 0
		}
		return s.rec.TaxBreakdown.Sum() / s.rec.Amount * 100
	}},
	{"tax-ratio", func(s *state) float64 {
		if s.rec.Amount <= 0 {
			return 0
		}
		return s.rec.TaxAmount / s.rec.Amount * 100
	}},
	{"total-ratio", func(s *state) float64 {
		if s.rec.Amount <= 0 || s.rec.TotalAmount <= 0 {
			return 0
		}
		return (s.rec.TotalAmount/s.rec.Amount - 1) * 100
	}},
	{"hint", func(s *state) float64 { return s.hint }},
}

func resolvePercent(s *state) float64 {
	for _, src := range percentSources {
		v := src.value(s)
		if v <= 0 || math.IsNaN(v) {
			continue
		}
		if p := s.snap(v); p > 0 {
			s.applied = append(s.applied, "percent:"+src.name)
			return p
		}
	}
	return 0
}

func (s *state) taxFromPercent() float64 {
	return money.Round(s.rec.Amount * s.rec.TaxPercent / 100)
}

func (s *state) percentFromTax() float64 {
	if s.rec.Amount <= 0 {
		return 0
	}
	return s.snap(money.Round(s.rec.TaxAmount / s.rec.Amount * 100))
}

// cascade completes {amount, tax, total}; only the first applicable rule runs.
var cascade = []rule{
	{
		name: "derive-tax",
		applies: func(s *state) bool {
			r := s.rec
			return r.Amount > 0 && r.TaxAmount == 0 && r.TaxPercent > 0
		},
		apply: func(s *state) {
			s.rec.TaxAmount = s.taxFromPercent()
			s.settle()
		},
	},
	{
		name: "derive-total",
		applies: func(s *state) bool {
			r := s.rec
			return r.Amount > 0 && r.TaxAmount > 0 && r.TotalAmount == 0
		},
		apply: func(s *state) { s.settle() },
	},
	{
		name: "tax-from-total",
		applies: func(s *state) bool {
			r := s.rec
			return r.Amount > 0 && r.TotalAmount > r.Amount
		},
		apply: func(s *state) {
			s.rec.TaxAmount = money.Round2(s.rec.TotalAmount - s.rec.Amount)
			s.rec.TaxPercent = s.percentFromTax()
			s.settle()
		},
	},
	{
		name: "total-below-amount",
		applies: func(s *state) bool {
			r := s.rec
			return r.Amount > 0 && r.TotalAmount > 0 && r.TotalAmount <= r.Amount
		},
		apply: func(s *state) { s.settle() },
	},
	{
		name: "backward-from-total",
		applies: func(s *state) bool {
			r := s.rec
			return r.Amount == 0 && r.TotalAmount > 0 && r.TaxPercent > 0
		},
		apply: func(s *state) {
			total := s.rec.TotalAmount
			amount := money.Round(total / (1 + s.rec.TaxPercent/100))
			if amount > total {
				amount = total
			}
			s.rec.Amount = amount
			s.rec.TaxAmount = money.Round2(total - amount)
			s.settle()
		},
	},
}

// corrections all run, in order, after the cascade.
var corrections = []rule{
	{
		name: "breakdown-override",
		applies: func(s *state) bool {
			sum := s.rec.TaxBreakdown.Sum()
			return s.rec.Amount > 0 && sum > 0 && math.Abs(sum-s.rec.TaxAmount) > BreakdownTolerance
		},
		apply: func(s *state) {
			s.rec.TaxAmount = money.Round2(s.rec.TaxBreakdown.Sum())
			s.settle()
			s.rec.TaxPercent = s.percentFromTax()
		},
	},
	{
		name: "fill-total",
		applies: func(s *state) bool {
			r := s.rec
			return r.Amount > 0 && r.TaxAmount > 0 && r.TotalAmount == 0
		},
		apply: func(s *state) { s.settle() },
	},
	{
		name: "fill-amount",
		applies: func(s *state) bool {
			r := s.rec
			return r.Amount == 0 && r.TotalAmount > 0 && r.TaxAmount > 0
		},
		apply: func(s *state) {
			s.rec.Amount = money.Round2(math.Max(s.rec.TotalAmount-s.rec.TaxAmount, 0))
			if s.rec.Amount > 0 {
				s.settle()
			}
		},
	},
	{
		name: "backfill-percent",
		applies: func(s *state) bool {
			r := s.rec
			return r.TaxPercent == 0 && r.Amount > 0 && r.TaxAmount > 0
		},
		apply: func(s *state) { s.rec.TaxPercent = s.percentFromTax() },
	},
}

// policies grade the outcome. They never invent amounts.
var policies = []rule{
	{
		name: "degenerate",
		applies: func(s *state) bool {
			return s.rec.Amount <= 0 && s.rec.TotalAmount <= 0
		},
		apply: func(s *state) {
			s.rec.Amount, s.rec.TotalAmount = 0, 0
			s.lower(constants.ConfidenceLow)
			s.manual = true
		},
	},
	{
		name: "only-total",
		applies: func(s *state) bool {
			return s.obs.onlyTotal() && s.rec.TotalAmount > 0
		},
		apply: func(s *state) {
			s.lower(constants.ConfidenceLow)
			if s.rec.TaxPercent == 0 {
				s.manual = true
			}
		},
	},
	{
		name: "only-amount",
		applies: func(s *state) bool {
			return s.obs.onlyAmount()
		},
		apply: func(s *state) {
			if s.rec.TaxPercent == 0 {
				s.lower(constants.ConfidenceLow)
				s.manual = true
				return
			}
			s.lower(constants.ConfidenceMedium)
		},
	},
	{
		// A rate that resolved from a later source only costs confidence. One that
		// never resolved is left at 0 for the user to enter.
		name: "off-slab-rate",
		applies: func(s *state) bool {
			return s.offSlab
		},
		apply: func(s *state) {
			if s.rec.TaxPercent > 0 {
				s.lower(constants.ConfidenceMedium)
				return
			}
			s.lower(constants.ConfidenceLow)
			s.manual = true
		},
	},
	{
		name: "unbalanced",
		applies: func(s *state) bool {
			return !s.manual && !s.rec.Balanced()
		},
		apply: func(s *state) {
			s.lower(constants.ConfidenceLow)
			s.manual = true
		},
	},
	{
		name: "deviation-low",
		applies: func(s *state) bool {
			return deviation(s) > LowConfidenceDeviation && s.rec.ExtractionConfidence != constants.ConfidenceLow
		},
		apply: func(s *state) { s.lower(constants.ConfidenceLow) },
	},
	{
		name: "deviation-medium",
		applies: func(s *state) bool {
			return deviation(s) > MediumConfidenceDeviation && s.rec.ExtractionConfidence == constants.ConfidenceHigh
		},
		apply: func(s *state) { s.lower(constants.ConfidenceMedium) },
	},
	{
		name: "clear-tax-rates",
		applies: func(s *state) bool {
			rates := s.rec.AllTaxRates
			if len(rates) == 0 {
				return false
			}
			var sum float64
			for _, r := range rates {
				sum += r
			}
			return math.Abs(sum-s.rec.TaxPercent) > 1e-9
		},
		apply: func(s *state) { s.rec.AllTaxRates = nil },
	},
}
