package reconcile

import (
	"testing"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/entity"
)

func findRule(t *testing.T, rules []rule, name string) rule {
	t.Helper()
	for _, r := range rules {
		if r.name == name {
			return r
		}
	}
	t.Fatalf("no rule %q", name)
	return rule{}
}

func newState(rec entity.InvoiceRecord) *state {
	if rec.ExtractionConfidence == "" {
		rec.ExtractionConfidence = constants.ConfidenceHigh
	}
	return &state{
		rec: rec,
		obs: observed{amount: rec.Amount, tax: rec.TaxAmount, total: rec.TotalAmount},
	}
}

func TestCascadeRules(t *testing.T) {
	cases := []struct {
		rule      string
		in        entity.InvoiceRecord
		applies   bool
		wantTax   float64
		wantTotal float64
		wantPct   float64
	}{
		{"derive-tax", entity.InvoiceRecord{Amount: 1000, TaxPercent: 18}, true, 180, 1180, 18},
		{"derive-tax", entity.InvoiceRecord{Amount: 1000, TaxAmount: 5}, false, 0, 0, 0},
		{"derive-tax", entity.InvoiceRecord{Amount: 1000}, false, 0, 0, 0},
		{"derive-tax", entity.InvoiceRecord{Amount: 1000, TotalAmount: 1400}, false, 0, 0, 0},
		{"derive-total", entity.InvoiceRecord{Amount: 1000, TaxAmount: 120, TaxPercent: 12}, true, 120, 1120, 12},
		{"derive-total", entity.InvoiceRecord{Amount: 1000, TaxAmount: 120, TotalAmount: 1}, false, 0, 0, 0},
		{"tax-from-total", entity.InvoiceRecord{Amount: 1000, TaxAmount: 1, TotalAmount: 1280}, true, 280, 1280, 28},
		{"tax-from-total", entity.InvoiceRecord{Amount: 1000, TotalAmount: 1000}, false, 0, 0, 0},
		{"total-below-amount", entity.InvoiceRecord{Amount: 1000, TaxAmount: 50, TotalAmount: 900, TaxPercent: 5}, true, 50, 1050, 5},
		{"backward-from-total", entity.InvoiceRecord{TotalAmount: 1120, TaxPercent: 12}, true, 120, 1120, 12},
		{"backward-from-total", entity.InvoiceRecord{TotalAmount: 1120}, false, 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.rule, func(t *testing.T) {
			r := findRule(t, cascade, tc.rule)
			s := newState(tc.in)
			if got := r.applies(s); got != tc.applies {
				t.Fatalf("applies(%+v) = %v, want %v", tc.in, got, tc.applies)
			}
			if !tc.applies {
				return
			}
			r.apply(s)
			if s.rec.TaxAmount != tc.wantTax || s.rec.TotalAmount != tc.wantTotal || s.rec.TaxPercent != tc.wantPct {
				t.Fatalf("after %s: tax=%v total=%v pct=%v, want %v/%v/%v",
					tc.rule, s.rec.TaxAmount, s.rec.TotalAmount, s.rec.TaxPercent, tc.wantTax, tc.wantTotal, tc.wantPct)
			}
			if !s.rec.Balanced() {
				t.Fatalf("after %s: unbalanced %+v", tc.rule, s.rec)
			}
		})
	}
}

func TestBreakdownOverrideTolerance(t *testing.T) {
	r := findRule(t, corrections, "breakdown-override")

	within := newState(entity.InvoiceRecord{Amount: 1000, TaxAmount: 179, TotalAmount: 1179,
		TaxBreakdown: entity.TaxBreakdown{CGST: ptr(90), SGST: ptr(90)}})
	if r.applies(within) {
		t.Fatal("override applied within tolerance")
	}

	beyond := newState(entity.InvoiceRecord{Amount: 1000, TaxAmount: 170, TotalAmount: 1170,
		TaxBreakdown: entity.TaxBreakdown{IGST: ptr(180)}})
	if !r.applies(beyond) {
		t.Fatal("override not applied beyond tolerance")
	}
	r.apply(beyond)
	if beyond.rec.TaxAmount != 180 || beyond.rec.TotalAmount != 1180 || beyond.rec.TaxPercent != 18 {
		t.Fatalf("after override: %+v", beyond.rec)
	}

	noAmount := newState(entity.InvoiceRecord{TotalAmount: 1180, TaxBreakdown: entity.TaxBreakdown{IGST: ptr(180)}})
	if r.applies(noAmount) {
		t.Fatal("override applied without an amount")
	}
}

func TestFillAmount(t *testing.T) {
	r := findRule(t, corrections, "fill-amount")

	s := newState(entity.InvoiceRecord{TaxAmount: 180, TotalAmount: 1180})
	if !r.applies(s) {
		t.Fatal("fill-amount did not apply")
	}
	r.apply(s)
	if s.rec.Amount != 1000 || !s.rec.Balanced() {
		t.Fatalf("after fill-amount: %+v", s.rec)
	}

	over := newState(entity.InvoiceRecord{TaxAmount: 2000, TotalAmount: 1180})
	r.apply(over)
	if over.rec.Amount != 0 {
		t.Fatalf("Amount = %v, want 0 when tax exceeds total", over.rec.Amount)
	}

	if r.applies(newState(entity.InvoiceRecord{TotalAmount: 1180})) {
		t.Fatal("fill-amount applied with no tax")
	}
}

func TestBackfillPercent(t *testing.T) {
	r := findRule(t, corrections, "backfill-percent")
	s := newState(entity.InvoiceRecord{Amount: 1000, TaxAmount: 119, TotalAmount: 1119})
	if !r.applies(s) {
		t.Fatal("backfill-percent did not apply")
	}
	r.apply(s)
	if s.rec.TaxPercent != 12 {
		t.Fatalf("TaxPercent = %v, want 12", s.rec.TaxPercent)
	}
}

func TestPercentSourcesOrder(t *testing.T) {
	cases := []struct {
		name string
		rec  entity.InvoiceRecord
		hint float64
		want float64
	}{
		{"explicit wins", entity.InvoiceRecord{Amount: 1000, TaxPercent: 12, TaxAmount: 280}, 5, 12},
		{"breakdown ratio", entity.InvoiceRecord{Amount: 1000, TaxAmount: 280, TaxBreakdown: entity.TaxBreakdown{CGST: ptr(25), SGST: ptr(25)}}, 0, 5},
		{"tax ratio", entity.InvoiceRecord{Amount: 1000, TaxAmount: 280, TotalAmount: 1050}, 0, 28},
		{"total ratio", entity.InvoiceRecord{Amount: 1000, TotalAmount: 1120}, 0, 12},
		{"hint", entity.InvoiceRecord{TotalAmount: 1120}, 17, 18},
		{"unknown", entity.InvoiceRecord{TotalAmount: 1120}, 0, 0},
		{"total below amount", entity.InvoiceRecord{Amount: 1000, TotalAmount: 900}, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newState(tc.rec)
			s.hint = tc.hint
			if got := resolvePercent(s); got != tc.want {
				t.Fatalf("resolvePercent() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPolicyUnbalancedCatchAll(t *testing.T) {
	r := findRule(t, policies, "unbalanced")
	s := newState(entity.InvoiceRecord{TaxAmount: 500, TotalAmount: 300})
	if !r.applies(s) {
		t.Fatal("unbalanced did not apply")
	}
	r.apply(s)
	if !s.manual || s.rec.ExtractionConfidence != constants.ConfidenceLow {
		t.Fatalf("manual=%v confidence=%q", s.manual, s.rec.ExtractionConfidence)
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2024-03-05":    "2024-03-05",
		"05/03/2024":    "2024-03-05",
		"5-3-2024":      "2024-03-05",
		"05.03.2024":    "2024-03-05",
		"5 Mar 2024":    "2024-03-05",
		"March 5, 2024": "2024-03-05",
		"05-Mar-24":     "2024-03-05",
		"sometime":      "sometime",
		"  ":            "",
	}
	for in, want := range cases {
		if got := NormalizeDate(in); got != want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", in, got, want)
		}
	}
}
