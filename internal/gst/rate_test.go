package gst

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/gst-bills/internal/entity"
)

func TestParseRate(t *testing.T) {
	cases := []struct {
		in   string
		want Rate
	}{
		{"9+9", Rate{Percent: 18, Components: []float64{9, 9}}},
		{"9 + 9", Rate{Percent: 18, Components: []float64{9, 9}}},
		{"2.5,2.5", Rate{Percent: 5, Components: []float64{2.5, 2.5}}},
		{"6 6", Rate{Percent: 12, Components: []float64{6, 6}}},
		{"18", Rate{Percent: 18}},
		{" 18 % ", Rate{Percent: 18}},
		{"28+", Rate{Percent: 28}},
	}
	for _, c := range cases {
		got, ok := ParseRate(c.in)
		if !ok {
			t.Fatalf("ParseRate(%q) failed", c.in)
		}
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Fatalf("ParseRate(%q) mismatch (-want +got):\n%s", c.in, diff)
		}
	}
	if _, ok := ParseRate("gst"); ok {
		t.Fatalf("expected failure without digits")
	}
}

func TestEditRateCompoundThenSingle(t *testing.T) {
	rec := entity.InvoiceRecord{Amount: 10000}

	rec, ok := EditRate(rec, "9+9")
	if !ok {
		t.Fatalf("edit failed")
	}
	if rec.TaxPercent != 18 || rec.TaxAmount != 1800 || rec.TotalAmount != 11800 {
		t.Fatalf("unexpected record after 9+9: %+v", rec)
	}
	if diff := cmp.Diff([]float64{9, 9}, rec.AllTaxRates); diff != "" {
		t.Fatalf("components mismatch (-want +got):\n%s", diff)
	}

	rec, _ = EditRate(rec, "18")
	if rec.AllTaxRates != nil {
		t.Fatalf("single rate must clear components, got %v", rec.AllTaxRates)
	}
	if rec.TaxPercent != 18 || !rec.Balanced() {
		t.Fatalf("unexpected record after 18: %+v", rec)
	}
}

func TestEditAmountRecomputes(t *testing.T) {
	rec := entity.InvoiceRecord{Amount: 100, TaxPercent: 12, TaxAmount: 12, TotalAmount: 112}
	rec = EditAmount(rec, 2499.5)
	if rec.TaxAmount != 300 || rec.TotalAmount != 2799.5 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !rec.Balanced() {
		t.Fatalf("edited record must balance")
	}

	rec = EditAmount(rec, -10)
	if rec.Amount != 0 || rec.TaxAmount != 0 || rec.TotalAmount != 0 {
		t.Fatalf("negative amount must clamp to zero: %+v", rec)
	}
}

func TestEditRateRejectsGarbage(t *testing.T) {
	rec := entity.InvoiceRecord{Amount: 100, TaxPercent: 5, TaxAmount: 5, TotalAmount: 105}
	got, ok := EditRate(rec, "abc")
	if ok {
		t.Fatalf("expected rejection")
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("record must be untouched (-want +got):\n%s", diff)
	}
}
