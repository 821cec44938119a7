package hints

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseIntraState(t *testing.T) {
	text := `ABC Traders
Sub Total: Rs. 1,000.00
CGST @ 9% : 90.00
SGST @ 9% : 90.00
Grand Total ₹1,180.00`

	got := Parse(text)
	want := LocalHints{
		Taxable:    1000,
		Total:      1180,
		CGST:       90,
		SGST:       90,
		TaxAmount:  180,
		GSTPercent: 18,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSubTotalAmountLabel(t *testing.T) {
	got := Parse("Sub Total Amount: 1,000.00\nCGST 9% 90\nSGST 9% 90\nGrand Total: 1,180.00")
	want := LocalHints{
		Taxable:    1000,
		Total:      1180,
		CGST:       90,
		SGST:       90,
		TaxAmount:  180,
		GSTPercent: 18,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Parse() mismatch (-want +got):\n%s", diff)
	}

	if got := Parse("Subtotal Value 500\nTotal Amount 525"); got.Taxable != 500 || got.Total != 525 {
		t.Fatalf("taxable/total = %v/%v, want 500/525", got.Taxable, got.Total)
	}
}

func TestParseInterState(t *testing.T) {
	got := Parse("Taxable Value 2,500\nIGST (12%) 300\nAmount Payable: 2,800")
	if got.IGST != 300 || got.TaxAmount != 300 {
		t.Fatalf("igst = %v tax = %v, want 300/300", got.IGST, got.TaxAmount)
	}
	if got.GSTPercent != 12 {
		t.Fatalf("GSTPercent = %v, want 12", got.GSTPercent)
	}
}

func TestParseStatedRateIsSnapped(t *testing.T) {
	got := Parse("GST @ 17.5% included\nNet Amount 500")
	if got.RawPercent != 17.5 {
		t.Fatalf("RawPercent = %v, want 17.5", got.RawPercent)
	}
	if got.GSTPercent != 18 {
		t.Fatalf("GSTPercent = %v, want 18", got.GSTPercent)
	}
}

func TestParseInfersTaxFromTotals(t *testing.T) {
	got := Parse("Subtotal 1000\nTotal Amount 1050")
	if got.TaxAmount != 50 {
		t.Fatalf("TaxAmount = %v, want 50", got.TaxAmount)
	}
	if got.GSTPercent != 5 {
		t.Fatalf("GSTPercent = %v, want 5", got.GSTPercent)
	}
}

func TestParseLonelyCGSTIgnored(t *testing.T) {
	got := Parse("CGST 45")
	if got.CGST != 45 {
		t.Fatalf("CGST = %v, want 45", got.CGST)
	}
	if got.TaxAmount != 0 || got.GSTPercent != 0 {
		t.Fatalf("expected no tax or rate, got %+v", got)
	}
}

func TestParseNothing(t *testing.T) {
	for _, in := range []string{"", "   ", "thank you, visit again"} {
		if got := Parse(in); !got.IsZero() {
			t.Fatalf("Parse(%q) = %+v, want zero", in, got)
		}
	}
}

func TestClean(t *testing.T) {
	cases := map[string]string{
		"Rs100":           "100",
		"INR 1,23,456.50": "123456.50",
		"₹ 2,000   only":  "2000 only",
		"$12,345,678":     "12345678",
		"Total\n\t 1,000": "Total 1000",
	}
	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}
