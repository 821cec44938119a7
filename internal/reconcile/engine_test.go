package reconcile

import (
	"math"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/entity"
	"github.com/joseph-ayodele/gst-bills/internal/gst"
	"github.com/joseph-ayodele/gst-bills/internal/llm"
)

func ptr(v float64) *float64 { return &v }

func TestReconcileBreakdownOverride(t *testing.T) {
	c := llm.Candidate{
		Amount:       10000,
		TaxBreakdown: entity.TaxBreakdown{CGST: ptr(900), SGST: ptr(900)},
	}
	got := Engine{}.Reconcile(c, 0).Record
	if got.TaxAmount != 1800 || got.TotalAmount != 11800 || got.TaxPercent != 18 {
		t.Fatalf("got tax=%v total=%v percent=%v, want 1800/11800/18", got.TaxAmount, got.TotalAmount, got.TaxPercent)
	}
}

func TestReconcileBreakdownReplacesDisagreeingTax(t *testing.T) {
	c := llm.Candidate{
		Amount:       10000,
		TaxAmount:    1200,
		TotalAmount:  11200,
		TaxBreakdown: entity.TaxBreakdown{CGST: ptr(900), SGST: ptr(900), IGST: nil},
	}
	res := Engine{}.Reconcile(c, 0)
	if res.Record.TaxAmount != 1800 || res.Record.TotalAmount != 11800 || res.Record.TaxPercent != 18 {
		t.Fatalf("record = %+v", res.Record)
	}
	if !slices.Contains(res.Applied, "breakdown-override") {
		t.Fatalf("Applied = %v, want breakdown-override", res.Applied)
	}
}

func TestReconcileDegenerate(t *testing.T) {
	res := Engine{}.Reconcile(llm.Candidate{ExtractionConfidence: "high"}, 0)
	if res.Record.Amount != 0 || res.Record.TotalAmount != 0 || res.Record.TaxAmount != 0 {
		t.Fatalf("invented numbers: %+v", res.Record)
	}
	if res.Record.ExtractionConfidence != constants.ConfidenceLow {
		t.Fatalf("confidence = %q, want low", res.Record.ExtractionConfidence)
	}
	if !res.NeedsManualEntry {
		t.Fatal("NeedsManualEntry = false, want true")
	}
}

func TestReconcileBackwardDerivation(t *testing.T) {
	res := Engine{}.Reconcile(llm.Candidate{TotalAmount: 11800, TaxPercent: 18}, 0)
	if res.Record.Amount != 10000 || res.Record.TaxAmount != 1800 || res.Record.TotalAmount != 11800 {
		t.Fatalf("record = %+v", res.Record)
	}
	if res.Record.ExtractionConfidence != constants.ConfidenceLow {
		t.Fatalf("confidence = %q, want low for total-only input", res.Record.ExtractionConfidence)
	}
	if res.NeedsManualEntry {
		t.Fatal("NeedsManualEntry = true, want false")
	}
}

func TestReconcileConfidenceMonotonicity(t *testing.T) {
	cases := []struct {
		name  string
		total float64
		want  constants.Confidence
	}{
		{"delta 15", 1195, constants.ConfidenceLow},
		{"delta 6", 1186, constants.ConfidenceMedium},
		{"delta 4", 1184, constants.ConfidenceHigh},
		{"delta 0", 1180, constants.ConfidenceHigh},
		{"delta 6 below", 1174, constants.ConfidenceMedium},
		{"delta 15 below", 1165, constants.ConfidenceLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := llm.Candidate{
				Amount:               1000,
				TaxAmount:            180,
				TotalAmount:          tc.total,
				TaxPercent:           18,
				ExtractionConfidence: "high",
			}
			res := Engine{}.Reconcile(c, 0)
			if res.Record.ExtractionConfidence != tc.want {
				t.Fatalf("confidence = %q, want %q (deviation %v)", res.Record.ExtractionConfidence, tc.want, res.Deviation)
			}
			if !res.Record.Balanced() {
				t.Fatalf("record not balanced: %+v", res.Record)
			}
		})
	}
}

func TestReconcileNeverRaisesConfidence(t *testing.T) {
	for _, declared := range []string{"low", "medium"} {
		c := llm.Candidate{Amount: 1000, TaxAmount: 180, TotalAmount: 1180, TaxPercent: 18, ExtractionConfidence: declared}
		got := Engine{}.Reconcile(c, 0).Record.ExtractionConfidence
		if string(got) != declared {
			t.Fatalf("declared %q came back %q", declared, got)
		}
	}
}

func TestReconcileOneSided(t *testing.T) {
	t.Run("amount with rate", func(t *testing.T) {
		res := Engine{}.Reconcile(llm.Candidate{Amount: 2500, TaxPercent: 12, ExtractionConfidence: "high"}, 0)
		want := entity.InvoiceRecord{Amount: 2500, TaxPercent: 12, TaxAmount: 300, TotalAmount: 2800, ExtractionConfidence: constants.ConfidenceMedium}
		if diff := cmp.Diff(want, res.Record); diff != "" {
			t.Fatalf("record mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("amount without rate", func(t *testing.T) {
		res := Engine{}.Reconcile(llm.Candidate{Amount: 2500}, 0)
		if res.Record.TotalAmount != 0 || res.Record.TaxAmount != 0 {
			t.Fatalf("invented total: %+v", res.Record)
		}
		if res.Record.ExtractionConfidence != constants.ConfidenceLow || !res.NeedsManualEntry {
			t.Fatalf("want low + manual entry, got %q/%v", res.Record.ExtractionConfidence, res.NeedsManualEntry)
		}
	})
	t.Run("total without rate", func(t *testing.T) {
		res := Engine{}.Reconcile(llm.Candidate{TotalAmount: 1180}, 0)
		if res.Record.Amount != 0 {
			t.Fatalf("invented amount: %+v", res.Record)
		}
		if res.Record.ExtractionConfidence != constants.ConfidenceLow || !res.NeedsManualEntry {
			t.Fatalf("want low + manual entry, got %q/%v", res.Record.ExtractionConfidence, res.NeedsManualEntry)
		}
	})
	t.Run("total with hinted rate", func(t *testing.T) {
		res := Engine{}.Reconcile(llm.Candidate{TotalAmount: 1050}, 5)
		if res.Record.Amount != 1000 || res.Record.TaxAmount != 50 || res.Record.TaxPercent != 5 {
			t.Fatalf("record = %+v", res.Record)
		}
		if !slices.Contains(res.Applied, "percent:hint") {
			t.Fatalf("Applied = %v, want percent:hint", res.Applied)
		}
	})
}

func TestReconcileCoercion(t *testing.T) {
	c := llm.Candidate{
		SupplierName:         "  Shree Ganesh Traders \n",
		GSTIN:                " 29abcde1234f1z5xyz",
		InvoiceNumber:        " INV/24-25/0042 ",
		InvoiceDate:          "05/03/2024",
		Amount:               math.NaN(),
		TaxAmount:            -50,
		TotalAmount:          math.Inf(1),
		ExpenseType:          "stationery",
		ExtractionConfidence: "SURE",
	}
	got := Engine{}.Reconcile(c, 0).Record
	if got.SupplierName != "Shree Ganesh Traders" || got.InvoiceNumber != "INV/24-25/0042" {
		t.Fatalf("strings not trimmed: %+v", got)
	}
	if got.GSTIN != "29ABCDE1234F1Z5" {
		t.Fatalf("GSTIN = %q", got.GSTIN)
	}
	if got.InvoiceDate != "2024-03-05" {
		t.Fatalf("InvoiceDate = %q", got.InvoiceDate)
	}
	if got.ExpenseType != string(constants.OfficeSupplies) {
		t.Fatalf("ExpenseType = %q", got.ExpenseType)
	}
	if got.Amount != 0 || got.TaxAmount != 0 || got.TotalAmount != 0 {
		t.Fatalf("unsafe numbers survived: %+v", got)
	}
	if got.ExtractionConfidence != constants.ConfidenceLow {
		t.Fatalf("confidence = %q, want low", got.ExtractionConfidence)
	}
}

func TestReconcileClearsStaleTaxRates(t *testing.T) {
	c := llm.Candidate{Amount: 1000, TaxPercent: 18, AllTaxRates: []float64{9, 9}}
	if got := (Engine{}).Reconcile(c, 0).Record.AllTaxRates; !slices.Equal(got, []float64{9, 9}) {
		t.Fatalf("AllTaxRates = %v, want [9 9]", got)
	}
	c = llm.Candidate{Amount: 1000, TaxAmount: 50, TotalAmount: 1050, AllTaxRates: []float64{9, 9}}
	if got := (Engine{}).Reconcile(c, 0).Record.AllTaxRates; got != nil {
		t.Fatalf("AllTaxRates = %v, want cleared", got)
	}
}

func TestReconcileSnapTolerance(t *testing.T) {
	c := llm.Candidate{Amount: 1000, TaxPercent: 40, ExtractionConfidence: "high"}

	forced := Engine{}.Reconcile(c, 0)
	if forced.Record.TaxPercent != 28 || forced.Record.ExtractionConfidence != constants.ConfidenceMedium {
		t.Fatalf("default engine: %+v", forced.Record)
	}

	strict := Engine{SnapTolerance: 3}.Reconcile(c, 0)
	if strict.Record.TaxPercent != 0 {
		t.Fatalf("TaxPercent = %v, want unresolved", strict.Record.TaxPercent)
	}
	if !strict.NeedsManualEntry || strict.Record.ExtractionConfidence != constants.ConfidenceLow {
		t.Fatalf("want manual entry at low confidence, got %+v", strict)
	}
	if !slices.Contains(strict.Applied, "off-slab-rate") {
		t.Fatalf("Applied = %v, want off-slab-rate", strict.Applied)
	}
	// The stated total is kept when the implied rate sits off every slab.
	kept := Engine{SnapTolerance: 3}.Reconcile(llm.Candidate{Amount: 100, TotalAmount: 140, ExtractionConfidence: "high"}, 0)
	r := kept.Record
	if r.Amount != 100 || r.TaxAmount != 40 || r.TotalAmount != 140 || r.TaxPercent != 0 {
		t.Fatalf("want amounts 100/40/140 at unresolved rate, got %+v", r)
	}
	if !kept.NeedsManualEntry || r.ExtractionConfidence != constants.ConfidenceLow {
		t.Fatalf("want manual entry at low confidence, got %+v", kept)
	}
	if kept.Deviation != 0 {
		t.Fatalf("Deviation = %v, want 0", kept.Deviation)
	}

	// A stated rate off the slabs that a later source resolves is only downgraded.
	resolved := Engine{SnapTolerance: 3}.Reconcile(llm.Candidate{Amount: 1000, TaxAmount: 180, TotalAmount: 1180, TaxPercent: 40, ExtractionConfidence: "high"}, 0)
	if resolved.Record.TaxPercent != 18 || resolved.NeedsManualEntry {
		t.Fatalf("want 18%% without manual entry, got %+v", resolved)
	}
	if resolved.Record.ExtractionConfidence != constants.ConfidenceMedium {
		t.Fatalf("confidence = %q, want medium", resolved.Record.ExtractionConfidence)
	}
}

// candidates is a spread of messy inputs used for the property tests below.
func candidates() []llm.Candidate {
	var out []llm.Candidate
	values := []float64{0, 0.4, 99.99, 1000, 1180, 11800, 250000.5, -3, math.NaN()}
	percents := []float64{0, 3, 5, 12, 17.5, 18, 28, 55}
	for _, a := range values {
		for _, tx := range []float64{0, 18, 180, 1800} {
			for _, tot := range values {
				for _, p := range percents {
					out = append(out, llm.Candidate{Amount: a, TaxAmount: tx, TotalAmount: tot, TaxPercent: p, ExtractionConfidence: "high"})
				}
			}
		}
	}
	out = append(out, llm.Candidate{Amount: 500, TaxBreakdown: entity.TaxBreakdown{IGST: ptr(90)}})
	return out
}

func TestReconcileProperties(t *testing.T) {
	for _, tol := range []float64{0, 3} {
		e := Engine{SnapTolerance: tol}
		for _, c := range candidates() {
			res := e.Reconcile(c, 0)
			r := res.Record
			for _, v := range []float64{r.Amount, r.TaxAmount, r.TotalAmount} {
				if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("tol %v: bad amount in %+v from %+v", tol, r, c)
				}
			}
			if r.TaxPercent != 0 && !gst.IsSlab(r.TaxPercent) {
				t.Fatalf("tol %v: percent %v not a slab (input %+v)", tol, r.TaxPercent, c)
			}
			if !res.NeedsManualEntry && !r.Balanced() {
				t.Fatalf("tol %v: unbalanced %+v from %+v", tol, r, c)
			}
			if res.NeedsManualEntry && r.ExtractionConfidence != constants.ConfidenceLow {
				t.Fatalf("tol %v: manual entry at %q", tol, r.ExtractionConfidence)
			}
		}
	}
}
