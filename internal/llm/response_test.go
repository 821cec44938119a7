package llm

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/gst-bills/internal/entity"
)

func ptr(v float64) *float64 { return &v }

func TestParseReplyLocatesObject(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"json fence", "Here you go:\n```json\n{\"amount\": 1000, \"taxPercent\": 18}\n```\nthanks"},
		{"bare fence", "```\n{\"amount\": 1000, \"taxPercent\": 18}\n```"},
		{"embedded", `Sure! {"amount": 1000, "taxPercent": 18} Let me know.`},
		{"plain", `{"amount": 1000, "taxPercent": 18}`},
		{"json fence wins", "```json\n{\"amount\": 1000, \"taxPercent\": 18}\n```\n{\"amount\": 5}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _, err := ParseReply(tc.reply)
			if err != nil {
				t.Fatalf("ParseReply() error = %v", err)
			}
			if c.Amount != 1000 || c.TaxPercent != 18 {
				t.Fatalf("candidate = %+v", c)
			}
		})
	}
}

func TestParseReplyFallsThroughBadFence(t *testing.T) {
	reply := "```json\nnot json at all\n```\nfinal answer: {\"totalAmount\": 1180}"
	c, _, err := ParseReply(reply)
	if err != nil {
		t.Fatalf("ParseReply() error = %v", err)
	}
	if c.TotalAmount != 1180 {
		t.Fatalf("TotalAmount = %v, want 1180", c.TotalAmount)
	}
}

func TestParseReplyBracesInsideStrings(t *testing.T) {
	reply := `result: {"supplierName": "Shree {Ganesh} \"Traders\"", "amount": 10}`
	c, _, err := ParseReply(reply)
	if err != nil {
		t.Fatalf("ParseReply() error = %v", err)
	}
	if c.SupplierName != `Shree {Ganesh} "Traders"` {
		t.Fatalf("SupplierName = %q", c.SupplierName)
	}
}

func TestParseReplyNoJSON(t *testing.T) {
	for _, reply := range []string{"", "I could not read the invoice.", "{ unterminated", "```json\n[1,2]\n```"} {
		_, _, err := ParseReply(reply)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("ParseReply(%q) error = %v, want *ParseError", reply, err)
		}
		if !errors.Is(err, ErrNoJSON) {
			t.Fatalf("ParseReply(%q) error = %v, want ErrNoJSON", reply, err)
		}
	}
}

func TestParseReplySanitizesLooseReply(t *testing.T) {
	reply := `{
		"vendor": "  ABC Traders ",
		"gstin": "29abcde1234f1z5",
		"invoice_no": 4512,
		"amount": "10,000.00",
		"gstRate": "18%",
		"tax": "₹1,800",
		"total": null,
		"cgst": "900",
		"sgst": 900,
		"confidence": "HIGH",
		"notes": "paid in cash",
		"taxBreakdown": {"igst": null}
	}`
	c, cleaned, err := ParseReply(reply)
	if err != nil {
		t.Fatalf("ParseReply() error = %v (cleaned %s)", err, cleaned)
	}
	want := Candidate{
		SupplierName:         "ABC Traders",
		GSTIN:                "29abcde1234f1z5",
		InvoiceNumber:        "4512",
		Amount:               10000,
		TaxPercent:           18,
		TaxAmount:            1800,
		ExtractionConfidence: "high",
		TaxBreakdown:         entity.TaxBreakdown{CGST: ptr(900), SGST: ptr(900)},
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("candidate mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(string(cleaned), "notes") {
		t.Fatalf("unknown key survived: %s", cleaned)
	}
}

func TestParseReplyDropsWrongTypes(t *testing.T) {
	c, _, err := ParseReply(`{"amount": true, "supplierName": {"name": "x"}, "taxBreakdown": "900+900"}`)
	if err != nil {
		t.Fatalf("ParseReply() error = %v", err)
	}
	if diff := cmp.Diff(Candidate{}, c); diff != "" {
		t.Fatalf("candidate mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitizeCandidateRatesFromString(t *testing.T) {
	m := map[string]any{"allTaxRates": "9+9"}
	SanitizeCandidate(m)
	if diff := cmp.Diff([]any{9.0, 9.0}, m["allTaxRates"]); diff != "" {
		t.Fatalf("allTaxRates mismatch (-want +got):\n%s", diff)
	}

	m = map[string]any{"allTaxRates": "18"}
	SanitizeCandidate(m)
	if _, ok := m["allTaxRates"]; ok {
		t.Fatalf("single rate should drop allTaxRates, got %v", m["allTaxRates"])
	}
}

func TestValidateCandidateRejectsUnknownKeys(t *testing.T) {
	if err := ValidateCandidate([]byte(`{"amount": 1, "merchant": "x"}`)); err == nil {
		t.Fatal("expected schema error for unknown key")
	}
	if err := ValidateCandidate([]byte(`{"extractionConfidence": "certain"}`)); err == nil {
		t.Fatal("expected schema error for bad confidence")
	}
	if err := ValidateCandidate([]byte(`{"taxBreakdown": {"cgst": null, "sgst": 9}}`)); err != nil {
		t.Fatalf("ValidateCandidate() error = %v", err)
	}
}
