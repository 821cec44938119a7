package reconcile

import (
	"strings"
	"time"
	"unicode"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/entity"
	"github.com/joseph-ayodele/gst-bills/internal/llm"
	"github.com/joseph-ayodele/gst-bills/internal/money"
)

// GSTINLength is the fixed length of a GST identification number.
const GSTINLength = 15

// Date layouts seen on Indian invoices, tried in order. Day-first wins over month-first.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"02/01/06",
	"02-01-06",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	time.RFC3339,
}

func coerce(c llm.Candidate) entity.InvoiceRecord {
	rec := entity.InvoiceRecord{
		SupplierName:         strings.TrimSpace(c.SupplierName),
		GSTIN:                NormalizeGSTIN(c.GSTIN),
		InvoiceNumber:        strings.TrimSpace(c.InvoiceNumber),
		InvoiceDate:          NormalizeDate(c.InvoiceDate),
		Amount:               money.Round2(money.NonNegative(c.Amount)),
		TaxPercent:           money.NonNegative(c.TaxPercent),
		TaxAmount:            money.Round2(money.NonNegative(c.TaxAmount)),
		TotalAmount:          money.Round2(money.NonNegative(c.TotalAmount)),
		ExtractionConfidence: constants.ParseConfidence(c.ExtractionConfidence),
		TaxBreakdown: entity.TaxBreakdown{
			CGST: coerceComponent(c.TaxBreakdown.CGST),
			SGST: coerceComponent(c.TaxBreakdown.SGST),
			IGST: coerceComponent(c.TaxBreakdown.IGST),
		},
	}
	if et := strings.TrimSpace(c.ExpenseType); et != "" {
		canonical, _ := constants.Canonicalize(et)
		rec.ExpenseType = string(canonical)
	}
	for _, r := range c.AllTaxRates {
		if r = money.NonNegative(r); r > 0 {
			rec.AllTaxRates = append(rec.AllTaxRates, r)
		}
	}
	return rec
}

func coerceComponent(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := money.Round2(money.NonNegative(*p))
	return &v
}

// NormalizeGSTIN upper-cases, drops whitespace and caps the result at 15 characters.
func NormalizeGSTIN(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
	if r := []rune(s); len(r) > GSTINLength {
		s = string(r[:GSTINLength])
	}
	return s
}

// NormalizeDate rewrites a recognisable date as YYYY-MM-DD and returns anything else trimmed.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
