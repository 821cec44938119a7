package llm

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/gst"
	"github.com/joseph-ayodele/gst-bills/internal/money"
)

var (
	stringKeys = []string{"supplierName", "gstin", "invoiceNumber", "invoiceDate", "expenseType"}
	numberKeys = []string{"amount", "taxPercent", "taxAmount", "totalAmount"}
	breakKeys  = []string{"cgst", "sgst", "igst"}

	// keySynonyms maps spellings models drift into onto the canonical key.
	keySynonyms = map[string]string{
		"supplier":       "supplierName",
		"supplier_name":  "supplierName",
		"vendor":         "supplierName",
		"vendorName":     "supplierName",
		"seller":         "supplierName",
		"gst_number":     "gstin",
		"gstNumber":      "gstin",
		"gstNo":          "gstin",
		"invoice_no":     "invoiceNumber",
		"invoiceNo":      "invoiceNumber",
		"invoice_number": "invoiceNumber",
		"billNumber":     "invoiceNumber",
		"date":           "invoiceDate",
		"invoice_date":   "invoiceDate",
		"billDate":       "invoiceDate",
		"taxable":        "amount",
		"taxableValue":   "amount",
		"taxable_value":  "amount",
		"taxableAmount":  "amount",
		"subtotal":       "amount",
		"baseAmount":     "amount",
		"gstPercent":     "taxPercent",
		"gstRate":        "taxPercent",
		"gst_rate":       "taxPercent",
		"taxRate":        "taxPercent",
		"tax_percent":    "taxPercent",
		"tax":            "taxAmount",
		"gstAmount":      "taxAmount",
		"tax_amount":     "taxAmount",
		"total":          "totalAmount",
		"grandTotal":     "totalAmount",
		"total_amount":   "totalAmount",
		"category":       "expenseType",
		"expense_type":   "expenseType",
		"confidence":     "extractionConfidence",
		"breakdown":      "taxBreakdown",
		"tax_breakdown":  "taxBreakdown",
		"taxRates":       "allTaxRates",
		"all_tax_rates":  "allTaxRates",
	}
)

// SanitizeCandidate bends a decoded reply into the candidate schema: synonyms are
// renamed, numeric strings coerced, nulls and empties dropped and unknown keys removed.
// It returns the keys it touched.
func SanitizeCandidate(m map[string]any) []string {
	var changed []string
	note := func(k string) { changed = append(changed, k) }

	for _, from := range slices.Sorted(maps.Keys(keySynonyms)) {
		to := keySynonyms[from]
		v, ok := m[from]
		if !ok {
			continue
		}
		delete(m, from)
		if _, exists := m[to]; !exists {
			m[to] = v
		}
		note(from)
	}

	// flat cgst/sgst/igst at the top level belong in the breakdown
	for _, k := range breakKeys {
		v, ok := m[k]
		if !ok {
			continue
		}
		delete(m, k)
		bd, _ := m["taxBreakdown"].(map[string]any)
		if bd == nil {
			bd = map[string]any{}
			m["taxBreakdown"] = bd
		}
		if _, exists := bd[k]; !exists {
			bd[k] = v
		}
		note(k)
	}

	for _, k := range stringKeys {
		v, ok := m[k]
		if !ok {
			continue
		}
		s, ok := asString(v)
		if !ok || s == "" {
			delete(m, k)
			note(k)
			continue
		}
		if s != v {
			m[k] = s
			note(k)
		}
	}

	for _, k := range numberKeys {
		v, ok := m[k]
		if !ok {
			continue
		}
		f, ok := asNumber(v)
		if !ok {
			delete(m, k)
			note(k)
			continue
		}
		if _, isNum := v.(float64); !isNum {
			m[k] = f
			note(k)
		}
	}

	if v, ok := m["extractionConfidence"]; ok {
		s, _ := v.(string)
		s = strings.ToLower(strings.TrimSpace(s))
		switch constants.Confidence(s) {
		case constants.ConfidenceHigh, constants.ConfidenceMedium, constants.ConfidenceLow:
			if s != v {
				m["extractionConfidence"] = s
				note("extractionConfidence")
			}
		default:
			delete(m, "extractionConfidence")
			note("extractionConfidence")
		}
	}

	if v, ok := m["taxBreakdown"]; ok {
		if sanitizeBreakdown(m, v) {
			note("taxBreakdown")
		}
	}

	if v, ok := m["allTaxRates"]; ok {
		rates := asRates(v)
		if len(rates) == 0 {
			delete(m, "allTaxRates")
		} else {
			m["allTaxRates"] = rates
		}
		note("allTaxRates")
	}

	known := CandidateSchema()["properties"].(map[string]any)
	for k := range m {
		if _, ok := known[k]; !ok {
			delete(m, k)
			note(k)
		}
	}

	slices.Sort(changed)
	return slices.Compact(changed)
}

func sanitizeBreakdown(m map[string]any, v any) bool {
	bd, ok := v.(map[string]any)
	if !ok {
		delete(m, "taxBreakdown")
		return true
	}
	changed := false
	out := make(map[string]any, len(breakKeys))
	for _, k := range breakKeys {
		raw, present := bd[k]
		if !present {
			continue
		}
		if raw == nil {
			out[k] = nil
			continue
		}
		f, ok := asNumber(raw)
		if !ok {
			out[k] = nil
			changed = true
			continue
		}
		if _, isNum := raw.(float64); !isNum {
			changed = true
		}
		out[k] = f
	}
	if len(out) != len(bd) {
		changed = true
	}
	m["taxBreakdown"] = out
	return changed
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		if s == "" || strings.EqualFold(s, "null") {
			return 0, false
		}
		return money.Parse(s)
	default:
		return 0, false
	}
}

func asRates(v any) []any {
	switch t := v.(type) {
	case []any:
		out := make([]any, 0, len(t))
		for _, e := range t {
			if f, ok := asNumber(e); ok {
				out = append(out, f)
			}
		}
		return out
	case string:
		r, ok := gst.ParseRate(t)
		if !ok || !r.Compound() {
			return nil
		}
		out := make([]any, len(r.Components))
		for i, c := range r.Components {
			out[i] = c
		}
		return out
	default:
		return nil
	}
}
