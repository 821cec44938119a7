// Package hints pulls candidate tax figures straight out of recognised invoice text
// with regular expressions. It makes no external calls and never fails.
package hints

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/gst-bills/internal/gst"
	"github.com/joseph-ayodele/gst-bills/internal/money"
)

// LocalHints are the figures found locally. Every field is 0 when unmatched.
type LocalHints struct {
	Taxable    float64 `json:"taxable"`
	Total      float64 `json:"total"`
	CGST       float64 `json:"cgst"`
	SGST       float64 `json:"sgst"`
	IGST       float64 `json:"igst"`
	TaxAmount  float64 `json:"taxAmount"`
	GSTPercent float64 `json:"gstPercent"`
	RawPercent float64 `json:"rawPercent"`
}

// IsZero reports whether nothing was found.
func (h LocalHints) IsZero() bool { return h == LocalHints{} }

const (
	num        = `(\d+(?:\.\d+)?)`
	sep        = `\s*[:=\-]?\s*`
	inlineRate = `(?:\(?\s*@?\s*\d+(?:\.\d+)?\s*%\s*\)?)?`
)

var (
	reGluedCurrency = regexp.MustCompile(`(?i)(?:\b(?:rs|inr)\.?|₹)\s*(\d)`)
	reCurrency      = regexp.MustCompile(`(?i)₹|\$|\binr\b|\brs\b\.?`)
	reThousands     = regexp.MustCompile(`(\d),(\d)`)
	reSpace         = regexp.MustCompile(`\s+`)

	reTaxable = regexp.MustCompile(`(?i)(?:sub\s*-?\s*total(?:\s+(?:amount|value))?|taxable\s+value|taxable\s+amount|base\s+amount|value\s+before\s+tax)` + sep + num)
	// The optional first group catches "Sub Total Amount" so it can be skipped.
	reTotal   = regexp.MustCompile(`(?i)(\bsub\s*-?\s*)?(?:grand\s+total|total\s+amount|net\s+amount|amount\s+payable|final\s+amount)` + sep + num)
	reCGST    = regexp.MustCompile(`(?i)\bc\s*gst\s*` + inlineRate + sep + num)
	reSGST    = regexp.MustCompile(`(?i)\bs\s*gst\s*` + inlineRate + sep + num)
	reIGST    = regexp.MustCompile(`(?i)\bi\s*gst\s*` + inlineRate + sep + num)
	reGSTRate = regexp.MustCompile(`(?i)\bgst\s*@\s*` + num + `\s*%`)
)

// Clean strips currency markers and thousands separators and collapses whitespace.
func Clean(raw string) string {
	s := reGluedCurrency.ReplaceAllString(raw, "$1")
	s = reCurrency.ReplaceAllString(s, " ")
	for {
		next := reThousands.ReplaceAllString(s, "$1$2")
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(reSpace.ReplaceAllString(s, " "))
}

// Parse scans raw OCR text for labelled tax figures.
func Parse(raw string) LocalHints {
	text := Clean(raw)
	if text == "" {
		return LocalHints{}
	}

	h := LocalHints{
		Taxable:    first(reTaxable, text),
		Total:      firstTotal(text),
		CGST:       first(reCGST, text),
		SGST:       first(reSGST, text),
		IGST:       first(reIGST, text),
		RawPercent: first(reGSTRate, text),
	}

	switch {
	case h.CGST > 0 && h.SGST > 0:
		h.TaxAmount = h.CGST + h.SGST
	case h.IGST > 0:
		h.TaxAmount = h.IGST
	case h.Taxable > 0 && h.Total > h.Taxable:
		h.TaxAmount = money.Round2(h.Total - h.Taxable)
	}

	var inferred float64
	if h.TaxAmount > 0 && h.Taxable > 0 {
		inferred = money.Round(h.TaxAmount / h.Taxable * 100)
	}
	if h.RawPercent > 0 {
		h.GSTPercent = gst.Snap(h.RawPercent)
	} else {
		h.GSTPercent = gst.Snap(inferred)
	}
	return h
}

func first(re *regexp.Regexp, text string) float64 {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	v, err := strconv.ParseFloat(m[len(m)-1], 64)
	if err != nil {
		return 0
	}
	return money.NonNegative(v)
}

// firstTotal is first(reTotal) minus matches that are really a subtotal label.
func firstTotal(text string) float64 {
	for _, m := range reTotal.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			continue
		}
		if v, err := strconv.ParseFloat(m[2], 64); err == nil {
			return money.NonNegative(v)
		}
	}
	return 0
}
