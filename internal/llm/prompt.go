package llm

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/gst"
	"github.com/joseph-ayodele/gst-bills/internal/hints"
)

// MaxPromptText bounds the recognised text forwarded to the service.
const MaxPromptText = 6000

// BuildImageRequest composes the request for text recognised from an invoice image.
func BuildImageRequest(rawText string, h hints.LocalHints, source constants.SourceKind) Request {
	parts := []string{
		"You are a GST invoice parser for Indian purchase bills. Return ONLY one JSON object that matches the JSON Schema below. No prose, no markdown.",
		"The recognised text is noisy OCR output. Search it for the taxable value, CGST, SGST, IGST, total tax and the grand total even when labels are misspelt or split across lines.",
		"Local hints were extracted from the same text with regular expressions. When a hint is non-zero prefer it over your own reading unless the text clearly contradicts it.",
		"'amount' is the taxable value before tax. 'taxAmount' is the total GST charged. 'totalAmount' is the amount payable including tax.",
		"'taxPercent' must be one of " + slabList() + ". Snap any other percentage you find to the nearest of these.",
		"Put CGST, SGST and IGST amounts under 'taxBreakdown'; use null for a component that is not on the invoice.",
		"If the invoice lists several tax rates, put each component rate in 'allTaxRates'.",
		"'gstin' is the supplier's 15 character GSTIN. 'invoiceDate' uses YYYY-MM-DD.",
		expenseTypeLine(),
		"Set 'extractionConfidence' to high only when every amount was read directly from the invoice, medium when some were inferred, low when most were guessed.",
		"Numbers are plain JSON numbers without currency symbols or thousands separators. Omit fields you cannot find; never invent them.",
		"JSON Schema:\n" + mustJSON(CandidateSchema()),
	}

	var b strings.Builder
	b.WriteString("Source: ")
	b.WriteString(string(source))
	b.WriteString("\n\nLocal hints (0 means not found):\n")
	b.WriteString(mustJSON(h))
	b.WriteString("\n\nOCR text (first ~6k chars):\n")
	b.WriteString(truncate(strings.TrimSpace(rawText), MaxPromptText))
	b.WriteString("\n\nReturn ONLY JSON that matches the provided schema.")

	return Request{
		System: strings.Join(parts, "\n"),
		User:   b.String(),
		Source: source,
	}
}

// BuildVoiceRequest composes the request for a spoken description of an invoice.
func BuildVoiceRequest(transcript string, today time.Time) Request {
	parts := []string{
		"You are a GST invoice parser. The user dictated the details of a purchase bill. Return ONLY one JSON object that matches the JSON Schema below. No prose, no markdown.",
		"Understand Indian colloquial quantities: '10 lakh' is 1000000, '2 crore' is 20000000, '5k' or '5 thousand' is 5000, 'fifty' is 50.",
		"Resolve relative dates against today, " + today.Format("2006-01-02") + " (" + today.Weekday().String() + "). 'today', 'yesterday' and 'last Monday' become YYYY-MM-DD.",
		"If the user does not mention a tax rate, use 18 for 'taxPercent'. Any rate mentioned must be snapped to one of " + slabList() + ".",
		"If the user says the amount includes tax, put it in 'totalAmount'; otherwise it is the taxable 'amount'.",
		"If the user mentions CGST/SGST or IGST put them under 'taxBreakdown'; use null for missing components.",
		expenseTypeLine(),
		"Set 'extractionConfidence' to medium unless the user stated every amount explicitly.",
		"Numbers are plain JSON numbers. Omit fields the user did not mention; never invent them.",
		"JSON Schema:\n" + mustJSON(CandidateSchema()),
	}

	return Request{
		System: strings.Join(parts, "\n"),
		User:   "Transcript:\n" + truncate(strings.TrimSpace(transcript), MaxPromptText) + "\n\nReturn ONLY JSON that matches the provided schema.",
		Source: constants.SourceVoice,
	}
}

func expenseTypeLine() string {
	return "'expenseType' must be exactly one of: " + strings.Join(constants.AsStringSlice(), ", ") + ". If uncertain, choose 'Other'."
}

func slabList() string {
	s := make([]string, len(gst.Slabs))
	for i, v := range gst.Slabs {
		s[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(s, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "\n…(truncated)"
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
