package llm

import "github.com/joseph-ayodele/gst-bills/constants"

// CandidateSchema returns the JSON-Schema (draft 2020-12 subset) of a Candidate.
// Both prompt builders embed it and ParseReply validates against it.
func CandidateSchema() map[string]any {
	nullableNumber := map[string]any{"type": []string{"number", "null"}}

	props := map[string]any{
		"supplierName":  map[string]any{"type": "string"},
		"gstin":         map[string]any{"type": "string"},
		"invoiceNumber": map[string]any{"type": "string"},
		"invoiceDate":   map[string]any{"type": "string"},
		"amount":        map[string]any{"type": "number"},
		"taxPercent":    map[string]any{"type": "number"},
		"taxAmount":     map[string]any{"type": "number"},
		"totalAmount":   map[string]any{"type": "number"},
		"expenseType":   map[string]any{"type": "string"},
		"extractionConfidence": map[string]any{
			"type": "string",
			"enum": []string{
				string(constants.ConfidenceHigh),
				string(constants.ConfidenceMedium),
				string(constants.ConfidenceLow),
			},
		},
		"taxBreakdown": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"cgst": nullableNumber,
				"sgst": nullableNumber,
				"igst": nullableNumber,
			},
		},
		"allTaxRates": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "number"},
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}
