package llm

import (
	"context"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/entity"
)

// Candidate is the untrusted structured guess returned by the text-generation service.
// Any field may be missing or zero.
type Candidate struct {
	SupplierName         string              `json:"supplierName,omitempty"`
	GSTIN                string              `json:"gstin,omitempty"`
	InvoiceNumber        string              `json:"invoiceNumber,omitempty"`
	InvoiceDate          string              `json:"invoiceDate,omitempty"`
	Amount               float64             `json:"amount,omitempty"`
	TaxPercent           float64             `json:"taxPercent,omitempty"`
	TaxAmount            float64             `json:"taxAmount,omitempty"`
	TotalAmount          float64             `json:"totalAmount,omitempty"`
	ExpenseType          string              `json:"expenseType,omitempty"`
	ExtractionConfidence string              `json:"extractionConfidence,omitempty"`
	TaxBreakdown         entity.TaxBreakdown `json:"taxBreakdown"`
	AllTaxRates          []float64           `json:"allTaxRates,omitempty"`
}

// Request is one prompt for the text-generation service.
type Request struct {
	System string
	User   string
	Source constants.SourceKind
}

// Generator is the text-generation service. Implementations issue exactly one call
// per Generate and return the raw reply; retry policy belongs to the caller.
// Non-success replies come back as *ServiceError.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
