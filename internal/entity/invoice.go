package entity

import "github.com/joseph-ayodele/gst-bills/constants"

// TaxBreakdown carries the component taxes printed on an invoice. A nil entry was
// not seen on the document.
type TaxBreakdown struct {
	CGST *float64 `json:"cgst"`
	SGST *float64 `json:"sgst"`
	IGST *float64 `json:"igst"`
}

// Sum adds the present components.
func (b TaxBreakdown) Sum() float64 {
	var s float64
	for _, p := range []*float64{b.CGST, b.SGST, b.IGST} {
		if p != nil {
			s += *p
		}
	}
	return s
}

// InvoiceRecord is a self-consistent invoice ready to be shown to the user and,
// once confirmed, stored as a bill.
type InvoiceRecord struct {
	SupplierName         string               `json:"supplierName"`
	GSTIN                string               `json:"gstin"`
	InvoiceNumber        string               `json:"invoiceNumber"`
	InvoiceDate          string               `json:"invoiceDate"` // YYYY-MM-DD when recognisable
	Amount               float64              `json:"amount"`
	TaxPercent           float64              `json:"taxPercent"`
	TaxAmount            float64              `json:"taxAmount"`
	TotalAmount          float64              `json:"totalAmount"`
	ExpenseType          string               `json:"expenseType"`
	ExtractionConfidence constants.Confidence `json:"extractionConfidence"`
	TaxBreakdown         TaxBreakdown         `json:"taxBreakdown"`
	AllTaxRates          []float64            `json:"allTaxRates,omitempty"`
}

// Balanced reports whether amount + tax equals total exactly.
func (r InvoiceRecord) Balanced() bool {
	return r.Amount+r.TaxAmount == r.TotalAmount
}
