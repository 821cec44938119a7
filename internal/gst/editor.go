package gst

import (
	"slices"

	"github.com/joseph-ayodele/gst-bills/internal/entity"
	"github.com/joseph-ayodele/gst-bills/internal/money"
)

// EditRate applies a manual edit of the tax-percent field. The typed rate is
// authoritative and is not snapped; tax and total are recomputed from the amount.
func EditRate(rec entity.InvoiceRecord, input string) (entity.InvoiceRecord, bool) {
	r, ok := ParseRate(input)
	if !ok {
		return rec, false
	}
	rec.TaxPercent = r.Percent
	rec.AllTaxRates = slices.Clone(r.Components)
	return recompute(rec), true
}

// EditAmount applies a manual edit of the taxable amount.
func EditAmount(rec entity.InvoiceRecord, amount float64) entity.InvoiceRecord {
	rec.Amount = money.Round2(money.NonNegative(amount))
	return recompute(rec)
}

func recompute(rec entity.InvoiceRecord) entity.InvoiceRecord {
	rec.TaxAmount = money.Round(rec.Amount * rec.TaxPercent / 100)
	rec.TotalAmount = rec.Amount + rec.TaxAmount
	return rec
}
