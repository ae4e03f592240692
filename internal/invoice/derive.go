package invoice

import (
	"math"

	"github.com/shopspring/decimal"

	"invoicesnap/pkg/models"
)

// TaxRate is the Taiwanese business tax applied to the subtotal.
var TaxRate = decimal.NewFromFloat(0.05)

var half = decimal.NewFromFloat(0.5)

// Totals are the derived amounts of an invoice.
type Totals struct {
	Subtotal float64
	Tax      float64
	Total    float64
}

// Round rounds half up toward positive infinity on the smallest currency unit,
// so 2.5 becomes 3 and -2.5 becomes -2.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Add(half).Floor()
}

// num converts a stored number, treating NaN and infinities as missing.
func num(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// ItemAmount returns round(quantity * unitPrice).
func ItemAmount(quantity, unitPrice float64) float64 {
	return Round(num(quantity).Mul(num(unitPrice))).InexactFloat64()
}

// ComputeTotals derives subtotal, tax and total from the item amounts.
// The result depends on nothing but items.
func ComputeTotals(items []models.InvoiceItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(num(item.Amount))
	}
	tax := Round(subtotal.Mul(TaxRate))

	return Totals{
		Subtotal: subtotal.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    subtotal.Add(tax).InexactFloat64(),
	}
}

// Recompute overwrites the derived totals of rec from its items.
// Item amounts are left as they are; they change only through item edits.
func Recompute(rec *models.InvoiceRecord) {
	t := ComputeTotals(rec.Items)
	rec.Subtotal = t.Subtotal
	rec.Tax = t.Tax
	rec.Total = t.Total
}

// RecomputeItems recalculates every item amount and then the totals.
func RecomputeItems(rec *models.InvoiceRecord) {
	for i := range rec.Items {
		rec.Items[i].Amount = ItemAmount(rec.Items[i].Quantity, rec.Items[i].UnitPrice)
	}
	Recompute(rec)
}
