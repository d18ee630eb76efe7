// Package pricing computes subtotal, tax and grand total for a set of priced
// lines.
//
// All arithmetic is exact. Rounding to two decimal places happens only in
// Totals.Rounded, which callers apply at display and persistence boundaries.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Line is a single priced entry.
type Line struct {
	UnitPrice  decimal.Decimal
	TaxPercent decimal.Decimal
	Quantity   int
}

// Totals holds the money values for a set of lines.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// LineTotal returns unit price × quantity.
func LineTotal(l Line) decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineTax returns the tax owed on a line without rounding.
func LineTax(l Line) decimal.Decimal {
	return LineTotal(l).Mul(l.TaxPercent).Div(hundred)
}

// Compute sums the lines. An empty input yields zero totals.
func Compute(lines []Line) Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l))
		tax = tax.Add(LineTax(l))
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Rounded returns the totals at two decimal places. Subtotal and tax are
// rounded independently and the total is their sum, so Total always equals
// Subtotal + Tax on the rounded values.
func (t Totals) Rounded() Totals {
	subtotal := t.Subtotal.Round(2)
	tax := t.Tax.Round(2)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
