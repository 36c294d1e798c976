package documents

import (
	"github.com/shopspring/decimal"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
)

// amountScale matches the numeric(20,4) money columns.
const amountScale = 4

var hundred = decimal.NewFromInt(100)

// LineAmounts are the derived money fields of one line.
type LineAmounts struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeLine applies subtotal = qty*unitPrice - discount, taxAmount = subtotal*taxRate/100
// and total = subtotal + taxAmount.
func ComputeLine(qty, unitPrice, discount, taxRate decimal.Decimal) LineAmounts {
	subtotal := qty.Mul(unitPrice).Sub(discount).Round(amountScale)
	taxAmount := subtotal.Mul(taxRate).Div(hundred).Round(amountScale)
	return LineAmounts{
		Subtotal:  subtotal,
		TaxAmount: taxAmount,
		Total:     subtotal.Add(taxAmount),
	}
}

// Totals are the header aggregates of a document.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// SumLines adds up the line fields; the header never carries values of its own.
func SumLines(lines []models.DocumentLineItem) Totals {
	t := Totals{Subtotal: decimal.Zero, TaxAmount: decimal.Zero, Total: decimal.Zero}
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Subtotal)
		t.TaxAmount = t.TaxAmount.Add(l.TaxAmount)
		t.Total = t.Total.Add(l.Total)
	}
	return t
}
