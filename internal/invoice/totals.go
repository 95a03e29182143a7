package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/rezonia/invoice-builder/internal/money"
)

// Subtotal sums the derived amounts of the line items
func Subtotal(items []LineItem) decimal.Decimal {
	result := money.Zero
	for _, item := range items {
		result = result.Add(item.Amount)
	}
	return result
}

// SalesTax computes subtotal * rate%, rounded to cents
func SalesTax(subtotal, ratePercent decimal.Decimal) decimal.Decimal {
	return money.Percent(subtotal, ratePercent)
}

// DiscountAmount resolves the discount against the subtotal. A percentage
// discount scales with the subtotal, a fixed discount is taken as is.
func DiscountAmount(subtotal decimal.Decimal, value decimal.Decimal, kind DiscountType) decimal.Decimal {
	if kind == DiscountFixed {
		return value.Round(2)
	}
	return money.Percent(subtotal, value)
}

// ComputeTotals derives the full summary from line items and rate settings.
// Only the grand total is clamped at zero, the intermediate figures keep
// whatever sign the inputs produce.
func ComputeTotals(items []LineItem, rates RateSettings) Totals {
	subtotal := Subtotal(items)
	tax := SalesTax(subtotal, rates.TaxRatePercent)
	discount := DiscountAmount(subtotal, rates.DiscountValue, rates.DiscountType)

	total := subtotal.
		Add(tax).
		Add(rates.OtherTaxAmount).
		Add(rates.ShippingAmount).
		Sub(discount)

	return Totals{
		Subtotal:       subtotal,
		SalesTax:       tax,
		DiscountAmount: discount,
		Total:          money.ClampNonNegative(total.Round(2)),
	}
}

// LineAmount derives a line item amount from quantity and unit price
func LineAmount(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return money.Mul(quantity, unitPrice)
}
