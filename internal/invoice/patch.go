package invoice

import "github.com/shopspring/decimal"

// Patch is a partial update to an invoice. Nil fields are left untouched;
// a non-nil LineItems replaces the item list wholesale.
type Patch struct {
	CompanyName    *string          `json:"company_name,omitempty"`
	CompanyAddress *string          `json:"company_address,omitempty"`
	CompanyLogo    *string          `json:"company_logo,omitempty"`
	ClientName     *string          `json:"client_name,omitempty"`
	ClientAddress  *string          `json:"client_address,omitempty"`
	ClientEmail    *string          `json:"client_email,omitempty"`
	InvoiceNumber  *string          `json:"invoice_number,omitempty"`
	PONumber       *string          `json:"po_number,omitempty"`
	InvoiceDate    *string          `json:"invoice_date,omitempty"`
	DueDate        *string          `json:"due_date,omitempty"`
	Currency       *string          `json:"currency,omitempty"`
	Template       *Template        `json:"template,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
	BankDetails    *string          `json:"bank_details,omitempty"`
	TaxRatePercent *decimal.Decimal `json:"tax_rate_percent,omitempty"`
	OtherTaxAmount *decimal.Decimal `json:"other_tax_amount,omitempty"`
	ShippingAmount *decimal.Decimal `json:"shipping_amount,omitempty"`
	DiscountValue  *decimal.Decimal `json:"discount_value,omitempty"`
	DiscountType   *DiscountType    `json:"discount_type,omitempty"`
	ShowSubtotal   *bool            `json:"show_subtotal,omitempty"`
	ShowTax        *bool            `json:"show_tax,omitempty"`
	ShowShipping   *bool            `json:"show_shipping,omitempty"`
	ShowDiscount   *bool            `json:"show_discount,omitempty"`
	LineItems      *[]LineItem      `json:"line_items,omitempty"`
}

// touchesTotals reports whether applying the patch requires recomputing
// the derived totals.
func (p Patch) touchesTotals() bool {
	return p.LineItems != nil ||
		p.TaxRatePercent != nil ||
		p.OtherTaxAmount != nil ||
		p.ShippingAmount != nil ||
		p.DiscountValue != nil ||
		p.DiscountType != nil
}

// IsEmpty reports whether the patch changes nothing
func (p Patch) IsEmpty() bool {
	return p == (Patch{})
}
