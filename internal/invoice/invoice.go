package invoice

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how the discount value is interpreted
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Status tracks the delivery lifecycle of an invoice
type Status string

const (
	StatusDraft Status = "draft"
	StatusSent  Status = "sent"
)

// Template names a rendering layout
type Template string

const (
	TemplateModern   Template = "modern"
	TemplateClassic  Template = "classic"
	TemplateColorful Template = "colorful"
)

// ValidTemplate reports whether t names a known layout
func ValidTemplate(t Template) bool {
	switch t {
	case TemplateModern, TemplateClassic, TemplateColorful:
		return true
	}
	return false
}

// LineItem is a single billable row. Amount is always derived from
// Quantity and UnitPrice, never set directly.
type LineItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// RateSettings holds the adjustments applied on top of the subtotal
type RateSettings struct {
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
	OtherTaxAmount decimal.Decimal `json:"other_tax_amount"`
	ShippingAmount decimal.Decimal `json:"shipping_amount"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	DiscountType   DiscountType    `json:"discount_type"`
	ShowSubtotal   bool            `json:"show_subtotal"`
	ShowTax        bool            `json:"show_tax"`
	ShowShipping   bool            `json:"show_shipping"`
	ShowDiscount   bool            `json:"show_discount"`
}

// Totals is the derived summary over the line items and rate settings
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	SalesTax       decimal.Decimal `json:"sales_tax"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

// State is the complete editable invoice. Dates are ISO strings because
// the editor treats them as plain form fields and allows them empty.
type State struct {
	CompanyName    string       `json:"company_name"`
	CompanyAddress string       `json:"company_address"`
	CompanyLogo    string       `json:"company_logo,omitempty"`
	ClientName     string       `json:"client_name"`
	ClientAddress  string       `json:"client_address"`
	ClientEmail    string       `json:"client_email"`
	InvoiceNumber  string       `json:"invoice_number"`
	PONumber       string       `json:"po_number"`
	InvoiceDate    string       `json:"invoice_date"`
	DueDate        string       `json:"due_date"`
	Currency       string       `json:"currency"`
	Template       Template     `json:"template"`
	Notes          string       `json:"notes"`
	BankDetails    string       `json:"bank_details"`
	Status         Status       `json:"status"`
	LineItems      []LineItem   `json:"line_items"`
	Rates          RateSettings `json:"rates"`
	Totals         Totals       `json:"totals"`
}

// NewState returns an invoice with editor defaults: a timestamp-based
// number, today's date, subtotal and tax rows visible.
func NewState() State {
	now := time.Now()
	return State{
		InvoiceNumber: fmt.Sprintf("INV-%d", now.UnixMilli()),
		InvoiceDate:   now.Format("2006-01-02"),
		Currency:      "USD",
		Template:      TemplateModern,
		Status:        StatusDraft,
		LineItems:     []LineItem{},
		Rates: RateSettings{
			DiscountType: DiscountPercentage,
			ShowSubtotal: true,
			ShowTax:      true,
		},
	}
}

// Clone returns a deep copy of the state
func (s State) Clone() State {
	out := s
	out.LineItems = make([]LineItem, len(s.LineItems))
	copy(out.LineItems, s.LineItems)
	return out
}
