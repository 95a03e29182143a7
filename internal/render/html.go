package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/rezonia/invoice-builder/internal/invoice"
)

// RenderError represents rendering failures
type RenderError struct {
	Format  string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render %s failed: %s (%v)", e.Format, e.Message, e.Cause)
	}
	return fmt.Sprintf("render %s failed: %s", e.Format, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// NewRenderError creates a new render error
func NewRenderError(format, message string, cause error) *RenderError {
	return &RenderError{Format: format, Message: message, Cause: cause}
}

// accentColors maps a template name to its heading color
var accentColors = map[invoice.Template]string{
	invoice.TemplateModern:   "#2563eb",
	invoice.TemplateClassic:  "#374151",
	invoice.TemplateColorful: "#db2777",
}

// AccentColor returns the heading color for a template, falling back to
// the modern accent for unknown names.
func AccentColor(t invoice.Template) string {
	if c, ok := accentColors[t]; ok {
		return c
	}
	return accentColors[invoice.TemplateModern]
}

type htmlRow struct {
	Description string
	Quantity    string
	UnitPrice   string
	Amount      string
}

type htmlData struct {
	Accent        string
	State         invoice.State
	Rows          []htmlRow
	Subtotal      string
	SalesTax      string
	TaxRate       string
	OtherTax      string
	Shipping      string
	Discount      string
	Total         string
	HasOtherTax   bool
	CustomMessage string
}

var invoiceTmpl = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; color: #1f2937; margin: 40px; }
  h1 { color: {{.Accent}}; margin-bottom: 4px; }
  .meta { color: #6b7280; font-size: 13px; }
  .parties { display: flex; justify-content: space-between; margin: 24px 0; }
  table { width: 100%; border-collapse: collapse; margin-top: 16px; }
  th { text-align: left; border-bottom: 2px solid {{.Accent}}; padding: 8px 4px; font-size: 13px; }
  td { border-bottom: 1px solid #e5e7eb; padding: 8px 4px; font-size: 13px; }
  td.num, th.num { text-align: right; }
  .totals { margin-top: 16px; margin-left: auto; width: 280px; }
  .totals .row { display: flex; justify-content: space-between; padding: 4px 0; font-size: 13px; }
  .totals .grand { border-top: 2px solid {{.Accent}}; font-weight: bold; font-size: 15px; padding-top: 8px; }
  .notes { margin-top: 32px; font-size: 12px; color: #6b7280; white-space: pre-wrap; }
  .message { margin: 16px 0; font-size: 13px; }
</style>
</head>
<body>
{{if .State.CompanyLogo}}<img src="{{.State.CompanyLogo}}" alt="logo" style="max-height:64px">{{end}}
<h1>INVOICE</h1>
<div class="meta">
  <div>Invoice #: {{.State.InvoiceNumber}}</div>
  {{if .State.PONumber}}<div>PO #: {{.State.PONumber}}</div>{{end}}
  {{if .State.InvoiceDate}}<div>Date: {{.State.InvoiceDate}}</div>{{end}}
  {{if .State.DueDate}}<div>Due: {{.State.DueDate}}</div>{{end}}
</div>
{{if .CustomMessage}}<div class="message">{{.CustomMessage}}</div>{{end}}
<div class="parties">
  <div>
    <strong>From</strong><br>
    {{.State.CompanyName}}<br>
    {{.State.CompanyAddress}}
  </div>
  <div>
    <strong>Bill To</strong><br>
    {{.State.ClientName}}<br>
    {{.State.ClientAddress}}<br>
    {{.State.ClientEmail}}
  </div>
</div>
<table>
  <tr><th>Description</th><th class="num">Qty</th><th class="num">Unit Price</th><th class="num">Amount</th></tr>
  {{range .Rows}}
  <tr><td>{{.Description}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.UnitPrice}}</td><td class="num">{{.Amount}}</td></tr>
  {{end}}
</table>
<div class="totals">
  {{if .State.Rates.ShowSubtotal}}<div class="row"><span>Subtotal</span><span>{{.Subtotal}}</span></div>{{end}}
  {{if .State.Rates.ShowTax}}<div class="row"><span>Sales Tax ({{.TaxRate}}%)</span><span>{{.SalesTax}}</span></div>{{end}}
  {{if .HasOtherTax}}<div class="row"><span>Other Tax</span><span>{{.OtherTax}}</span></div>{{end}}
  {{if .State.Rates.ShowShipping}}<div class="row"><span>Shipping</span><span>{{.Shipping}}</span></div>{{end}}
  {{if .State.Rates.ShowDiscount}}<div class="row"><span>Discount</span><span>-{{.Discount}}</span></div>{{end}}
  <div class="row grand"><span>Total</span><span>{{.Total}}</span></div>
</div>
{{if .State.Notes}}<div class="notes"><strong>Notes</strong><br>{{.State.Notes}}</div>{{end}}
{{if .State.BankDetails}}<div class="notes"><strong>Bank Details</strong><br>{{.State.BankDetails}}</div>{{end}}
</body>
</html>
`))

func formatMoney(currency string, d decimal.Decimal) string {
	symbol := currencySymbol(currency)
	return symbol + d.StringFixed(2)
}

func currencySymbol(currency string) string {
	switch currency {
	case "", "USD":
		return "$"
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	default:
		return currency + " "
	}
}

func buildHTMLData(state invoice.State, customMessage string) htmlData {
	rows := make([]htmlRow, 0, len(state.LineItems))
	for _, item := range state.LineItems {
		rows = append(rows, htmlRow{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   formatMoney(state.Currency, item.UnitPrice),
			Amount:      formatMoney(state.Currency, item.Amount),
		})
	}
	return htmlData{
		Accent:        AccentColor(state.Template),
		State:         state,
		Rows:          rows,
		Subtotal:      formatMoney(state.Currency, state.Totals.Subtotal),
		SalesTax:      formatMoney(state.Currency, state.Totals.SalesTax),
		TaxRate:       state.Rates.TaxRatePercent.String(),
		OtherTax:      formatMoney(state.Currency, state.Rates.OtherTaxAmount),
		Shipping:      formatMoney(state.Currency, state.Rates.ShippingAmount),
		Discount:      formatMoney(state.Currency, state.Totals.DiscountAmount),
		Total:         formatMoney(state.Currency, state.Totals.Total),
		HasOtherTax:   !state.Rates.OtherTaxAmount.IsZero(),
		CustomMessage: customMessage,
	}
}

// HTML renders the invoice to a standalone HTML document. customMessage,
// when non-empty, is shown above the billed parties (used for emails).
func HTML(state invoice.State, customMessage string) ([]byte, error) {
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, buildHTMLData(state, customMessage)); err != nil {
		return nil, NewRenderError("html", "template execution failed", err)
	}
	return buf.Bytes(), nil
}
