package render

import (
	"bytes"

	"github.com/jung-kurt/gofpdf"

	"github.com/rezonia/invoice-builder/internal/invoice"
)

const (
	pageMargin  = 15.0
	descWidth   = 90.0
	numColWidth = 30.0
	rowHeight   = 8.0
)

// accentRGB maps a template name to its heading color in RGB
var accentRGB = map[invoice.Template][3]int{
	invoice.TemplateModern:   {37, 99, 235},
	invoice.TemplateClassic:  {55, 65, 81},
	invoice.TemplateColorful: {219, 39, 119},
}

func accent(t invoice.Template) (int, int, int) {
	c, ok := accentRGB[t]
	if !ok {
		c = accentRGB[invoice.TemplateModern]
	}
	return c[0], c[1], c[2]
}

// PDF renders the invoice to an A4 PDF document
func PDF(state invoice.State) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.AddPage()

	r, g, b := accent(state.Template)

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(r, g, b)
	pdf.CellFormat(0, 12, "INVOICE", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(107, 114, 128)
	pdf.CellFormat(0, 5, "Invoice #: "+state.InvoiceNumber, "", 1, "L", false, 0, "")
	if state.PONumber != "" {
		pdf.CellFormat(0, 5, "PO #: "+state.PONumber, "", 1, "L", false, 0, "")
	}
	if state.InvoiceDate != "" {
		pdf.CellFormat(0, 5, "Date: "+state.InvoiceDate, "", 1, "L", false, 0, "")
	}
	if state.DueDate != "" {
		pdf.CellFormat(0, 5, "Due: "+state.DueDate, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetTextColor(31, 41, 55)
	half := (210 - 2*pageMargin) / 2
	topY := pdf.GetY()

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(half, 5, "From", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(half, 5, state.CompanyName+"\n"+state.CompanyAddress, "", "L", false)
	leftBottom := pdf.GetY()

	pdf.SetXY(pageMargin+half, topY)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(half, 5, "Bill To", "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetX(pageMargin + half)
	pdf.MultiCell(half, 5, state.ClientName+"\n"+state.ClientAddress+"\n"+state.ClientEmail, "", "L", false)
	if pdf.GetY() < leftBottom {
		pdf.SetY(leftBottom)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetDrawColor(r, g, b)
	pdf.CellFormat(descWidth, rowHeight, "Description", "B", 0, "L", false, 0, "")
	pdf.CellFormat(numColWidth/1.5, rowHeight, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(numColWidth, rowHeight, "Unit Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(numColWidth, rowHeight, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetDrawColor(229, 231, 235)
	for _, row := range state.LineItems {
		pdf.CellFormat(descWidth, rowHeight, row.Description, "B", 0, "L", false, 0, "")
		pdf.CellFormat(numColWidth/1.5, rowHeight, row.Quantity.String(), "B", 0, "R", false, 0, "")
		pdf.CellFormat(numColWidth, rowHeight, formatMoney(state.Currency, row.UnitPrice), "B", 0, "R", false, 0, "")
		pdf.CellFormat(numColWidth, rowHeight, formatMoney(state.Currency, row.Amount), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	labelW := 140.0
	valueW := 210 - 2*pageMargin - labelW
	totalRow := func(label, value string) {
		pdf.CellFormat(labelW, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(valueW, 6, value, "", 1, "R", false, 0, "")
	}

	if state.Rates.ShowSubtotal {
		totalRow("Subtotal", formatMoney(state.Currency, state.Totals.Subtotal))
	}
	if state.Rates.ShowTax {
		totalRow("Sales Tax ("+state.Rates.TaxRatePercent.String()+"%)", formatMoney(state.Currency, state.Totals.SalesTax))
	}
	if !state.Rates.OtherTaxAmount.IsZero() {
		totalRow("Other Tax", formatMoney(state.Currency, state.Rates.OtherTaxAmount))
	}
	if state.Rates.ShowShipping {
		totalRow("Shipping", formatMoney(state.Currency, state.Rates.ShippingAmount))
	}
	if state.Rates.ShowDiscount {
		totalRow("Discount", "-"+formatMoney(state.Currency, state.Totals.DiscountAmount))
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(r, g, b)
	totalRow("Total", formatMoney(state.Currency, state.Totals.Total))
	pdf.SetTextColor(31, 41, 55)

	if state.Notes != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, 5, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 4.5, state.Notes, "", "L", false)
	}
	if state.BankDetails != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, 5, "Bank Details", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 4.5, state.BankDetails, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, NewRenderError("pdf", "document generation failed", err)
	}
	return buf.Bytes(), nil
}
