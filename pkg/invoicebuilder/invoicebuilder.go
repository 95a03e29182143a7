// Package invoicebuilder provides a public API for building invoices.
//
// This package exposes the invoice state store, the totals calculator,
// and rendering helpers for embedding the invoice editor core in other
// programs.
//
// Example usage:
//
//	b := invoicebuilder.New()
//	b.AddLineItem()
//	state := b.State()
//	pdf, err := b.RenderPDF()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(state.InvoiceNumber+".pdf", pdf, 0644)
package invoicebuilder

import (
	"github.com/rezonia/invoice-builder/internal/invoice"
	"github.com/rezonia/invoice-builder/internal/render"
)

// Re-export core types for public API
type (
	State        = invoice.State
	LineItem     = invoice.LineItem
	RateSettings = invoice.RateSettings
	Totals       = invoice.Totals
	Patch        = invoice.Patch
	DiscountType = invoice.DiscountType
	Status       = invoice.Status
	Template     = invoice.Template
)

// Re-export discount types
const (
	DiscountPercentage = invoice.DiscountPercentage
	DiscountFixed      = invoice.DiscountFixed
)

// Re-export lifecycle statuses
const (
	StatusDraft = invoice.StatusDraft
	StatusSent  = invoice.StatusSent
)

// Re-export rendering templates
const (
	TemplateModern   = invoice.TemplateModern
	TemplateClassic  = invoice.TemplateClassic
	TemplateColorful = invoice.TemplateColorful
)

// Re-export error types
type (
	NotFoundError   = invoice.NotFoundError
	ValidationError = invoice.ValidationError
	RenderError     = render.RenderError
)

// ComputeTotals derives the monetary summary for a set of line items
// and rate settings without going through a Builder.
func ComputeTotals(items []LineItem, rates RateSettings) Totals {
	return invoice.ComputeTotals(items, rates)
}

// Builder is an editing session over a single invoice
type Builder struct {
	store *invoice.Store
}

// New creates a builder seeded with editor defaults
func New() *Builder {
	return &Builder{store: invoice.NewStore()}
}

// NewFromState creates a builder around an existing invoice state
func NewFromState(state State) *Builder {
	return &Builder{store: invoice.NewStoreWith(state)}
}

// State returns a snapshot of the current invoice
func (b *Builder) State() State {
	return b.store.State()
}

// Apply applies a partial update and returns the new state
func (b *Builder) Apply(p Patch) State {
	return b.store.ApplyUpdate(p)
}

// AddLineItem appends a blank row and returns the new state
func (b *Builder) AddLineItem() State {
	return b.store.AddLineItem()
}

// RemoveLineItem deletes the row with the given id
func (b *Builder) RemoveLineItem(id string) State {
	return b.store.RemoveLineItem(id)
}

// UpdateLineItem edits one field of one row
func (b *Builder) UpdateLineItem(id, field string, value interface{}) State {
	return b.store.UpdateLineItem(id, field, value)
}

// MergeExtractedData folds extracted document data into the invoice
func (b *Builder) MergeExtractedData(p Patch) State {
	return b.store.MergeExtractedData(p)
}

// RenderHTML renders the invoice as a standalone HTML document
func (b *Builder) RenderHTML() ([]byte, error) {
	return render.HTML(b.store.State(), "")
}

// RenderPDF renders the invoice as an A4 PDF document
func (b *Builder) RenderPDF() ([]byte, error) {
	return render.PDF(b.store.State())
}
