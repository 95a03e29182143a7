package server

import (
	"github.com/rezonia/invoice-builder/internal/invoice"
	"github.com/rezonia/invoice-builder/internal/storage"
)

// DraftResponse wraps a draft id with its current invoice state
type DraftResponse struct {
	DraftID string        `json:"draft_id"`
	Invoice invoice.State `json:"invoice"`
}

// UpdateItemRequest edits one field of a line item
type UpdateItemRequest struct {
	Field string      `json:"field" binding:"required"`
	Value interface{} `json:"value"`
}

// RenderRequest selects an output format for rendering
type RenderRequest struct {
	Format        string `json:"format"`
	CustomMessage string `json:"custom_message"`
}

// SaveRequest persists the draft for an owner. The owner may also be
// identified through the X-User-ID header instead of the body.
type SaveRequest struct {
	OwnerID string `json:"owner_id"`
}

// SaveResponse reports the stored invoice id
type SaveResponse struct {
	InvoiceID int64         `json:"invoice_id"`
	Invoice   invoice.State `json:"invoice"`
}

// EmailRequest sends the rendered invoice to the client
type EmailRequest struct {
	CustomMessage string `json:"custom_message"`
	OwnerID       string `json:"owner_id"`
}

// EmailResponse reports the delivery outcome. Warning is set when the
// email went out but a follow-up step (CRM sync, persistence) failed.
type EmailResponse struct {
	MessageID string        `json:"message_id"`
	ContactID string        `json:"contact_id,omitempty"`
	DealID    string        `json:"deal_id,omitempty"`
	Warning   string        `json:"warning,omitempty"`
	Invoice   invoice.State `json:"invoice"`
}

// SavedListResponse lists an owner's stored invoices
type SavedListResponse struct {
	Invoices []storage.Summary `json:"invoices"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
