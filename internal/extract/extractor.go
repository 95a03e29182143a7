package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rezonia/invoice-builder/internal/invoice"
	"github.com/rezonia/invoice-builder/internal/money"
)

// ChatClient is the LLM surface the extractor needs
type ChatClient interface {
	ChatText(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
	ChatWithImage(ctx context.Context, model, systemPrompt, userPrompt string, imageData []byte, mimeType string) (string, error)
}

// Extractor turns an uploaded document into a partial invoice update
type Extractor struct {
	client ChatClient
	logger *zap.Logger
	model  string
}

// ExtractorOption configures the extractor
type ExtractorOption func(*Extractor)

// WithModel overrides the model used for extraction requests
func WithModel(model string) ExtractorOption {
	return func(e *Extractor) {
		e.model = model
	}
}

// WithLogger sets the extractor logger
func WithLogger(logger *zap.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor creates an extractor backed by a chat client
func NewExtractor(client ChatClient, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		client: client,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractDocument extracts invoice data from an uploaded file. Images go
// through the vision model, PDFs are structurally validated first, and
// anything else is treated as plain text.
func (e *Extractor) ExtractDocument(ctx context.Context, content []byte, mimeType string) (invoice.Patch, error) {
	if len(content) == 0 {
		return invoice.Patch{}, NewExtractionError("upload", "empty document", nil)
	}

	mimeType = normalizeMIME(content, mimeType)
	e.logger.Debug("extracting document",
		zap.String("mime_type", mimeType),
		zap.Int("size", len(content)))

	var (
		raw string
		err error
	)
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		raw, err = e.client.ChatWithImage(ctx, e.model, SystemPromptInvoiceExtractor, UserPromptImageExtraction, content, mimeType)
		if err != nil {
			return invoice.Patch{}, NewExtractionError("image", "vision request failed", err)
		}
	case mimeType == "application/pdf":
		if err := validatePDF(content); err != nil {
			return invoice.Patch{}, NewExtractionError("pdf", "invalid PDF document", err)
		}
		prompt := fmt.Sprintf(UserPromptTextExtraction, string(content))
		raw, err = e.client.ChatText(ctx, e.model, SystemPromptInvoiceExtractor, prompt)
		if err != nil {
			return invoice.Patch{}, NewExtractionError("pdf", "chat request failed", err)
		}
	default:
		prompt := fmt.Sprintf(UserPromptTextExtraction, string(content))
		raw, err = e.client.ChatText(ctx, e.model, SystemPromptInvoiceExtractor, prompt)
		if err != nil {
			return invoice.Patch{}, NewExtractionError("text", "chat request failed", err)
		}
	}

	patch, err := ParsePatch(raw)
	if err != nil {
		return invoice.Patch{}, err
	}
	e.logger.Info("document extracted",
		zap.String("mime_type", mimeType),
		zap.Bool("has_line_items", patch.LineItems != nil))
	return patch, nil
}

func normalizeMIME(content []byte, declared string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(declared, ";"); i != -1 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return http.DetectContentType(content)
}

func validatePDF(content []byte) error {
	rs := bytes.NewReader(content)
	if err := api.Validate(rs, nil); err != nil {
		return err
	}
	if _, err := rs.Seek(0, 0); err != nil {
		return err
	}
	pages, err := api.PageCount(rs, nil)
	if err != nil {
		return err
	}
	if pages == 0 {
		return fmt.Errorf("document has no pages")
	}
	return nil
}

// payload mirrors the JSON schema the model is asked to produce. Numeric
// fields are decoded loosely because models sometimes quote them.
type payload struct {
	InvoiceNumber  *string       `json:"invoice_number"`
	PONumber       *string       `json:"po_number"`
	InvoiceDate    *string       `json:"invoice_date"`
	DueDate        *string       `json:"due_date"`
	CompanyName    *string       `json:"company_name"`
	CompanyAddress *string       `json:"company_address"`
	ClientName     *string       `json:"client_name"`
	ClientAddress  *string       `json:"client_address"`
	ClientEmail    *string       `json:"client_email"`
	Currency       *string       `json:"currency"`
	Notes          *string       `json:"notes"`
	BankDetails    *string       `json:"bank_details"`
	TaxRatePercent interface{}   `json:"tax_rate_percent"`
	ShippingAmount interface{}   `json:"shipping_amount"`
	DiscountValue  interface{}   `json:"discount_value"`
	DiscountType   *string       `json:"discount_type"`
	LineItems      []payloadItem `json:"line_items"`
}

type payloadItem struct {
	Description string      `json:"description"`
	Quantity    interface{} `json:"quantity"`
	UnitPrice   interface{} `json:"unit_price"`
}

// ParsePatch decodes an LLM response into an invoice patch
func ParsePatch(response string) (invoice.Patch, error) {
	jsonStr := ExtractJSON(response)

	var p payload
	dec := json.NewDecoder(strings.NewReader(jsonStr))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return invoice.Patch{}, NewExtractionError("parse", "response is not valid JSON", err)
	}

	patch := invoice.Patch{
		InvoiceNumber:  p.InvoiceNumber,
		PONumber:       p.PONumber,
		InvoiceDate:    p.InvoiceDate,
		DueDate:        p.DueDate,
		CompanyName:    p.CompanyName,
		CompanyAddress: p.CompanyAddress,
		ClientName:     p.ClientName,
		ClientAddress:  p.ClientAddress,
		ClientEmail:    p.ClientEmail,
		Currency:       p.Currency,
		Notes:          p.Notes,
		BankDetails:    p.BankDetails,
	}

	if p.TaxRatePercent != nil {
		patch.TaxRatePercent = decPtr(money.Coerce(p.TaxRatePercent))
	}
	if p.ShippingAmount != nil {
		patch.ShippingAmount = decPtr(money.Coerce(p.ShippingAmount))
	}
	if p.DiscountValue != nil {
		patch.DiscountValue = decPtr(money.Coerce(p.DiscountValue))
	}
	if p.DiscountType != nil {
		kind := invoice.DiscountType(*p.DiscountType)
		if kind == invoice.DiscountPercentage || kind == invoice.DiscountFixed {
			patch.DiscountType = &kind
		}
	}

	if p.LineItems != nil {
		items := make([]invoice.LineItem, 0, len(p.LineItems))
		for _, pi := range p.LineItems {
			items = append(items, invoice.LineItem{
				Description: pi.Description,
				Quantity:    money.Coerce(pi.Quantity),
				UnitPrice:   money.Coerce(pi.UnitPrice),
			})
		}
		patch.LineItems = &items
	}

	return patch, nil
}

func decPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
