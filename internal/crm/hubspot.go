package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rezonia/invoice-builder/internal/invoice"
)

const (
	DefaultBaseURL = "https://api.hubapi.com"
	defaultTimeout = 30 * time.Second
)

// SyncError represents CRM synchronization failures
type SyncError struct {
	Operation  string
	StatusCode int
	Message    string
	Cause      error
}

func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("crm %s failed: %s (%v)", e.Operation, e.Message, e.Cause)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("crm %s failed: %s (status %d)", e.Operation, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("crm %s failed: %s", e.Operation, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// NewSyncError creates a new sync error
func NewSyncError(operation string, statusCode int, message string, cause error) *SyncError {
	return &SyncError{Operation: operation, StatusCode: statusCode, Message: message, Cause: cause}
}

// Client talks to the HubSpot v3 CRM API
type Client struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
	logger      *zap.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client authenticated with a private app token
func NewClient(accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		accessToken: accessToken,
		baseURL:     DefaultBaseURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type objectResponse struct {
	ID string `json:"id"`
}

type searchResponse struct {
	Results []objectResponse `json:"results"`
}

func (c *Client) do(ctx context.Context, operation, method, path string, payload, out interface{}) (int, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, NewSyncError(operation, 0, "request encoding failed", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, NewSyncError(operation, 0, "request build failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, NewSyncError(operation, 0, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, NewSyncError(operation, resp.StatusCode, strings.TrimSpace(string(respBody)), nil)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, NewSyncError(operation, resp.StatusCode, "response decoding failed", err)
		}
	}
	return resp.StatusCode, nil
}

// CreateContact creates a contact for the invoice client. If the email
// already exists HubSpot answers 409, in which case the existing contact
// is looked up by email and its id returned.
func (c *Client) CreateContact(ctx context.Context, email, name string) (string, error) {
	firstName, lastName := splitName(name)
	payload := map[string]interface{}{
		"properties": map[string]string{
			"email":     email,
			"firstname": firstName,
			"lastname":  lastName,
		},
	}

	var created objectResponse
	status, err := c.do(ctx, "create contact", http.MethodPost, "/crm/v3/objects/contacts", payload, &created)
	if err == nil {
		c.logger.Debug("crm contact created", zap.String("contact_id", created.ID))
		return created.ID, nil
	}
	if status != http.StatusConflict {
		return "", err
	}

	return c.searchContactByEmail(ctx, email)
}

func (c *Client) searchContactByEmail(ctx context.Context, email string) (string, error) {
	payload := map[string]interface{}{
		"filterGroups": []map[string]interface{}{{
			"filters": []map[string]string{{
				"propertyName": "email",
				"operator":     "EQ",
				"value":        email,
			}},
		}},
		"limit": 1,
	}

	var found searchResponse
	if _, err := c.do(ctx, "search contact", http.MethodPost, "/crm/v3/objects/contacts/search", payload, &found); err != nil {
		return "", err
	}
	if len(found.Results) == 0 {
		return "", NewSyncError("search contact", 0, "contact exists but search returned no results", nil)
	}
	return found.Results[0].ID, nil
}

// CreateDeal records the invoice as a deal associated with the contact
func (c *Client) CreateDeal(ctx context.Context, contactID string, state invoice.State) (string, error) {
	dealName := "Invoice " + state.InvoiceNumber
	if state.ClientName != "" {
		dealName = state.ClientName + " - " + state.InvoiceNumber
	}

	payload := map[string]interface{}{
		"properties": map[string]string{
			"dealname":  dealName,
			"amount":    state.Totals.Total.StringFixed(2),
			"dealstage": "presentationscheduled",
			"pipeline":  "default",
		},
		"associations": []map[string]interface{}{{
			"to": map[string]string{"id": contactID},
			"types": []map[string]interface{}{{
				"associationCategory": "HUBSPOT_DEFINED",
				"associationTypeId":   3,
			}},
		}},
	}

	var created objectResponse
	if _, err := c.do(ctx, "create deal", http.MethodPost, "/crm/v3/objects/deals", payload, &created); err != nil {
		return "", err
	}
	c.logger.Debug("crm deal created", zap.String("deal_id", created.ID))
	return created.ID, nil
}

// LogEmailActivity records the sent invoice email on the contact timeline
func (c *Client) LogEmailActivity(ctx context.Context, contactID string, state invoice.State) error {
	payload := map[string]interface{}{
		"properties": map[string]string{
			"hs_timestamp":       time.Now().UTC().Format(time.RFC3339),
			"hs_email_direction": "EMAIL",
			"hs_email_subject":   "Invoice " + state.InvoiceNumber,
			"hs_email_status":    "SENT",
		},
		"associations": []map[string]interface{}{{
			"to": map[string]string{"id": contactID},
			"types": []map[string]interface{}{{
				"associationCategory": "HUBSPOT_DEFINED",
				"associationTypeId":   198,
			}},
		}},
	}

	_, err := c.do(ctx, "log email", http.MethodPost, "/crm/v3/objects/emails", payload, nil)
	return err
}

// SyncResult reports what a full sync created
type SyncResult struct {
	ContactID string
	DealID    string
}

// SyncInvoice runs the full post-delivery sync: ensure the contact
// exists, create a deal for the invoice, and log the email activity.
func (c *Client) SyncInvoice(ctx context.Context, state invoice.State) (SyncResult, error) {
	contactID, err := c.CreateContact(ctx, state.ClientEmail, state.ClientName)
	if err != nil {
		return SyncResult{}, err
	}

	dealID, err := c.CreateDeal(ctx, contactID, state)
	if err != nil {
		return SyncResult{ContactID: contactID}, err
	}

	if err := c.LogEmailActivity(ctx, contactID, state); err != nil {
		return SyncResult{ContactID: contactID, DealID: dealID}, err
	}

	c.logger.Info("crm sync complete",
		zap.String("contact_id", contactID),
		zap.String("deal_id", dealID),
		zap.String("invoice_number", state.InvoiceNumber))
	return SyncResult{ContactID: contactID, DealID: dealID}, nil
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.Fields(full)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
