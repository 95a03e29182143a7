package mail

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
)

const (
	DefaultBaseURL = "https://api.resend.com"
	DefaultFrom    = "Invoice Builder <invoices@rezonia.dev>"
	defaultTimeout = 30 * time.Second
)

// DeliveryError represents email delivery failures
type DeliveryError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *DeliveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("email delivery failed: %s (%v)", e.Message, e.Cause)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("email delivery failed: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("email delivery failed: %s", e.Message)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// NewDeliveryError creates a new delivery error
func NewDeliveryError(statusCode int, message string, cause error) *DeliveryError {
	return &DeliveryError{StatusCode: statusCode, Message: message, Cause: cause}
}

// Sender delivers rendered invoices through a Resend-compatible API
type Sender struct {
	apiKey     string
	baseURL    string
	from       string
	httpClient *http.Client
	logger     *zap.Logger
}

// SenderOption configures the sender
type SenderOption func(*Sender)

// WithBaseURL overrides the API base URL
func WithBaseURL(url string) SenderOption {
	return func(s *Sender) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithFrom overrides the sender address
func WithFrom(from string) SenderOption {
	return func(s *Sender) {
		s.from = from
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(client *http.Client) SenderOption {
	return func(s *Sender) {
		s.httpClient = client
	}
}

// WithLogger sets the sender logger
func WithLogger(logger *zap.Logger) SenderOption {
	return func(s *Sender) {
		s.logger = logger
	}
}

// NewSender creates a sender authenticated with the given API key
func NewSender(apiKey string, opts ...SenderOption) *Sender {
	s := &Sender{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		from:       DefaultFrom,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Message is one outbound invoice email
type Message struct {
	To      string
	ReplyTo string
	Subject string
	HTML    string
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

type apiError struct {
	Message string `json:"message"`
}

// Send delivers one message and returns the provider's message id
func (s *Sender) Send(ctx context.Context, msg Message) (string, error) {
	if msg.To == "" {
		return "", NewDeliveryError(0, "recipient address is required", nil)
	}

	body, err := json.Marshal(sendRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return "", NewDeliveryError(0, "request encoding failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", NewDeliveryError(0, "request build failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", NewDeliveryError(0, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		message := "provider rejected the message"
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			message = apiErr.Message
		}
		s.logger.Warn("email send rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("to", msg.To))
		return "", NewDeliveryError(resp.StatusCode, message, nil)
	}

	var out sendResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", NewDeliveryError(resp.StatusCode, "response decoding failed", err)
	}

	s.logger.Info("email sent",
		zap.String("to", msg.To),
		zap.String("message_id", out.ID))
	return out.ID, nil
}
