package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rezonia/invoice-builder/internal/invoice"
	"github.com/rezonia/invoice-builder/internal/server"
)

func newTestServer(t *testing.T, opts ...server.Option) *server.Server {
	t.Helper()
	config := &server.Config{
		Address: ":8080",
		DBPath:  filepath.Join(t.TempDir(), "test.db"),
	}
	srv, err := server.NewServer(config, zap.NewNop(), opts...)
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *server.Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func createDraft(t *testing.T, srv *server.Server) (string, invoice.State) {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/v1/invoices", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp server.DraftResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.DraftID)
	return resp.DraftID, resp.Invoice
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.NotEmpty(t, response["time"])
}

func TestCreateDraft(t *testing.T) {
	srv := newTestServer(t)
	_, state := createDraft(t, srv)

	assert.True(t, strings.HasPrefix(state.InvoiceNumber, "INV-"))
	assert.Equal(t, "USD", state.Currency)
	assert.Empty(t, state.LineItems)
}

func TestGetDraft(t *testing.T) {
	srv := newTestServer(t)
	id, _ := createDraft(t, srv)

	w := doJSON(t, srv, http.MethodGet, "/api/v1/invoices/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp server.DraftResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.DraftID)
}

func TestGetDraftNotFound(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/v1/invoices/draft-999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateDraft(t *testing.T) {
	srv := newTestServer(t)
	id, _ := createDraft(t, srv)

	w := doJSON(t, srv, http.MethodPatch, "/api/v1/invoices/"+id, map[string]interface{}{
		"client_name":      "Acme Corp",
		"client_email":     "ap@acme.test",
		"tax_rate_percent": 10,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp server.DraftResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Acme Corp", resp.Invoice.ClientName)
	assert.Equal(t, "10", resp.Invoice.Rates.TaxRatePercent.String())
}

func TestLineItemLifecycle(t *testing.T) {
	srv := newTestServer(t)
	id, _ := createDraft(t, srv)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/invoices/"+id+"/items", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp server.DraftResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Invoice.LineItems, 1)
	itemID := resp.Invoice.LineItems[0].ID

	w = doJSON(t, srv, http.MethodPut, "/api/v1/invoices/"+id+"/items/"+itemID,
		server.UpdateItemRequest{Field: "quantity", Value: 3})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPut, "/api/v1/invoices/"+id+"/items/"+itemID,
		server.UpdateItemRequest{Field: "unit_price", Value: 50})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "150", resp.Invoice.LineItems[0].Amount.String())
	assert.Equal(t, "150", resp.Invoice.Totals.Subtotal.String())

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/invoices/"+id+"/items/"+itemID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Invoice.LineItems)
	assert.Equal(t, "0", resp.Invoice.Totals.Total.String())
}

type fakeExtractor struct {
	patch invoice.Patch
	err   error
}

func (f *fakeExtractor) ExtractDocument(_ context.Context, _ []byte, _ string) (invoice.Patch, error) {
	return f.patch, f.err
}

func TestExtractEndpoint(t *testing.T) {
	clientName := "Extracted Client"
	srv := newTestServer(t, server.WithExtractor(&fakeExtractor{
		patch: invoice.Patch{ClientName: &clientName},
	}))
	id, _ := createDraft(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/"+id+"/extract",
		bytes.NewReader([]byte("Invoice for Extracted Client")))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp server.DraftResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Extracted Client", resp.Invoice.ClientName)
}

func TestExtractEndpointNotConfigured(t *testing.T) {
	srv := newTestServer(t)
	id, _ := createDraft(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/"+id+"/extract",
		bytes.NewReader([]byte("some document")))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRenderEndpointHTML(t *testing.T) {
	srv := newTestServer(t)
	id, _ := createDraft(t, srv)

	doJSON(t, srv, http.MethodPatch, "/api/v1/invoices/"+id, map[string]interface{}{
		"client_name": "Acme Corp",
	})

	w := doJSON(t, srv, http.MethodPost, "/api/v1/invoices/"+id+"/render",
		server.RenderRequest{Format: "html"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Acme Corp")
}

func TestRenderEndpointPDF(t *testing.T) {
	srv := newTestServer(t)
	id, _ := createDraft(t, srv)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/invoices/"+id+"/render",
		server.RenderRequest{Format: "pdf"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))
}

func TestRenderEndpointBadFormat(t *testing.T) {
	srv := newTestServer(t)
	id, _ := createDraft(t, srv)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/invoices/"+id+"/render",
		server.RenderRequest{Format: "docx"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveAndListEndpoints(t *testing.T) {
	srv := newTestServer(t)
	id, _ := createDraft(t, srv)

	doJSON(t, srv, http.MethodPatch, "/api/v1/invoices/"+id, map[string]interface{}{
		"client_name": "Acme Corp",
	})

	w := doJSON(t, srv, http.MethodPost, "/api/v1/invoices/"+id+"/save",
		server.SaveRequest{OwnerID: "user-1"})
	require.Equal(t, http.StatusOK, w.Code)

	var saveResp server.SaveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saveResp))
	assert.Positive(t, saveResp.InvoiceID)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/saved?owner_id=user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listResp server.SavedListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Len(t, listResp.Invoices, 1)
	assert.Equal(t, "Acme Corp", listResp.Invoices[0].ClientName)
}

func TestRenderEndpointFormatQuery(t *testing.T) {
	srv := newTestServer(t)
	id, _ := createDraft(t, srv)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/invoices/"+id+"/render?format=html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

func TestSaveOwnerFromHeader(t *testing.T) {
	srv := newTestServer(t)
	id, _ := createDraft(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/"+id+"/save", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-7")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w2 := doJSON(t, srv, http.MethodGet, "/api/v1/saved?owner_id=user-7", nil)
	require.Equal(t, http.StatusOK, w2.Code)

	var listResp server.SavedListResponse
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &listResp))
	assert.Len(t, listResp.Invoices, 1)
}

func TestSaveMissingOwner(t *testing.T) {
	srv := newTestServer(t)
	id, _ := createDraft(t, srv)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/invoices/"+id+"/save", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSavedMissingOwner(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/v1/saved", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmailEndpointRequiresClientEmail(t *testing.T) {
	mailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("delivery must not be attempted without a client email")
	}))
	defer mailServer.Close()

	config := &server.Config{
		Address:      ":8080",
		ResendAPIKey: "re_test",
		MailBaseURL:  mailServer.URL,
	}
	srv, err := server.NewServer(config, zap.NewNop())
	require.NoError(t, err)

	id, _ := createDraft(t, srv)
	w := doJSON(t, srv, http.MethodPost, "/api/v1/invoices/"+id+"/email", server.EmailRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmailEndpointSendsAndMarksSent(t *testing.T) {
	var sent bool
	mailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sent = true
		json.NewEncoder(w).Encode(map[string]string{"id": "msg_1"})
	}))
	defer mailServer.Close()

	config := &server.Config{
		Address:      ":8080",
		ResendAPIKey: "re_test",
		MailBaseURL:  mailServer.URL,
	}
	srv, err := server.NewServer(config, zap.NewNop())
	require.NoError(t, err)

	id, _ := createDraft(t, srv)
	doJSON(t, srv, http.MethodPatch, "/api/v1/invoices/"+id, map[string]interface{}{
		"client_email": "ap@acme.test",
	})

	w := doJSON(t, srv, http.MethodPost, "/api/v1/invoices/"+id+"/email",
		server.EmailRequest{CustomMessage: "Thanks!"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, sent)

	var resp server.EmailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "msg_1", resp.MessageID)
	assert.Equal(t, invoice.StatusSent, resp.Invoice.Status)
	assert.Empty(t, resp.Warning)
}

func TestEmailEndpointCRMFailureIsWarning(t *testing.T) {
	mailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "msg_1"})
	}))
	defer mailServer.Close()

	crmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer crmServer.Close()

	config := &server.Config{
		Address:        ":8080",
		ResendAPIKey:   "re_test",
		MailBaseURL:    mailServer.URL,
		HubSpotToken:   "pat-test",
		HubSpotBaseURL: crmServer.URL,
	}
	srv, err := server.NewServer(config, zap.NewNop())
	require.NoError(t, err)

	id, _ := createDraft(t, srv)
	doJSON(t, srv, http.MethodPatch, "/api/v1/invoices/"+id, map[string]interface{}{
		"client_email": "ap@acme.test",
		"client_name":  "Acme Corp",
	})

	w := doJSON(t, srv, http.MethodPost, "/api/v1/invoices/"+id+"/email", server.EmailRequest{})
	require.Equal(t, http.StatusOK, w.Code)

	var resp server.EmailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "msg_1", resp.MessageID)
	assert.Contains(t, resp.Warning, "CRM sync failed")
	assert.Equal(t, invoice.StatusSent, resp.Invoice.Status)
}

func TestEmailEndpointDeliveryFailure(t *testing.T) {
	mailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer mailServer.Close()

	config := &server.Config{
		Address:      ":8080",
		ResendAPIKey: "re_test",
		MailBaseURL:  mailServer.URL,
	}
	srv, err := server.NewServer(config, zap.NewNop())
	require.NoError(t, err)

	id, _ := createDraft(t, srv)
	doJSON(t, srv, http.MethodPatch, "/api/v1/invoices/"+id, map[string]interface{}{
		"client_email": "ap@acme.test",
	})

	w := doJSON(t, srv, http.MethodPost, "/api/v1/invoices/"+id+"/email", server.EmailRequest{})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	// Draft stays in draft status on failed delivery
	w = doJSON(t, srv, http.MethodGet, "/api/v1/invoices/"+id, nil)
	var resp server.DraftResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, invoice.StatusDraft, resp.Invoice.Status)
}
