package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rezonia/invoice-builder/internal/crm"
	"github.com/rezonia/invoice-builder/internal/extract"
	"github.com/rezonia/invoice-builder/internal/invoice"
	"github.com/rezonia/invoice-builder/internal/mail"
	"github.com/rezonia/invoice-builder/internal/render"
	"github.com/rezonia/invoice-builder/internal/storage"
)

// Config holds server configuration
type Config struct {
	Address        string
	APIKey         string
	LLMBaseURL     string
	LLMModel       string
	LLMVisionModel string
	ResendAPIKey   string
	MailBaseURL    string
	MailFrom       string
	HubSpotToken   string
	HubSpotBaseURL string
	DBPath         string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Debug          bool
}

// DocumentExtractor turns an uploaded document into a partial invoice update
type DocumentExtractor interface {
	ExtractDocument(ctx context.Context, content []byte, mimeType string) (invoice.Patch, error)
}

// Server represents the HTTP API server
type Server struct {
	config    *Config
	router    *gin.Engine
	logger    *zap.Logger
	drafts    *draftRegistry
	extractor DocumentExtractor
	sender    *mail.Sender
	crm       *crm.Client
	repo      *storage.Repository
}

// Option overrides a collaborator wired from config
type Option func(*Server)

// WithExtractor overrides the document extractor
func WithExtractor(e DocumentExtractor) Option {
	return func(s *Server) {
		s.extractor = e
	}
}

// WithRepository overrides the storage repository
func WithRepository(r *storage.Repository) Option {
	return func(s *Server) {
		s.repo = r
	}
}

// NewServer creates a new API server
func NewServer(config *Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{
		config: config,
		router: router,
		logger: logger,
		drafts: newDraftRegistry(),
	}

	if config.APIKey != "" {
		var clientOpts []extract.ClientOption
		if config.LLMBaseURL != "" {
			clientOpts = append(clientOpts, extract.WithBaseURL(config.LLMBaseURL))
		}
		if config.LLMVisionModel != "" {
			clientOpts = append(clientOpts, extract.WithVisionModel(config.LLMVisionModel))
		}
		client := extract.NewClient(config.APIKey, clientOpts...)

		extractorOpts := []extract.ExtractorOption{extract.WithLogger(logger)}
		if config.LLMModel != "" {
			extractorOpts = append(extractorOpts, extract.WithModel(config.LLMModel))
		}
		s.extractor = extract.NewExtractor(client, extractorOpts...)
	}

	if config.ResendAPIKey != "" {
		var senderOpts []mail.SenderOption
		if config.MailBaseURL != "" {
			senderOpts = append(senderOpts, mail.WithBaseURL(config.MailBaseURL))
		}
		if config.MailFrom != "" {
			senderOpts = append(senderOpts, mail.WithFrom(config.MailFrom))
		}
		senderOpts = append(senderOpts, mail.WithLogger(logger))
		s.sender = mail.NewSender(config.ResendAPIKey, senderOpts...)
	}

	if config.HubSpotToken != "" {
		var crmOpts []crm.ClientOption
		if config.HubSpotBaseURL != "" {
			crmOpts = append(crmOpts, crm.WithBaseURL(config.HubSpotBaseURL))
		}
		crmOpts = append(crmOpts, crm.WithLogger(logger))
		s.crm = crm.NewClient(config.HubSpotToken, crmOpts...)
	}

	if config.DBPath != "" {
		db, err := storage.New(storage.Config{Path: config.DBPath}, logger)
		if err != nil {
			return nil, err
		}
		s.repo = storage.NewRepository(db, logger)
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/invoices", s.handleCreateDraft)
		v1.GET("/invoices/:id", s.handleGetDraft)
		v1.PATCH("/invoices/:id", s.handleUpdateDraft)

		v1.POST("/invoices/:id/items", s.handleAddItem)
		v1.PUT("/invoices/:id/items/:itemID", s.handleUpdateItem)
		v1.DELETE("/invoices/:id/items/:itemID", s.handleRemoveItem)

		v1.POST("/invoices/:id/extract", s.handleExtract)
		v1.POST("/invoices/:id/render", s.handleRender)
		v1.POST("/invoices/:id/save", s.handleSave)
		v1.POST("/invoices/:id/email", s.handleEmail)

		v1.GET("/saved", s.handleListSaved)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) draft(c *gin.Context) (*invoice.Store, bool) {
	id := c.Param("id")
	store, ok := s.drafts.get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "draft not found"})
		return nil, false
	}
	return store, true
}

func (s *Server) handleCreateDraft(c *gin.Context) {
	id, store := s.drafts.create()
	s.logger.Debug("draft created", zap.String("draft_id", id))
	c.JSON(http.StatusCreated, DraftResponse{DraftID: id, Invoice: store.State()})
}

func (s *Server) handleGetDraft(c *gin.Context) {
	store, ok := s.draft(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, DraftResponse{DraftID: c.Param("id"), Invoice: store.State()})
}

func (s *Server) handleUpdateDraft(c *gin.Context) {
	store, ok := s.draft(c)
	if !ok {
		return
	}

	var patch invoice.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update payload", "details": err.Error()})
		return
	}

	state := store.ApplyUpdate(patch)
	c.JSON(http.StatusOK, DraftResponse{DraftID: c.Param("id"), Invoice: state})
}

func (s *Server) handleAddItem(c *gin.Context) {
	store, ok := s.draft(c)
	if !ok {
		return
	}
	state := store.AddLineItem()
	c.JSON(http.StatusOK, DraftResponse{DraftID: c.Param("id"), Invoice: state})
}

func (s *Server) handleUpdateItem(c *gin.Context) {
	store, ok := s.draft(c)
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item update", "details": err.Error()})
		return
	}

	state := store.UpdateLineItem(c.Param("itemID"), req.Field, req.Value)
	c.JSON(http.StatusOK, DraftResponse{DraftID: c.Param("id"), Invoice: state})
}

func (s *Server) handleRemoveItem(c *gin.Context) {
	store, ok := s.draft(c)
	if !ok {
		return
	}
	state := store.RemoveLineItem(c.Param("itemID"))
	c.JSON(http.StatusOK, DraftResponse{DraftID: c.Param("id"), Invoice: state})
}

func (s *Server) handleExtract(c *gin.Context) {
	store, ok := s.draft(c)
	if !ok {
		return
	}

	if s.extractor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document extraction not configured"})
		return
	}

	content, mimeType, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(content) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty document"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	patch, err := s.extractor.ExtractDocument(ctx, content, mimeType)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "extraction failed", "details": err.Error()})
		return
	}

	state := store.MergeExtractedData(patch)
	c.JSON(http.StatusOK, DraftResponse{DraftID: c.Param("id"), Invoice: state})
}

func (s *Server) handleRender(c *gin.Context) {
	store, ok := s.draft(c)
	if !ok {
		return
	}

	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid render request", "details": err.Error()})
		return
	}
	if req.Format == "" {
		req.Format = c.Query("format")
	}
	if req.Format == "" {
		req.Format = "pdf"
	}

	state := store.State()
	switch req.Format {
	case "html":
		out, err := render.HTML(state, req.CustomMessage)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "rendering failed", "details": err.Error()})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", out)
	case "pdf":
		out, err := render.PDF(state)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "rendering failed", "details": err.Error()})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+state.InvoiceNumber+`.pdf"`)
		c.Data(http.StatusOK, "application/pdf", out)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format, use html or pdf"})
	}
}

func (s *Server) handleSave(c *gin.Context) {
	store, ok := s.draft(c)
	if !ok {
		return
	}

	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence not configured"})
		return
	}

	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid save request", "details": err.Error()})
		return
	}
	if req.OwnerID == "" {
		req.OwnerID = c.GetHeader("X-User-ID")
	}
	if req.OwnerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	state := store.State()
	id, err := s.repo.Save(ctx, state, req.OwnerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "saving failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, SaveResponse{InvoiceID: id, Invoice: state})
}

func (s *Server) handleEmail(c *gin.Context) {
	store, ok := s.draft(c)
	if !ok {
		return
	}

	if s.sender == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "email delivery not configured"})
		return
	}

	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email request", "details": err.Error()})
		return
	}
	if req.OwnerID == "" {
		req.OwnerID = c.GetHeader("X-User-ID")
	}

	state := store.State()
	if state.ClientEmail == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client email is required before sending"})
		return
	}

	html, err := render.HTML(state, req.CustomMessage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rendering failed", "details": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Minute)
	defer cancel()

	subject := "Invoice " + state.InvoiceNumber
	if state.CompanyName != "" {
		subject = subject + " from " + state.CompanyName
	}

	messageID, err := s.sender.Send(ctx, mail.Message{
		To:      state.ClientEmail,
		Subject: subject,
		HTML:    string(html),
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "email delivery failed", "details": err.Error()})
		return
	}

	state = store.MarkSent()
	resp := EmailResponse{MessageID: messageID, Invoice: state}

	// The invoice is already in the client's inbox at this point, so
	// CRM sync failures degrade to a warning rather than an error.
	if s.crm != nil {
		result, err := s.crm.SyncInvoice(ctx, state)
		resp.ContactID = result.ContactID
		resp.DealID = result.DealID
		if err != nil {
			s.logger.Warn("crm sync failed after delivery",
				zap.String("invoice_number", state.InvoiceNumber),
				zap.Error(err))
			resp.Warning = "invoice sent but CRM sync failed: " + err.Error()
		}
	}

	if s.repo != nil && req.OwnerID != "" {
		savedID, err := s.repo.Save(ctx, state, req.OwnerID)
		if err != nil {
			s.logger.Warn("persisting sent invoice failed",
				zap.String("invoice_number", state.InvoiceNumber),
				zap.Error(err))
			if resp.Warning == "" {
				resp.Warning = "invoice sent but saving failed: " + err.Error()
			}
		} else if resp.DealID != "" {
			if err := s.repo.SetDealID(ctx, savedID, resp.DealID); err != nil {
				s.logger.Warn("recording deal id failed",
					zap.Int64("invoice_id", savedID),
					zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListSaved(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence not configured"})
		return
	}

	ownerID := c.Query("owner_id")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id query parameter is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	summaries, err := s.repo.List(ctx, ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, SavedListResponse{Invoices: summaries})
}

// readUpload accepts either a multipart form with a "document" file or a
// raw request body, returning the bytes and the declared media type.
func readUpload(c *gin.Context) ([]byte, string, error) {
	if file, err := c.FormFile("document"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, "", err
		}
		defer f.Close()

		content := make([]byte, file.Size)
		if _, err := io.ReadFull(f, content); err != nil {
			return nil, "", err
		}
		return content, file.Header.Get("Content-Type"), nil
	}

	body, err := c.GetRawData()
	if err != nil {
		return nil, "", err
	}
	return body, c.GetHeader("Content-Type"), nil
}
