package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-builder/internal/logging"
	"github.com/rezonia/invoice-builder/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	dbPath       string
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the invoice editing HTTP API server.

The API provides endpoints for:
  - POST   /api/v1/invoices                      - Create a draft invoice
  - GET    /api/v1/invoices/:id                  - Get draft state
  - PATCH  /api/v1/invoices/:id                  - Apply a partial update
  - POST   /api/v1/invoices/:id/items            - Add a line item
  - PUT    /api/v1/invoices/:id/items/:itemID    - Edit a line item field
  - DELETE /api/v1/invoices/:id/items/:itemID    - Remove a line item
  - POST   /api/v1/invoices/:id/extract          - Pre-fill from a document
  - POST   /api/v1/invoices/:id/render           - Render to HTML or PDF
  - POST   /api/v1/invoices/:id/save             - Persist the draft
  - POST   /api/v1/invoices/:id/email            - Send to the client
  - GET    /api/v1/saved                         - List saved invoices
  - GET    /health                               - Health check

Email delivery uses a Resend-compatible API (env: RESEND_API_KEY,
MAIL_BASE_URL, MAIL_FROM). CRM sync uses HubSpot (env:
HUBSPOT_ACCESS_TOKEN, HUBSPOT_BASE_URL).

Examples:
  # Start server on default port with a local database
  invoice-builder serve --db invoices.db

  # Start with document extraction enabled
  invoice-builder serve --api-key <key>

  # Start in debug mode
  invoice-builder serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", ":8080", "Server listen address")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (empty disables persistence)")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 5*time.Minute, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.New(logging.Config{Level: logLevel()})
	defer logger.Sync()

	config := &server.Config{
		Address:        serverAddr,
		APIKey:         apiKey,
		LLMBaseURL:     llmBaseURL,
		LLMModel:       llmModel,
		LLMVisionModel: llmVisionModel,
		ResendAPIKey:   os.Getenv("RESEND_API_KEY"),
		MailBaseURL:    os.Getenv("MAIL_BASE_URL"),
		MailFrom:       os.Getenv("MAIL_FROM"),
		HubSpotToken:   os.Getenv("HUBSPOT_ACCESS_TOKEN"),
		HubSpotBaseURL: os.Getenv("HUBSPOT_BASE_URL"),
		DBPath:         dbPath,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		Debug:          serverDebug,
	}

	srv, err := server.NewServer(config, logger)
	if err != nil {
		return err
	}

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		os.Exit(0)
	}()

	fmt.Printf("Starting server on %s\n", serverAddr)
	if apiKey != "" {
		fmt.Println("Document extraction enabled")
	} else {
		fmt.Println("Document extraction disabled (no API key)")
	}
	if config.ResendAPIKey != "" {
		fmt.Println("Email delivery enabled")
	}
	if config.DBPath != "" {
		fmt.Printf("Persistence enabled (%s)\n", config.DBPath)
	}

	return srv.Run()
}
