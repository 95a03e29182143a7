package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"

	// Global flags
	verbose        bool
	apiKey         string
	llmBaseURL     string
	llmModel       string
	llmVisionModel string
)

var rootCmd = &cobra.Command{
	Use:   "invoice-builder",
	Short: "Create, render, and send invoices",
	Long: `Invoice Builder is a tool for creating invoices, rendering them to
HTML or PDF, and sending them to clients.

Supports:
  - Interactive editing through an HTTP API
  - Pre-filling invoices from uploaded documents via LLM extraction
  - HTML and PDF rendering with selectable templates
  - Email delivery with optional CRM sync

Examples:
  # Start the HTTP API server
  invoice-builder serve

  # Render a saved invoice snapshot to PDF
  invoice-builder render invoice.json -o invoice.pdf

  # Extract invoice data from a document
  invoice-builder extract receipt.pdf --api-key <openrouter-key>`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for LLM provider (env: LLM_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&llmBaseURL, "llm-base-url", "", "LLM API base URL (env: LLM_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&llmModel, "llm-model", "", "LLM model for text extraction (env: LLM_MODEL)")
	rootCmd.PersistentFlags().StringVar(&llmVisionModel, "llm-vision-model", "", "LLM model for vision/image extraction (env: LLM_VISION_MODEL)")

	// Load from environment variables if not set via flags
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if apiKey == "" {
		apiKey = os.Getenv("LLM_API_KEY")
	}
	if llmBaseURL == "" {
		llmBaseURL = os.Getenv("LLM_BASE_URL")
	}
	if llmModel == "" {
		llmModel = os.Getenv("LLM_MODEL")
	}
	if llmVisionModel == "" {
		llmVisionModel = os.Getenv("LLM_VISION_MODEL")
	}
}

func logLevel() string {
	if verbose {
		return "debug"
	}
	return "info"
}
