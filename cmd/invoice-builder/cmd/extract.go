package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-builder/internal/extract"
	"github.com/rezonia/invoice-builder/internal/logging"
	"github.com/rezonia/invoice-builder/pkg/invoicebuilder"
)

var (
	extractOutput  string
	extractTimeout time.Duration
	extractFull    bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract invoice data from a document",
	Long: `Extract invoice data from a document using an LLM.

Supported inputs:
  - PDF: .pdf (structurally validated before extraction)
  - Images: .png, .jpg, .jpeg (vision model)
  - Anything else is treated as plain text

The output is a partial invoice update in JSON, suitable as input to
the render command (with --full) or the PATCH API endpoint.

Examples:
  invoice-builder extract receipt.pdf --api-key <key>
  invoice-builder extract invoice.png -o patch.json
  invoice-builder extract invoice.txt --full -o invoice.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Output file (default: stdout)")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", 2*time.Minute, "Extraction timeout")
	extractCmd.Flags().BoolVar(&extractFull, "full", false, "Output a full invoice snapshot instead of a patch")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if apiKey == "" {
		return fmt.Errorf("an API key is required, set --api-key or LLM_API_KEY")
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	logger := logging.New(logging.Config{Level: logLevel()})
	defer logger.Sync()

	var clientOpts []extract.ClientOption
	if llmBaseURL != "" {
		clientOpts = append(clientOpts, extract.WithBaseURL(llmBaseURL))
	}
	if llmVisionModel != "" {
		clientOpts = append(clientOpts, extract.WithVisionModel(llmVisionModel))
	}
	client := extract.NewClient(apiKey, clientOpts...)

	extractorOpts := []extract.ExtractorOption{extract.WithLogger(logger)}
	if llmModel != "" {
		extractorOpts = append(extractorOpts, extract.WithModel(llmModel))
	}
	extractor := extract.NewExtractor(client, extractorOpts...)

	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	mimeType := mime.TypeByExtension(filepath.Ext(args[0]))
	patch, err := extractor.ExtractDocument(ctx, content, mimeType)
	if err != nil {
		return err
	}

	var out []byte
	if extractFull {
		b := invoicebuilder.New()
		state := b.MergeExtractedData(patch)
		out, err = json.MarshalIndent(state, "", "  ")
	} else {
		out, err = json.MarshalIndent(patch, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	out = append(out, '\n')

	if extractOutput == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(extractOutput, out, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Printf("Wrote %s\n", extractOutput)
	return nil
}
