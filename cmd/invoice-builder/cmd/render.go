package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-builder/pkg/invoicebuilder"
)

var (
	renderOutput string
	renderFormat string
)

var renderCmd = &cobra.Command{
	Use:   "render [invoice.json]",
	Short: "Render an invoice snapshot to HTML or PDF",
	Long: `Render a JSON invoice snapshot to an HTML or PDF document.

The input file holds an invoice state as produced by the API or by the
extract command. Line item amounts and totals are recomputed before
rendering, so a hand-edited snapshot stays consistent.

Examples:
  invoice-builder render invoice.json -o invoice.pdf
  invoice-builder render invoice.json --format html -o invoice.html`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output file (default: derived from input name)")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "pdf", "Output format (pdf, html)")
}

func runRender(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	var state invoicebuilder.State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse invoice snapshot: %w", err)
	}

	b := invoicebuilder.NewFromState(state)

	var out []byte
	switch renderFormat {
	case "pdf":
		out, err = b.RenderPDF()
	case "html":
		out, err = b.RenderHTML()
	default:
		return fmt.Errorf("unsupported format %q, use pdf or html", renderFormat)
	}
	if err != nil {
		return err
	}

	output := renderOutput
	if output == "" {
		base := strings.TrimSuffix(args[0], ".json")
		output = base + "." + renderFormat
	}

	if err := os.WriteFile(output, out, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Printf("Wrote %s (%d bytes)\n", output, len(out))
	return nil
}
