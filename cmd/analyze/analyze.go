// Package analyze implements the command-line interface for running a
// span-offset bias analysis on a piece of text and rendering the result as
// a segment report.
package analyze

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/evanlambb/biaslens/internal/analysis"
	"github.com/evanlambb/biaslens/internal/config"
	"github.com/evanlambb/biaslens/internal/logger"
	"github.com/evanlambb/biaslens/internal/mlclient"
)

// Cmd represents the analyze command.
var Cmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Analyze text for biased spans",
	Long: `Analyze sends text to the external classifier, reconciles the returned
spans (normalization, overlap resolution, segmentation), and prints the
flagged spans and the segment sequence.

Examples:
  # Analyze a string
  biaslens analyze "She is so dumb and crazy"

  # Analyze a file
  biaslens analyze -f draft.txt

  # Analyze stdin
  cat draft.txt | biaslens analyze
`,
	RunE: runAnalyze,
}

// Command returns the analyze command for use in the root command.
func Command() *cobra.Command {
	Cmd.Flags().StringP("file", "f", "", "Read text from a file instead of the argument")
	Cmd.Flags().Float64P("sensitivity", "s", 0, "Drop spans below this confidence")
	Cmd.Flags().StringSliceP("category", "c", nil, "Only keep spans in these categories")
	return Cmd
}

// runAnalyze executes the analyze command.
func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	text, err := inputText(cmd, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no text to analyze")
	}

	client := mlclient.NewClient(cfg.Classifier.BaseURL, cfg.Classifier.Timeout, log)

	result, err := client.AnalyzeSpans(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	sensitivity, _ := cmd.Flags().GetFloat64("sensitivity")
	categories, _ := cmd.Flags().GetStringSlice("category")
	spans := filterSpans(result.Spans, sensitivity, categories)

	normalizer := analysis.NewNormalizer(log)
	resolved := analysis.Resolve(normalizer.Normalize(text, spans))
	segments := analysis.Segmentize(text, resolved)

	renderSpans(resolved)
	fmt.Println()
	renderSegments(segments)
	return nil
}

// inputText resolves the text to analyze from flag, argument, or stdin.
func inputText(cmd *cobra.Command, args []string) (string, error) {
	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// filterSpans applies sensitivity and category filters.
func filterSpans(spans []analysis.Span, sensitivity float64, categories []string) []analysis.Span {
	if sensitivity <= 0 && len(categories) == 0 {
		return spans
	}

	allowed := make(map[analysis.Category]bool, len(categories))
	for _, category := range categories {
		allowed[analysis.NormalizeCategory(category)] = true
	}

	filtered := make([]analysis.Span, 0, len(spans))
	for _, span := range spans {
		if span.Confidence < sensitivity {
			continue
		}
		if len(allowed) > 0 && !allowed[span.Category] {
			continue
		}
		filtered = append(filtered, span)
	}
	return filtered
}

// renderSpans displays the resolved spans in a table.
func renderSpans(spans []analysis.Span) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Range", "Category", "Confidence", "Text", "Suggestion"})
	for _, span := range spans {
		suggestion := ""
		if len(span.Suggestions) > 0 {
			suggestion = span.Suggestions[0].Text
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("%d-%d", span.StartIndex, span.EndIndex),
			span.Category,
			fmt.Sprintf("%.2f", span.Confidence),
			span.SourceText,
			suggestion,
		})
	}

	t.Render()
}

// renderSegments prints the segment sequence with flagged runs bracketed.
func renderSegments(segments []analysis.Segment) {
	var b strings.Builder
	for _, segment := range segments {
		if segment.Flagged {
			b.WriteString("[")
			b.WriteString(segment.Text)
			b.WriteString("]")
			continue
		}
		b.WriteString(segment.Text)
	}
	fmt.Println(b.String())
}
