// Package scan implements the command-line interface for scanning an HTML
// page for flagged clauses and highlighting or removing them.
package scan

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fsnotify/fsnotify"
	"github.com/gocolly/colly/v2"
	"github.com/spf13/cobra"

	"github.com/evanlambb/biaslens/internal/config"
	"github.com/evanlambb/biaslens/internal/domscan"
	"github.com/evanlambb/biaslens/internal/logger"
	"github.com/evanlambb/biaslens/internal/mlclient"
	"github.com/evanlambb/biaslens/internal/scanner"
)

// Cmd represents the scan command.
var Cmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan an HTML page for flagged clauses",
	Long: `Scan loads an HTML page from a file or URL, sends each candidate
element's text to the external classifier, and highlights (or removes) the
flagged clauses in place. The decorated markup is written to stdout or a
file.

Examples:
  # Highlight flagged clauses in a local page
  biaslens scan -f page.html -o highlighted.html

  # Remove flagged clauses from a fetched page
  biaslens scan -u https://example.com/post --remove

  # Keep rescanning a file as it changes
  biaslens scan -f page.html -o highlighted.html --watch
`,
	RunE: runScan,
}

// Command returns the scan command for use in the root command.
func Command() *cobra.Command {
	Cmd.Flags().StringP("file", "f", "", "HTML file to scan")
	Cmd.Flags().StringP("url", "u", "", "URL to fetch and scan")
	Cmd.Flags().StringP("out", "o", "", "Write the decorated markup to this file (default stdout)")
	Cmd.Flags().Bool("remove", false, "Remove flagged text instead of highlighting it")
	Cmd.Flags().Bool("watch", false, "Rescan the file whenever it changes (file input only)")
	return Cmd
}

// runScan executes the scan command.
func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	file, _ := cmd.Flags().GetString("file")
	pageURL, _ := cmd.Flags().GetString("url")
	out, _ := cmd.Flags().GetString("out")
	remove, _ := cmd.Flags().GetBool("remove")
	watch, _ := cmd.Flags().GetBool("watch")

	if file == "" && pageURL == "" {
		return fmt.Errorf("either --file or --url is required")
	}
	if watch && file == "" {
		return fmt.Errorf("--watch requires --file")
	}

	doc, err := loadDocument(file, pageURL)
	if err != nil {
		return err
	}

	client := mlclient.NewClient(cfg.Classifier.BaseURL, cfg.Classifier.Timeout, log)
	locator := domscan.NewLocator(log, cfg.Detection.MinTextLength)

	render := func(int) {
		if writeErr := writeDocument(doc, out); writeErr != nil {
			log.Error("Failed to write output", "error", writeErr)
		}
	}

	sched := scanner.NewScheduler(log, locator, client, scanner.Options{
		Enabled:        true,
		Threshold:      cfg.Detection.Threshold,
		AutoRemove:     remove || cfg.Detection.AutoRemove,
		Debounce:       cfg.Detection.Debounce,
		OnScanComplete: render,
	})
	defer sched.Close()

	sched.Start(cmd.Context(), doc)

	if !watch {
		return nil
	}
	return watchFile(cmd.Context(), file, log, sched, &doc)
}

// loadDocument parses the page from a file or by fetching the URL.
func loadDocument(file, pageURL string) (*goquery.Document, error) {
	if file != "" {
		return readDocument(file)
	}
	return fetchDocument(pageURL)
}

// readDocument parses an HTML file.
func readDocument(path string) (*goquery.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTML file: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// fetchDocument fetches a page and parses its HTML.
func fetchDocument(pageURL string) (*goquery.Document, error) {
	var body []byte

	collector := colly.NewCollector()
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	collector.Wait()

	if len(body) == 0 {
		return nil, fmt.Errorf("empty response from %s", pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse fetched HTML: %w", err)
	}
	return doc, nil
}

// writeDocument renders the document to the output file or stdout.
func writeDocument(doc *goquery.Document, out string) error {
	html, err := doc.Html()
	if err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}
	if out == "" {
		fmt.Println(html)
		return nil
	}
	if err := os.WriteFile(out, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// watchFile rescans whenever the backing file changes. File rewrites stand
// in for tree mutations: each change swaps the parsed document and feeds
// the scheduler's debounce.
func watchFile(ctx context.Context, path string, log logger.Interface, sched *scanner.Scheduler, doc **goquery.Document) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch file: %w", err)
	}

	log.Info("Watching for changes", "file", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			next, readErr := readDocument(path)
			if readErr != nil {
				log.Warn("Skipping unreadable update", "error", readErr)
				continue
			}
			*doc = next
			sched.SetDocument(next)
			sched.NotifyMutation()
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("Watcher error", "error", watchErr)
		}
	}
}
