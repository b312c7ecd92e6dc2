// Package httpd implements the HTTP server command for BiasLens.
package httpd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evanlambb/biaslens/internal/api"
	"github.com/evanlambb/biaslens/internal/config"
	"github.com/evanlambb/biaslens/internal/domscan"
	"github.com/evanlambb/biaslens/internal/logger"
	"github.com/evanlambb/biaslens/internal/mlclient"
	"github.com/evanlambb/biaslens/internal/settings"
)

// Cmd represents the httpd command.
var Cmd = &cobra.Command{
	Use:   "httpd",
	Short: "Start the HTTP API server",
	Long: `Start the BiasLens HTTP API server. The server exposes span analysis,
suggestion replacement, and HTML clause scanning over REST, backed by the
external classifier.`,
	RunE: runHTTPD,
}

// Command returns the httpd command for use in the root command.
func Command() *cobra.Command {
	Cmd.Flags().Bool("debug", false, "enable debug mode")
	return Cmd
}

// runHTTPD starts the HTTP server and blocks until interrupted.
func runHTTPD(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		cfg.Logger.Level = logger.DebugLevel
		cfg.Logger.Development = true
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	// Persisted user preferences override the static config.
	store := settings.NewStore(settings.DefaultPath, log)
	prefs, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	client := mlclient.NewClient(cfg.Classifier.BaseURL, cfg.Classifier.Timeout, log)
	locator := domscan.NewLocator(log, cfg.Detection.MinTextLength)

	handler := api.NewHandler(log, client, locator, prefs.Enabled, prefs.Threshold)
	server := api.NewServer(cfg.Server, handler, log, debug)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
