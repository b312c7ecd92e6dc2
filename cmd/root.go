// Package cmd implements the command-line interface for BiasLens.
// It provides the root command and subcommands for analyzing text and
// scanning HTML for flagged content.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/evanlambb/biaslens/cmd/analyze"
	"github.com/evanlambb/biaslens/cmd/httpd"
	"github.com/evanlambb/biaslens/cmd/scan"
	"github.com/evanlambb/biaslens/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug mode for all commands.
	Debug bool

	// rootCmd represents the root command for the BiasLens CLI.
	rootCmd = &cobra.Command{
		Use:   "biaslens",
		Short: "Bias detection rendering engine",
		Long: `BiasLens consumes bias classifications from an external model and
renders them consistently: span analyses become highlighted segments, and
clause strings are located and decorated inside arbitrary HTML trees.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	_ = godotenv.Load()

	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := config.Init(cfgFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

// init initializes the root command and its subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("biaslens version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(analyze.Command())
	rootCmd.AddCommand(scan.Command())
	rootCmd.AddCommand(httpd.Command())
}
