// Package cmd implements the docent command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oselz/docent/internal/config"
	"github.com/oselz/docent/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "docent",
	Short: "Docent - document chat with retrieval-augmented answers",
	Long: `Docent answers questions about documents you upload, grounded in the
document's own text. It also hosts task assistants, web search, and a
demo chart generator, all reachable with slash commands.

Run "docent serve" to start the HTTP API, or "docent ask" for a
one-shot question.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads and validates configuration, and builds the logger
// the application components share.
func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	return cfg, logger, nil
}
