package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oselz/docent/internal/api"
	"github.com/oselz/docent/internal/app"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server_addr from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting docent", "version", AppVersion, "storage", cfg.Storage, "model", cfg.FullModelName())

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	server, err := api.NewServer(api.Config{
		Logger:         logger,
		Registry:       a.Registry,
		Pipeline:       a.Router,
		Dispatcher:     a.Dispatcher,
		Sessions:       a.Sessions,
		Store:          a.Store,
		Ingestor:       a.Ingestor,
		BuildIndex:     a.BuildIndex,
		Ready:          a.Ready,
		IdentityHeader: cfg.IdentityHeader,
		AnonymousUser:  cfg.AnonymousUser,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.ServerAddr
	}

	return server.Run(ctx, addr)
}
