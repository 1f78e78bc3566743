package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/michaelbrown/runpad/internal/logging"
	"github.com/michaelbrown/runpad/internal/relay"
	"github.com/michaelbrown/runpad/internal/server"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay and the browser editor",
	Long: `Start the Runpad HTTP relay.

POST /run forwards code to the execution service. The browser editor is
available at the root URL.

Examples:
  runpad serve
  runpad serve --port 9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logging.New(os.Stderr, cfg.Log.Level)
	slog.SetDefault(log)

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	// Determine port
	port := cfg.Server.Port
	if portFlag > 0 {
		port = portFlag
	}

	svc := relay.New(relay.NewPistonClient(cfg.Relay.ExecuteURL, nil), cfg.Relay.Version, log)
	srv := server.New(svc, cat, log)
	log.Info("relay configured", "execute_url", cfg.Relay.ExecuteURL, "languages", len(cat))

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(port); err != nil {
			return fmt.Errorf("listening on :%d: %w", port, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown(context.Background())
	})
	return g.Wait()
}
