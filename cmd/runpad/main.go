package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/runpad/internal/config"
	"github.com/michaelbrown/runpad/internal/editor"
	"github.com/michaelbrown/runpad/internal/lang"
)

var (
	configFlag    string
	backendFlag   string
	languagesFlag string
	transportFlag string
)

var rootCmd = &cobra.Command{
	Use:   "runpad",
	Short: "Runpad - online code runner",
	Long: `Runpad lets you write code, run it with optional stdin on a remote
execution service, and see the output and run time.

"runpad serve" starts the relay and the browser editor. The other commands
are terminal front ends that talk to a running relay.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: ./runpad.yaml or ~/.runpad/runpad.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Relay base URL (overrides config and BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&languagesFlag, "languages", "", "YAML language catalog (overrides config)")
	rootCmd.PersistentFlags().StringVar(&transportFlag, "transport", "http", "Relay transport for client commands (http, ws)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFlag != "" {
		cfg, err = config.LoadFile(configFlag)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if backendFlag != "" {
		cfg.Client.BackendURL = strings.TrimRight(backendFlag, "/")
	}
	if languagesFlag != "" {
		cfg.Client.LanguagesFile = languagesFlag
	}
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (lang.Catalog, error) {
	cat, err := lang.Load(cfg.Client.LanguagesFile)
	if err != nil {
		return nil, fmt.Errorf("loading languages: %w", err)
	}
	return cat, nil
}

// openRelay returns the transport selected by --transport and a func that
// releases it.
func openRelay(ctx context.Context, cfg *config.Config) (editor.Relay, func(), error) {
	switch transportFlag {
	case "", "http":
		return editor.NewHTTPRelay(cfg.Client.BackendURL), func() {}, nil
	case "ws":
		ws, err := editor.DialWS(ctx, cfg.Client.BackendURL)
		if err != nil {
			return nil, nil, err
		}
		return ws, func() { ws.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q (want http or ws)", transportFlag)
	}
}
