package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quintaverde/pai/pkg/pai/assistant"
	"github.com/quintaverde/pai/pkg/pai/channels"
	"github.com/quintaverde/pai/pkg/pai/devices"
	"github.com/quintaverde/pai/pkg/pai/directory"
	"github.com/quintaverde/pai/pkg/pai/snapshots"
)

// newServeCmd creates the `pai serve` command that starts the server.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the assistant server",
		Long: `Start PAI as a server, exposing the chat API and the telephony
webhook, and (when enabled) the camera snapshot poller.

Examples:
  pai serve
  pai serve --config ./config.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── Load config ──
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := buildLogger(cmd, cfg)

	// ── Resolve secrets ──
	// Audit BEFORE resolving — checks the raw config values for hardcoded keys.
	assistant.AuditSecrets(cfg, logger)
	assistant.ResolveAPIKey(cfg, logger)

	// ── Open the directory ──
	store, err := directory.Open(cfg.Directory, logger)
	if err != nil {
		return fmt.Errorf("opening directory: %w", err)
	}
	defer store.Close()

	// ── Wire the core ──
	clients := devices.NewClients(cfg.Devices)
	llm := assistant.NewLLMClient(cfg, logger)
	executor := assistant.NewToolExecutor(clients, store, cfg, logger)
	conv := assistant.NewConversation(llm, executor, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Start the channels ──
	server := channels.NewServer(cfg, store, conv, executor, logger)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	// ── Snapshot poller (optional) ──
	var poller *snapshots.Poller
	if cfg.Snapshots.Enabled {
		poller, err = snapshots.NewPoller(cfg.Snapshots, logger)
		if err != nil {
			logger.Error("snapshot poller unavailable", "error", err)
		} else if err := poller.Start(ctx); err != nil {
			logger.Error("snapshot poller failed to start", "error", err)
			poller = nil
		}
	}

	// ── Wait for shutdown ──
	logger.Info("PAI running. Press Ctrl+C to stop.",
		"name", cfg.Name,
		"model", cfg.Model,
		"address", cfg.Server.Address,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	done := make(chan struct{})
	go func() {
		if poller != nil {
			poller.Stop()
		}
		server.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10s, forcing exit")
	}

	return nil
}

// buildLogger creates the slog logger from flags and config.
func buildLogger(cmd *cobra.Command, cfg *assistant.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}

// resolveConfig loads config from the --config flag or standard locations,
// falling back to defaults when no file exists.
func resolveConfig(cmd *cobra.Command) (*assistant.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	if configPath != "" {
		cfg, err := assistant.LoadConfigFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	if found := assistant.FindConfigFile(); found != "" {
		cfg, err := assistant.LoadConfigFromFile(found)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", found, err)
		}
		slog.Info("config loaded", "path", found)
		return cfg, nil
	}

	slog.Info("no config file found, using defaults. Run 'pai config init' to create one.")
	return assistant.DefaultConfig(), nil
}
