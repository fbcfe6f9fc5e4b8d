package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/primus/primacron/internal/config"
	"github.com/primus/primacron/internal/directory"
	"github.com/primus/primacron/internal/gateway"
	"github.com/primus/primacron/internal/registry"
)

func serveCmd() *cobra.Command {
	var (
		listenAddr string
		dataDir    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the messaging gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFlag)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}

			dirClient, err := buildDirectoryClient(cfg)
			if err != nil {
				return err
			}

			node := gateway.New(cfg, dirClient)
			registerBuiltinValidators(node)

			if dataDir == "" {
				dataDir = defaultDataDir()
			}
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return fmt.Errorf("creating data dir: %w", err)
			}

			nodeRegistry, err := registry.Open(filepath.Join(dataDir, "nodes.db"))
			if err != nil {
				return fmt.Errorf("opening node registry: %w", err)
			}
			defer nodeRegistry.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			for _, peer := range cfg.PeerURLs {
				if err := nodeRegistry.Upsert(ctx, peer, peer); err != nil {
					slog.Warn("recording peer in node registry", "peer", peer, "err", err)
				}
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
			go func() {
				<-sigCh
				slog.Info("shutting down")
				cancel()
			}()

			return node.Serve(ctx, cfg.ListenAddr)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "Override the configured HTTP listen address")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory for the node registry (default: ~/.primacron)")

	return cmd
}

func buildDirectoryClient(cfg *config.Config) (directory.Client, error) {
	if cfg.Directory.RedisAddr == "" {
		slog.Info("using in-memory directory backend (single node only)")
		return directory.NewMemory(), nil
	}
	slog.Info("using redis directory backend", "addr", cfg.Directory.RedisAddr)
	return directory.NewRedis(cfg.Directory.RedisAddr, cfg.Directory.RedisDB), nil
}

func defaultDataDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		return "/tmp/.primacron"
	}
	return filepath.Join(home, ".primacron")
}
