package main

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var configFlag string

func main() {
	setupLogging()

	rootCmd := &cobra.Command{
		Use:   "primacron",
		Short: "Horizontally-scalable realtime messaging gateway",
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to config.toml")

	rootCmd.AddCommand(
		serveCmd(),
		directoryCmd(),
		validatorsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging picks a slog handler suited to the output: a plain text
// handler for an interactive terminal, structured JSON otherwise (e.g.
// under a process supervisor or in CI).
func setupLogging() {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}
