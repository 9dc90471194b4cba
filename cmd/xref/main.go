// Package main is the entry point for the xref command line tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/quran-xref/cmd/xref/commands"
	"github.com/Sternrassler/quran-xref/pkg/config"
	"github.com/Sternrassler/quran-xref/pkg/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}
	logging.Setup(cfg.LoggingConfig())
	logger := logging.NewLogger(logging.ComponentCLI)

	// 2. Data access
	adapter, cleanup, err := newAdapter(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize")
		return 1
	}
	defer cleanup()

	// 3. CLI
	cli := commands.New(adapter)
	cli.SetArgs(args)

	if err := cli.Execute(ctx); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		return 1
	}
	return 0
}
