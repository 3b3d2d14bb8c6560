// Package main provides the agentctl CLI, a thin wrapper that wires an
// Agent, its built-in tools, and a chosen model provider together to run a
// single task from the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "agentctl",
		Short:        "Run a single-agent or multi-agent task from the command line",
		SilenceUsage: true,
	}
	root.AddCommand(buildRunCmd(), buildDebateCmd())
	return root
}

func exitErr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
