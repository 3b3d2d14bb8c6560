package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexusrun/agentcore/internal/agent"
)

func buildRunCmd() *cobra.Command {
	var (
		providerName  string
		model         string
		maxIterations int
		maxTokens     int
		systemPrompt  string
		opts          toolOptions
	)

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run a single task through the agent loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := buildProvider(providerName, model)
			if err != nil {
				return err
			}

			registry := agent.NewToolRegistry()
			cleanup, err := buildTools(registry, opts)
			if err != nil {
				return err
			}
			defer cleanup()

			cfg := agent.DefaultAgentConfig()
			if maxIterations > 0 {
				cfg.MaxIterations = maxIterations
			}
			if maxTokens > 0 {
				cfg.MaxTokens = maxTokens
			}
			cfg.SystemPrompt = systemPrompt
			cfg.Model = model

			a := agent.NewAgent(provider, cfg).WithToolRegistry(registry)
			result := a.Run(context.Background(), args[0])

			if !result.Success {
				exitErr("run failed: %s", result.Error)
				return nil
			}
			fmt.Println(result.Answer)
			return nil
		},
	}

	cmd.Flags().StringVar(&providerName, "provider", "anthropic", "model provider: anthropic|openai")
	cmd.Flags().StringVar(&model, "model", "", "override the provider's default model")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "override the default iteration budget")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "override the default per-call token budget")
	cmd.Flags().StringVar(&systemPrompt, "system", "", "system prompt for the run")
	cmd.Flags().StringSliceVar(&opts.allowedPaths, "allow-path", nil, "directory the filesystem tool may read/write (repeatable)")
	cmd.Flags().Int64Var(&opts.maxFileSize, "max-file-size", 0, "max bytes the filesystem tool will read/write")
	cmd.Flags().BoolVar(&opts.readOnlyFS, "fs-read-only", false, "disable filesystem writes")
	cmd.Flags().StringVar(&opts.dbDSN, "db-dsn", "", "database DSN for the database tool (postgres:// or sqlite file path)")
	cmd.Flags().StringSliceVar(&opts.allowedTables, "allow-table", nil, "table the database tool may reference (repeatable)")
	cmd.Flags().BoolVar(&opts.readOnlyDB, "db-read-only", false, "restrict the database tool to SELECT statements")
	cmd.Flags().StringSliceVar(&opts.allowedHosts, "allow-host", nil, "host the http tool may fetch from (repeatable)")

	return cmd
}
