package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexusrun/agentcore/internal/agent"
	"github.com/nexusrun/agentcore/internal/multiagent"
	"github.com/nexusrun/agentcore/pkg/models"
)

// personaDebateAgent is a DebateAgent backed by a single Provider call per
// statement, with a fixed persona prepended to every prompt.
type personaDebateAgent struct {
	name     string
	persona  string
	provider agent.Provider
}

func (a *personaDebateAgent) Name() string { return a.name }

func (a *personaDebateAgent) Statement(ctx context.Context, topic, transcript string) (string, models.TokenUsageTotal, error) {
	prompt := fmt.Sprintf("%s\n\nTopic: %s\n\nTranscript so far:\n%s\n\nGive your next statement.", a.persona, topic, transcript)
	resp, err := a.provider.Complete(ctx, agent.CompletionRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: models.TextContent(prompt)}},
	})
	if err != nil {
		return "", models.TokenUsageTotal{}, err
	}
	var text string
	for _, b := range resp.Content {
		if tb, ok := b.(models.TextBlock); ok {
			text += tb.Text
		}
	}
	usage := models.TokenUsageTotal{
		Input:  resp.Usage.InputTokens,
		Output: resp.Usage.OutputTokens,
		Total:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}
	return text, usage, nil
}

func buildDebateCmd() *cobra.Command {
	var (
		providerName string
		model        string
		rounds       int
		personas     []string
	)

	cmd := &cobra.Command{
		Use:   "debate [topic]",
		Short: "Run a multi-agent debate over a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := buildProvider(providerName, model)
			if err != nil {
				return err
			}
			if len(personas) == 0 {
				personas = []string{"You argue in favor.", "You argue against.", "You moderate for balance."}
			}

			system := multiagent.NewDebateSystem(provider)
			for i, persona := range personas {
				system.Register(&personaDebateAgent{
					name:     fmt.Sprintf("agent-%d", i+1),
					persona:  persona,
					provider: provider,
				})
			}

			res, err := system.Conduct(context.Background(), args[0], multiagent.DebateConfig{
				Rounds:             rounds,
				EarlyStop:          true,
				ConsensusThreshold: 0.75,
			})
			if err != nil {
				return err
			}

			fmt.Printf("rounds: %d, agreement: %.2f\n\n%s\n", len(res.Rounds), res.AgreementScore, res.Synthesis)
			return nil
		},
	}

	cmd.Flags().StringVar(&providerName, "provider", "anthropic", "model provider: anthropic|openai")
	cmd.Flags().StringVar(&model, "model", "", "override the provider's default model")
	cmd.Flags().IntVar(&rounds, "rounds", 3, "maximum debate rounds")
	cmd.Flags().StringSliceVar(&personas, "persona", nil, "persona prompt per debate agent (repeatable)")

	return cmd
}
