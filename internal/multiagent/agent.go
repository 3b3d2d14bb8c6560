package multiagent

import (
	"context"

	"github.com/nexusrun/agentcore/internal/agent"
	"github.com/nexusrun/agentcore/pkg/models"
)

// Agent is the minimal surface a collaboration strategy needs from a
// participant: an identity, its advertised capabilities, and the ability
// to run a task to completion. Concrete participants are typically a
// thin wrapper around *agent.Agent, composed rather than inherited, per
// the "deep-inheritance on CollaborativeAgent" design note.
type Agent interface {
	ID() string
	Capabilities() []string
	Run(ctx context.Context, task string) models.AgentResult
}

// MessagingAgent is an Agent that also participates in the
// CollaborationManager's message-passing side channel: Receive delivers an
// incoming envelope, Outbox drains whatever the agent has queued to send
// since the last drain.
type MessagingAgent interface {
	Agent
	Receive(msg Message)
	Outbox() []Message
}

// promptModel issues a single free-text prompt through the shared
// model-transport interface (§6) and returns the concatenated text of the
// response along with the tokens it cost. Used for initiator selection,
// routing, decomposition, and synthesis — none of which need tools.
func promptModel(ctx context.Context, provider agent.Provider, prompt string) (string, models.TokenUsageTotal, error) {
	resp, err := provider.Complete(ctx, agent.CompletionRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: models.TextContent(prompt)}},
	})
	if err != nil {
		return "", models.TokenUsageTotal{}, err
	}
	usage := models.TokenUsageTotal{
		Input:  resp.Usage.InputTokens,
		Output: resp.Usage.OutputTokens,
		Total:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}
	text := ""
	for _, b := range resp.Content {
		if tb, ok := b.(models.TextBlock); ok {
			text += tb.Text
		}
	}
	return text, usage, nil
}
