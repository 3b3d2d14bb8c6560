package agent

import (
	"context"

	"github.com/nexusrun/agentcore/pkg/models"
)

// CompletionRequest is the argument to Provider.Complete, matching the
// external model-transport interface in §6: a single request/response
// operation, no streaming, no session state held by the provider.
type CompletionRequest struct {
	Model       string
	System      string
	Tools       []Definition
	Messages    []models.Message
	MaxTokens   int
	Temperature float64
	Thinking    *ThinkingConfig
}

// Provider is the out-of-core model transport the loop calls once per
// iteration. Concrete adapters (internal/provider/anthropic,
// internal/provider/openai) implement this against a real HTTP endpoint;
// the core never depends on a specific transport.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (models.CompletionResponse, error)
}

// ProviderFunc adapts a plain function to Provider, convenient for tests
// and small in-process stubs.
type ProviderFunc func(ctx context.Context, req CompletionRequest) (models.CompletionResponse, error)

func (f ProviderFunc) Complete(ctx context.Context, req CompletionRequest) (models.CompletionResponse, error) {
	return f(ctx, req)
}
