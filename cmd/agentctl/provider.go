package main

import (
	"fmt"
	"os"

	"github.com/nexusrun/agentcore/internal/agent"
	"github.com/nexusrun/agentcore/internal/provider/anthropic"
	"github.com/nexusrun/agentcore/internal/provider/openai"
)

// buildProvider resolves an agent.Provider from the --provider flag,
// reading the matching API key from the environment.
func buildProvider(name, model string) (agent.Provider, error) {
	switch name {
	case "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		return anthropic.New(anthropic.Config{APIKey: key, DefaultModel: model})
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return openai.New(openai.Config{APIKey: key, DefaultModel: model})
	default:
		return nil, fmt.Errorf("unknown provider %q (want \"anthropic\" or \"openai\")", name)
	}
}
