// Package anthropic adapts Anthropic's Messages API to agent.Provider: a
// single non-streaming complete() call, no session state held here.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nexusrun/agentcore/internal/agent"
	"github.com/nexusrun/agentcore/pkg/models"
)

// Config holds the parameters needed to build a Provider.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// Provider implements agent.Provider over the Anthropic SDK.
type Provider struct {
	client       sdk.Client
	defaultModel string
}

// New builds a Provider. APIKey is required; BaseURL and DefaultModel fall
// back to the SDK's own default and "claude-sonnet-4-20250514"
// respectively.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, agent.NewError(agent.ErrorConfiguration, "anthropic: APIKey is required", nil)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &Provider{client: sdk.NewClient(opts...), defaultModel: model}, nil
}

// Complete implements agent.Provider.
func (p *Provider) Complete(ctx context.Context, req agent.CompletionRequest) (models.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		return models.CompletionResponse{}, agent.NewError(agent.ErrorValidation, "anthropic: invalid messages", err)
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}
	if req.Thinking != nil && req.Thinking.Enabled {
		params.Thinking = sdk.ThinkingConfigParamOfEnabled(int64(req.Thinking.BudgetTokens))
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return models.CompletionResponse{}, classifyError(err)
	}

	return convertResponse(msg), nil
}

func convertMessages(messages []models.Message) ([]sdk.MessageParam, error) {
	result := make([]sdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		var blocks []sdk.ContentBlockParamUnion
		switch c := m.Content.(type) {
		case models.TextContent:
			blocks = append(blocks, sdk.NewTextBlock(string(c)))
		case models.BlockContent:
			for _, b := range c {
				switch v := b.(type) {
				case models.TextBlock:
					blocks = append(blocks, sdk.NewTextBlock(v.Text))
				case models.ToolUseBlock:
					blocks = append(blocks, sdk.NewToolUseBlock(v.ID, v.Input, v.Name))
				case models.ToolResultBlock:
					blocks = append(blocks, sdk.NewToolResultBlock(v.ToolUseID, v.Content, v.IsError))
				default:
					return nil, fmt.Errorf("unsupported block type %T", v)
				}
			}
		}
		if m.Role == models.RoleAssistant {
			result = append(result, sdk.NewAssistantMessage(blocks...))
		} else {
			result = append(result, sdk.NewUserMessage(blocks...))
		}
	}
	return result, nil
}

func convertTools(tools []agent.Definition) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := sdk.ToolInputSchemaParam{
			Properties: t.InputSchema.Properties,
		}
		tp := sdk.ToolUnionParamOfTool(schema, t.Name)
		tp.OfTool.Description = sdk.String(t.Description)
		out = append(out, tp)
	}
	return out
}

func convertResponse(msg *sdk.Message) models.CompletionResponse {
	content := make(models.BlockContent, 0, len(msg.Content))
	for _, b := range msg.Content {
		switch b.Type {
		case "text":
			content = append(content, models.TextBlock{Text: b.Text})
		case "tool_use":
			var input map[string]any
			_ = b.Input.UnmarshalTo(&input)
			content = append(content, models.ToolUseBlock{ID: b.ID, Name: b.Name, Input: input})
		}
	}
	return models.CompletionResponse{
		Content:    content,
		StopReason: convertStopReason(string(msg.StopReason)),
		Usage: models.TokenUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
}

func convertStopReason(reason string) models.StopReason {
	switch reason {
	case "tool_use":
		return models.StopToolUse
	case "max_tokens":
		return models.StopMaxTokens
	case "stop_sequence":
		return models.StopStopSequence
	default:
		return models.StopEndTurn
	}
}

// classifyError maps the SDK's HTTP-status-bearing errors onto the core
// error taxonomy so RetryHandler can decide without knowing about
// Anthropic specifically.
func classifyError(err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return agent.NewError(agent.ErrorTransport, "anthropic: request failed", err)
	}
	switch apiErr.StatusCode {
	case 401, 403:
		return agent.NewError(agent.ErrorAuth, "anthropic: authentication failed", err)
	case 429:
		return agent.NewError(agent.ErrorRateLimit, "anthropic: rate limited", err)
	case 400:
		return agent.NewError(agent.ErrorValidation, "anthropic: invalid request", err)
	default:
		return agent.NewError(agent.ErrorTransport, "anthropic: request failed", err)
	}
}
