// Package openai adapts the Chat Completions API to agent.Provider: a
// single non-streaming call per loop iteration.
package openai

import (
	"context"
	"encoding/json"
	"errors"

	sdk "github.com/sashabaranov/go-openai"

	"github.com/nexusrun/agentcore/internal/agent"
	"github.com/nexusrun/agentcore/pkg/models"
)

// Config holds the parameters needed to build a Provider.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// Provider implements agent.Provider over go-openai.
type Provider struct {
	client       *sdk.Client
	defaultModel string
}

// New builds a Provider. APIKey is required.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, agent.NewError(agent.ErrorConfiguration, "openai: APIKey is required", nil)
	}
	clientCfg := sdk.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "gpt-4o"
	}
	return &Provider{client: sdk.NewClientWithConfig(clientCfg), defaultModel: model}, nil
}

// Complete implements agent.Provider.
func (p *Provider) Complete(ctx context.Context, req agent.CompletionRequest) (models.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := convertMessages(req.Messages, req.System)

	chatReq := sdk.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		chatReq.Temperature = float32(req.Temperature)
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertTools(req.Tools)
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return models.CompletionResponse{}, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return models.CompletionResponse{}, agent.NewError(agent.ErrorModelProtocol, "openai: empty choices", nil)
	}

	return convertResponse(resp), nil
}

func convertMessages(messages []models.Message, system string) []sdk.ChatCompletionMessage {
	result := make([]sdk.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		result = append(result, sdk.ChatCompletionMessage{Role: sdk.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range messages {
		switch c := m.Content.(type) {
		case models.TextContent:
			result = append(result, sdk.ChatCompletionMessage{Role: roleOf(m.Role), Content: string(c)})
		case models.BlockContent:
			var text string
			var toolCalls []sdk.ToolCall
			for _, b := range c {
				switch v := b.(type) {
				case models.TextBlock:
					text += v.Text
				case models.ToolUseBlock:
					args, _ := json.Marshal(v.Input)
					toolCalls = append(toolCalls, sdk.ToolCall{
						ID:   v.ID,
						Type: sdk.ToolTypeFunction,
						Function: sdk.FunctionCall{
							Name:      v.Name,
							Arguments: string(args),
						},
					})
				case models.ToolResultBlock:
					result = append(result, sdk.ChatCompletionMessage{
						Role:       sdk.ChatMessageRoleTool,
						Content:    v.Content,
						ToolCallID: v.ToolUseID,
					})
				}
			}
			if text != "" || len(toolCalls) > 0 {
				result = append(result, sdk.ChatCompletionMessage{
					Role:      roleOf(m.Role),
					Content:   text,
					ToolCalls: toolCalls,
				})
			}
		}
	}
	return result
}

func roleOf(r models.Role) string {
	if r == models.RoleAssistant {
		return sdk.ChatMessageRoleAssistant
	}
	return sdk.ChatMessageRoleUser
}

func convertTools(tools []agent.Definition) []sdk.Tool {
	out := make([]sdk.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, sdk.Tool{
			Type: sdk.ToolTypeFunction,
			Function: &sdk.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}

func convertResponse(resp sdk.ChatCompletionResponse) models.CompletionResponse {
	choice := resp.Choices[0]
	var content models.BlockContent
	if choice.Message.Content != "" {
		content = append(content, models.TextBlock{Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		var input map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
		content = append(content, models.ToolUseBlock{ID: tc.ID, Name: tc.Function.Name, Input: input})
	}

	stopReason := models.StopEndTurn
	switch choice.FinishReason {
	case sdk.FinishReasonToolCalls, sdk.FinishReasonFunctionCall:
		stopReason = models.StopToolUse
	case sdk.FinishReasonLength:
		stopReason = models.StopMaxTokens
	case sdk.FinishReasonStop:
		stopReason = models.StopEndTurn
	}

	return models.CompletionResponse{
		Content:    content,
		StopReason: stopReason,
		Usage: models.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
}

func classifyError(err error) error {
	var apiErr *sdk.APIError
	if !errors.As(err, &apiErr) {
		return agent.NewError(agent.ErrorTransport, "openai: request failed", err)
	}
	switch apiErr.HTTPStatusCode {
	case 401, 403:
		return agent.NewError(agent.ErrorAuth, "openai: authentication failed", err)
	case 429:
		return agent.NewError(agent.ErrorRateLimit, "openai: rate limited", err)
	case 400:
		return agent.NewError(agent.ErrorValidation, "openai: invalid request", err)
	default:
		return agent.NewError(agent.ErrorTransport, "openai: request failed", err)
	}
}
