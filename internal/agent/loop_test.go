package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusrun/agentcore/pkg/models"
)

// scriptedProvider replays a fixed sequence of responses, one per call,
// panicking if called more times than scripted (which would indicate the
// loop failed to terminate where the test expects it to).
func scriptedProvider(t *testing.T, responses ...models.CompletionResponse) Provider {
	t.Helper()
	i := 0
	return ProviderFunc(func(ctx context.Context, req CompletionRequest) (models.CompletionResponse, error) {
		if i >= len(responses) {
			t.Fatalf("provider called more times than scripted (%d)", len(responses))
		}
		resp := responses[i]
		i++
		return resp, nil
	})
}

func addTool() *FuncTool {
	return NewFuncTool("add", "adds two numbers", InputSchema{
		Properties: map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		Required: []string{"a", "b"},
	}, func(ctx context.Context, in map[string]any) (any, error) {
		return in["a"].(float64) + in["b"].(float64), nil
	})
}

// TestReactLoop_TwoStepArithmetic is the concrete end-to-end scenario:
// "(3+4)+5" resolved via two sequential tool calls, finishing in exactly 2
// iterations with the final answer "12".
func TestReactLoop_TwoStepArithmetic(t *testing.T) {
	provider := scriptedProvider(t,
		models.CompletionResponse{
			StopReason: models.StopToolUse,
			Content: models.BlockContent{
				models.ToolUseBlock{ID: "1", Name: "add", Input: map[string]any{"a": 3.0, "b": 4.0}},
			},
		},
		models.CompletionResponse{
			StopReason: models.StopToolUse,
			Content: models.BlockContent{
				models.ToolUseBlock{ID: "2", Name: "add", Input: map[string]any{"a": 7.0, "b": 5.0}},
			},
		},
		models.CompletionResponse{
			StopReason: models.StopEndTurn,
			Content:    models.BlockContent{models.TextBlock{Text: "12"}},
		},
	)

	registry := NewToolRegistry()
	registry.Register(addTool())
	actx := NewAgentContext("(3+4)+5", registry, 10, nil)
	actx.AddMessage(models.Message{Role: models.RoleUser, Content: models.TextContent("(3+4)+5")})

	loop := NewReactLoop()
	err := loop.Execute(context.Background(), actx, provider, DefaultAgentConfig())
	require.NoError(t, err)

	res := actx.ToResult()
	assert.True(t, res.Success)
	assert.Equal(t, "12", res.Answer)
	assert.Equal(t, 2, actx.Iteration())
}

func TestReactLoop_UnknownToolNameBecomesErrorResultNotFailure(t *testing.T) {
	provider := scriptedProvider(t,
		models.CompletionResponse{
			StopReason: models.StopToolUse,
			Content: models.BlockContent{
				models.ToolUseBlock{ID: "1", Name: "does-not-exist", Input: map[string]any{}},
			},
		},
		models.CompletionResponse{
			StopReason: models.StopEndTurn,
			Content:    models.BlockContent{models.TextBlock{Text: "done"}},
		},
	)

	actx := NewAgentContext("task", NewToolRegistry(), 10, nil)
	actx.AddMessage(models.Message{Role: models.RoleUser, Content: models.TextContent("task")})

	loop := NewReactLoop()
	var toolResult ToolResult
	loop.SetCallbacks(nil, func(name string, input map[string]any, result ToolResult) {
		toolResult = result
	})

	err := loop.Execute(context.Background(), actx, provider, DefaultAgentConfig())
	require.NoError(t, err)

	assert.True(t, toolResult.IsError)
	assert.Contains(t, toolResult.Text, "Unknown tool: does-not-exist")
	assert.True(t, actx.ToResult().Success, "an unknown tool must not fail the whole run")
}

func TestReactLoop_MaxIterationsZeroFailsWithoutCallingModel(t *testing.T) {
	provider := ProviderFunc(func(ctx context.Context, req CompletionRequest) (models.CompletionResponse, error) {
		t.Fatal("provider must never be called when max_iterations is 0")
		return models.CompletionResponse{}, nil
	})

	actx := NewAgentContext("task", NewToolRegistry(), 0, nil)
	loop := NewReactLoop()
	err := loop.Execute(context.Background(), actx, provider, DefaultAgentConfig())
	require.NoError(t, err)

	res := actx.ToResult()
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.Metadata.Iterations)
}

func TestReactLoop_BudgetReachedMidRunCompletesAtExactlyMax(t *testing.T) {
	provider := scriptedProvider(t,
		models.CompletionResponse{
			StopReason: models.StopToolUse,
			Content: models.BlockContent{
				models.ToolUseBlock{ID: "1", Name: "add", Input: map[string]any{"a": 1.0, "b": 1.0}},
			},
		},
	)

	registry := NewToolRegistry()
	registry.Register(addTool())
	actx := NewAgentContext("task", registry, 1, nil)
	actx.AddMessage(models.Message{Role: models.RoleUser, Content: models.TextContent("task")})

	loop := NewReactLoop()
	err := loop.Execute(context.Background(), actx, provider, DefaultAgentConfig())
	require.NoError(t, err)

	res := actx.ToResult()
	assert.True(t, res.Success)
	assert.Equal(t, 1, actx.Iteration())
	assert.Equal(t, actx.Iteration(), res.Metadata.Iterations)
}

func TestReactLoop_PauseStopsBeforeNextModelCall(t *testing.T) {
	calls := 0
	provider := ProviderFunc(func(ctx context.Context, req CompletionRequest) (models.CompletionResponse, error) {
		calls++
		return models.CompletionResponse{
			StopReason: models.StopToolUse,
			Content: models.BlockContent{
				models.ToolUseBlock{ID: "1", Name: "add", Input: map[string]any{"a": 1.0, "b": 1.0}},
			},
		}, nil
	})

	registry := NewToolRegistry()
	registry.Register(addTool())
	actx := NewAgentContext("task", registry, 10, nil)
	actx.AddMessage(models.Message{Role: models.RoleUser, Content: models.TextContent("task")})

	loop := NewReactLoop()
	paused := false
	loop.SetPauseCheck(func() bool {
		if calls >= 1 {
			paused = true
			return true
		}
		return false
	})

	err := loop.Execute(context.Background(), actx, provider, DefaultAgentConfig())
	require.NoError(t, err)
	assert.True(t, paused)
	assert.False(t, actx.Completed(), "a paused run must remain resumable, not completed or failed")
	assert.Equal(t, 1, calls)
}
