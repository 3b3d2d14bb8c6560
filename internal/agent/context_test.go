package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusrun/agentcore/pkg/models"
)

func TestAgentContext_AddToolNoOpOnDuplicate(t *testing.T) {
	actx := NewAgentContext("task", NewToolRegistry(), 10, nil)
	actx.AddTool(noopTool("a"))
	actx.AddTool(noopTool("a"))
	assert.Equal(t, 1, actx.Tools().Len())
}

func TestAgentContext_RemoveToolPreservesOrder(t *testing.T) {
	actx := NewAgentContext("task", NewToolRegistry(), 10, nil)
	actx.AddTool(noopTool("a"))
	actx.AddTool(noopTool("b"))
	actx.AddTool(noopTool("c"))
	actx.RemoveTool("b")
	assert.Equal(t, []string{"a", "c"}, actx.Tools().Names())
}

func TestAgentContext_CheckpointRoundTrip(t *testing.T) {
	actx := NewAgentContext("task", NewToolRegistry(), 10, nil)
	actx.AddMessage(models.Message{Role: models.RoleUser, Content: models.TextContent("hello")})
	actx.AddTokenUsage(10, 20)
	actx.RecordToolCall("add", map[string]any{"a": 1}, "2", false)
	actx.Metadata["score"] = 0.5

	id := actx.CreateCheckpoint("")
	require.NotEmpty(t, id)

	// Mutate after the checkpoint.
	actx.AddMessage(models.Message{Role: models.RoleAssistant, Content: models.TextContent("world")})
	actx.AddTokenUsage(1, 1)
	actx.RecordToolCall("sub", map[string]any{"a": 2}, "1", false)
	actx.Metadata["score"] = 0.9
	actx.IncrementIteration()

	require.NoError(t, actx.RestoreCheckpoint(id))

	assert.Len(t, actx.Messages(), 1)
	assert.Equal(t, 0, actx.Iteration())
	assert.Equal(t, models.TokenUsageTotal{Input: 10, Output: 20, Total: 30}, actx.Usage())
	assert.Len(t, actx.ToolCalls(), 1)
	assert.Equal(t, 0.5, actx.Metadata["score"])
}

func TestAgentContext_RestoreUnknownCheckpointFails(t *testing.T) {
	actx := NewAgentContext("task", NewToolRegistry(), 10, nil)
	err := actx.RestoreCheckpoint("missing")
	assert.ErrorIs(t, err, ErrUnknownCheckpoint)
}

func TestAgentContext_DanglingToolUseSuppressesCompaction(t *testing.T) {
	cm := NewContextManager(ContextManagerConfig{MaxContextTokens: 1, CompactThreshold: 0.0001, TargetFraction: 0.0001})
	actx := NewAgentContext("task", NewToolRegistry(), 10, cm)

	// The task alone already overflows the one-token window, so its own
	// AddMessage compacts and warns; watch only the dangling tool_use add.
	actx.AddMessage(models.Message{Role: models.RoleUser, Content: models.TextContent("do the thing")})
	compacted := false
	cm.OnWarn(func(string) { compacted = true })
	actx.AddMessage(models.Message{
		Role: models.RoleAssistant,
		Content: models.BlockContent{
			models.ToolUseBlock{ID: "1", Name: "add", Input: map[string]any{}},
		},
	})

	// Compaction must not have fired: the last message is a dangling
	// tool_use awaiting its tool_result.
	assert.Len(t, actx.Messages(), 2)
	assert.False(t, compacted)
}

func TestAgentContext_Fork_IsIndependent(t *testing.T) {
	actx := NewAgentContext("task", NewToolRegistry(), 10, nil)
	actx.AddMessage(models.Message{Role: models.RoleUser, Content: models.TextContent("hi")})

	fork := actx.Fork()
	fork.AddMessage(models.Message{Role: models.RoleAssistant, Content: models.TextContent("forked reply")})

	assert.Len(t, actx.Messages(), 1, "parent must be untouched by fork mutation")
	assert.Len(t, fork.Messages(), 2)
}

func TestAgentContext_ToResult_BudgetFailure(t *testing.T) {
	actx := NewAgentContext("task", NewToolRegistry(), 0, nil)
	assert.True(t, actx.ReachedMaxIterations())
	actx.Fail(ErrorBudget, "max iterations reached")
	res := actx.ToResult()
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.Metadata.Iterations)
}
