package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nexusrun/agentcore/pkg/models"
)

func textMsg(role models.Role, text string) models.Message {
	return models.Message{Role: role, Content: models.TextContent(text)}
}

func TestContextManager_EstimateTokensMonotonic(t *testing.T) {
	cm := NewContextManager(DefaultContextManagerConfig())
	short := []models.Message{textMsg(models.RoleUser, "hi")}
	long := []models.Message{textMsg(models.RoleUser, "hi"), textMsg(models.RoleAssistant, "a much longer reply with more words in it")}
	assert.Less(t, cm.EstimateTokens(short, nil), cm.EstimateTokens(long, nil))
}

func TestContextManager_CompactMessages_PreservesTaskAndTail(t *testing.T) {
	cm := NewContextManager(ContextManagerConfig{MaxContextTokens: 50, CompactThreshold: 0.5, TargetFraction: 0.5})

	messages := []models.Message{
		textMsg(models.RoleUser, "the original task, fairly short"),
	}
	for i := 0; i < 20; i++ {
		messages = append(messages,
			textMsg(models.RoleAssistant, "some filler assistant text that takes up space in the window"),
			textMsg(models.RoleUser, "some filler user text that also takes up space in the window"),
		)
	}

	compacted := cm.CompactMessages(messages, nil)

	assert.Equal(t, messages[0], compacted[0], "first user message (the task) must survive compaction")
	assert.Equal(t, messages[len(messages)-1], compacted[len(compacted)-1], "most recent message must survive")
	assert.Less(t, len(compacted), len(messages))
}

func TestContextManager_CompactMessages_NeverSplitsAToolPair(t *testing.T) {
	cm := NewContextManager(ContextManagerConfig{MaxContextTokens: 40, CompactThreshold: 0.5, TargetFraction: 0.5})

	messages := []models.Message{
		textMsg(models.RoleUser, "do several tool calls please, this is the task"),
	}
	for i := 0; i < 10; i++ {
		messages = append(messages,
			models.Message{Role: models.RoleAssistant, Content: models.BlockContent{
				models.ToolUseBlock{ID: "t", Name: "calc", Input: map[string]any{}},
			}},
			models.Message{Role: models.RoleUser, Content: models.BlockContent{
				models.ToolResultBlock{ToolUseID: "t", Content: "42"},
			}},
		)
	}

	compacted := cm.CompactMessages(messages, nil)

	for i, m := range compacted {
		if len(m.ToolResults()) > 0 {
			assert.Greater(t, i, 0, "a tool_result must never be the lead message after compaction")
			assert.NotEmpty(t, compacted[i-1].ToolUses(), "tool_result must be preceded by its tool_use")
		}
	}
}

func TestContextManager_CompactMessages_WarnsOnTieBreak(t *testing.T) {
	cm := NewContextManager(ContextManagerConfig{MaxContextTokens: 1, CompactThreshold: 0.0001, TargetFraction: 0.0001})
	var warned string
	cm.OnWarn(func(msg string) { warned = msg })

	messages := []models.Message{
		textMsg(models.RoleUser, "a task that alone already exceeds the tiny window"),
		textMsg(models.RoleAssistant, "a reply"),
	}
	cm.CompactMessages(messages, nil)

	assert.NotEmpty(t, warned, "compaction must warn rather than silently fail when it cannot meet target")
}

func TestContextManager_FitsInContext(t *testing.T) {
	cm := NewContextManager(ContextManagerConfig{MaxContextTokens: 1000, CompactThreshold: 0.8, TargetFraction: 0.6})
	assert.True(t, cm.FitsInContext([]models.Message{textMsg(models.RoleUser, "short")}, nil))
}
