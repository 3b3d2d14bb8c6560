package agent

import (
	"fmt"

	"github.com/nexusrun/agentcore/pkg/models"
)

// charsPerToken is the teacher's documented token-estimation heuristic
// (internal/agent/context/packer.go: "~7500 tokens at 4 chars/token").
// Exactness is not required by §4.4, only monotonicity with content volume.
const charsPerToken = 4

// ContextManagerConfig configures ContextManager.
type ContextManagerConfig struct {
	// MaxContextTokens is the model's prompt budget.
	MaxContextTokens int
	// CompactThreshold is the usage fraction (0-1) at which
	// AgentContext.AddMessage auto-invokes compaction. Default 0.8 — the
	// teacher's CompactionConfig.ThresholdPercent default (80), see §9.
	CompactThreshold float64
	// TargetFraction is the usage fraction CompactMessages aims to fall
	// below after compacting. Defaults to 0.6 if unset.
	TargetFraction float64
}

// DefaultContextManagerConfig returns the resolved Open Question default:
// an 8k-token window and an 0.8 compaction threshold.
func DefaultContextManagerConfig() ContextManagerConfig {
	return ContextManagerConfig{
		MaxContextTokens: 8000,
		CompactThreshold: 0.8,
		TargetFraction:   0.6,
	}
}

// ContextManager bounds the prompt size: it estimates token usage and
// compacts message history to stay within the model's context window,
// per §4.4.
type ContextManager struct {
	cfg     ContextManagerConfig
	onWarn  func(msg string)
}

// NewContextManager builds a ContextManager from cfg, filling in defaults
// for any zero fields.
func NewContextManager(cfg ContextManagerConfig) *ContextManager {
	defaults := DefaultContextManagerConfig()
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = defaults.MaxContextTokens
	}
	if cfg.CompactThreshold <= 0 {
		cfg.CompactThreshold = defaults.CompactThreshold
	}
	if cfg.TargetFraction <= 0 {
		cfg.TargetFraction = defaults.TargetFraction
	}
	return &ContextManager{cfg: cfg}
}

// OnWarn registers a callback invoked when compaction cannot fully meet its
// target (the tie-break case in §4.4).
func (m *ContextManager) OnWarn(fn func(msg string)) { m.onWarn = fn }

func (m *ContextManager) warn(msg string) {
	if m.onWarn != nil {
		m.onWarn(msg)
	}
}

// CompactThreshold returns the configured auto-compaction trigger fraction.
func (m *ContextManager) CompactThreshold() float64 { return m.cfg.CompactThreshold }

// EstimateTokens approximates the token cost of a message list plus the
// tool definitions that accompany every call.
func (m *ContextManager) EstimateTokens(messages []models.Message, tools []Definition) int {
	total := 0
	for _, msg := range messages {
		total += messageChars(msg)
	}
	for _, t := range tools {
		total += len(t.Name) + len(t.Description) + 64
	}
	return total / charsPerToken
}

// UsagePercentage returns EstimateTokens / MaxContextTokens.
func (m *ContextManager) UsagePercentage(messages []models.Message, tools []Definition) float64 {
	if m.cfg.MaxContextTokens <= 0 {
		return 0
	}
	return float64(m.EstimateTokens(messages, tools)) / float64(m.cfg.MaxContextTokens)
}

// FitsInContext reports whether usage is at or below 1.0.
func (m *ContextManager) FitsInContext(messages []models.Message, tools []Definition) bool {
	return m.UsagePercentage(messages, tools) <= 1.0
}

func messageChars(m models.Message) int {
	n := len(m.Text())
	for _, tu := range m.ToolUses() {
		n += len(tu.Name) + len(fmt.Sprint(tu.Input)) + 16
	}
	for _, tr := range m.ToolResults() {
		n += len(tr.Content) + 16
	}
	return n
}

// CompactMessages returns a new message list whose estimate is below
// TargetFraction of the window, preserving (§4.4):
//  1. the initial user task (first user message),
//  2. the most recent messages, enough to hold at least one full
//     tool_use/tool_result pair if the tail has one,
//  3. no orphan tool_use without its matching tool_result (trims on pair
//     boundaries),
//  4. a synthesized summary message describing the dropped middle.
//
// If even keeping only the task and the tail still exceeds budget, the
// manager keeps the task (tie-break: never drops it) and returns the
// smallest superset it can achieve, logging via OnWarn rather than
// failing.
func (m *ContextManager) CompactMessages(messages []models.Message, tools []Definition) []models.Message {
	if len(messages) == 0 {
		return messages
	}

	taskIdx := firstUserMessageIndex(messages)
	if taskIdx < 0 {
		return messages
	}
	task := messages[taskIdx]

	target := m.cfg.TargetFraction * float64(m.cfg.MaxContextTokens) * charsPerToken

	// Grow the tail backwards from the end until we'd exceed budget (after
	// reserving room for the task and a summary placeholder), snapping the
	// cut point to a tool_use/tool_result pair boundary.
	budget := target - float64(messageChars(task)) - summaryReserve
	if budget < 0 {
		budget = 0
	}

	tailStart := len(messages)
	used := 0.0
	for i := len(messages) - 1; i > taskIdx; i-- {
		c := float64(messageChars(messages[i]))
		if used+c > budget && tailStart != len(messages) {
			break
		}
		used += c
		tailStart = i
	}
	tailStart = snapToPairBoundary(messages, tailStart)

	if tailStart <= taskIdx+1 {
		// Nothing got dropped: the whole list already fits, or the task
		// plus tail alone is already the whole remainder.
		if tailStart <= taskIdx {
			return messages
		}
	}

	dropped := tailStart - (taskIdx + 1)
	var result []models.Message
	result = append(result, task)
	if dropped > 0 {
		result = append(result, summaryMessage(dropped))
	}
	result = append(result, messages[tailStart:]...)

	if m.UsagePercentage(result, tools) > m.cfg.TargetFraction {
		m.warn(fmt.Sprintf("could not compact below target: %d messages retained after dropping %d", len(result), dropped))
	}
	return result
}

const summaryReserve = 200 * charsPerToken // reserve ~200 tokens for the synthesized summary

func firstUserMessageIndex(messages []models.Message) int {
	for i, m := range messages {
		if m.Role == models.RoleUser {
			return i
		}
	}
	return -1
}

// snapToPairBoundary walks start backwards, if necessary, so that the
// messages[start:] slice never begins mid-pair: an orphan tool_result at
// the very front (no preceding tool_use in the slice) is pulled back to
// include its tool_use message.
func snapToPairBoundary(messages []models.Message, start int) int {
	if start <= 0 || start >= len(messages) {
		return start
	}
	// If the message at start is a user message carrying tool_result
	// blocks, make sure the assistant message immediately before it (the
	// one holding the matching tool_use) is included too.
	if len(messages[start].ToolResults()) > 0 && start > 0 {
		if len(messages[start-1].ToolUses()) > 0 {
			return start - 1
		}
	}
	return start
}

func summaryMessage(droppedCount int) models.Message {
	text := fmt.Sprintf("[%d earlier messages omitted to fit the context window]", droppedCount)
	return models.Message{Role: models.RoleUser, Content: models.TextContent(text)}
}
