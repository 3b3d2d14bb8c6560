package agent

import (
	"time"

	"github.com/google/uuid"
	"github.com/nexusrun/agentcore/pkg/models"
)

// checkpoint is a snapshot of the mutable fields of AgentContext, taken by
// value/deep-copy so later mutation of the live context never bleeds
// through to a stored checkpoint.
type checkpoint struct {
	messages  []models.Message
	iteration int
	usage     models.TokenUsageTotal
	toolCalls []models.ToolCallLogEntry
	metadata  map[string]any
}

// AgentContext is the mutable per-run state described in §3. It is created
// fresh by the Agent facade at the start of a run and is not safe for
// concurrent use from multiple goroutines — within a single run the loop
// is strictly single-threaded (§5).
type AgentContext struct {
	Task string

	tools *ToolRegistry

	messages  []models.Message
	iteration int
	maxIter   int

	completed bool
	failed    bool
	answer    string
	errMsg    string

	usage models.TokenUsageTotal

	toolCalls []models.ToolCallLogEntry

	Metadata map[string]any

	contextManager *ContextManager

	startedAt time.Time
	endedAt   time.Time

	checkpoints map[string]checkpoint
}

// NewAgentContext creates a fresh context for a task run.
func NewAgentContext(task string, tools *ToolRegistry, maxIterations int, cm *ContextManager) *AgentContext {
	if tools == nil {
		tools = NewToolRegistry()
	}
	return &AgentContext{
		Task:           task,
		tools:          tools,
		maxIter:        maxIterations,
		Metadata:       make(map[string]any),
		contextManager: cm,
		startedAt:      time.Now(),
		checkpoints:    make(map[string]checkpoint),
	}
}

// Tools returns the context's mutable tool registry.
func (c *AgentContext) Tools() *ToolRegistry { return c.tools }

// AddTool registers a tool, but is a no-op if the name is already present
// so the model is never sent a duplicate definition (§4.2).
func (c *AgentContext) AddTool(t Tool) {
	if t == nil {
		return
	}
	if c.tools.Has(t.Name()) {
		return
	}
	c.tools.Register(t)
}

// RemoveTool drops a tool by name, preserving the order of the rest.
func (c *AgentContext) RemoveTool(name string) { c.tools.Remove(name) }

// GetTool looks up a tool by name.
func (c *AgentContext) GetTool(name string) (Tool, bool) { return c.tools.Get(name) }

// ToolDefinitions returns the wire-form tool list for the next model call.
func (c *AgentContext) ToolDefinitions() []Definition { return c.tools.Definitions() }

// Iteration returns the current iteration count.
func (c *AgentContext) Iteration() int { return c.iteration }

// IncrementIteration advances the iteration counter by one.
func (c *AgentContext) IncrementIteration() { c.iteration++ }

// ReachedMaxIterations reports whether the loop has hit its bound.
func (c *AgentContext) ReachedMaxIterations() bool { return c.iteration >= c.maxIter }

// Completed reports whether the run has a final answer or error.
func (c *AgentContext) Completed() bool { return c.completed || c.failed }

// Complete marks the run successful with the given answer text.
func (c *AgentContext) Complete(answer string) {
	c.completed = true
	c.answer = answer
	c.endedAt = time.Now()
}

// Fail marks the run failed with the given error kind/message.
func (c *AgentContext) Fail(kind ErrorKind, message string) {
	c.failed = true
	c.errMsg = message
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata["error_kind"] = string(kind)
	c.endedAt = time.Now()
}

// Answer returns the final answer text, if any.
func (c *AgentContext) Answer() string { return c.answer }

// ErrorMessage returns the failure message, if any.
func (c *AgentContext) ErrorMessage() string { return c.errMsg }

// Messages returns the live message list. Callers must not mutate the
// returned slice's backing array; use AddMessage instead.
func (c *AgentContext) Messages() []models.Message { return c.messages }

// AddMessage appends a message, then auto-invokes compaction if a
// ContextManager is configured and usage has crossed its threshold. A
// dangling tool_use (the message just appended is an assistant message
// whose content contains a tool_use block) suppresses compaction, per
// §4.2. Only the last message is checked, so compaction runs again once
// the matching tool_result message has been appended.
func (c *AgentContext) AddMessage(m models.Message) {
	c.messages = append(c.messages, m)
	if c.contextManager == nil {
		return
	}
	if c.hasDanglingToolUse() {
		return
	}
	usage := c.contextManager.UsagePercentage(c.messages, c.tools.Definitions())
	if usage >= c.contextManager.CompactThreshold() {
		c.messages = c.contextManager.CompactMessages(c.messages, c.tools.Definitions())
	}
}

// hasDanglingToolUse reports whether the last message is an assistant
// message containing a tool_use block, meaning the model is still owed a
// tool_result before any compaction may run.
func (c *AgentContext) hasDanglingToolUse() bool {
	if len(c.messages) == 0 {
		return false
	}
	last := c.messages[len(c.messages)-1]
	if last.Role != models.RoleAssistant {
		return false
	}
	return len(last.ToolUses()) > 0
}

// MessagesWithCompaction returns the message list a model call should see:
// compacted on demand if usage is over the window, but the live context's
// own message slice is left untouched unless AddMessage already compacted
// it. This lets callers fetch a safe-to-send view without forcing a
// permanent compaction when none is configured.
func (c *AgentContext) MessagesWithCompaction() []models.Message {
	if c.contextManager == nil {
		return c.messages
	}
	if !c.contextManager.FitsInContext(c.messages, c.tools.Definitions()) && !c.hasDanglingToolUse() {
		return c.contextManager.CompactMessages(c.messages, c.tools.Definitions())
	}
	return c.messages
}

// AddTokenUsage accumulates input/output token counts.
func (c *AgentContext) AddTokenUsage(input, output int) {
	c.usage.Input += input
	c.usage.Output += output
	c.usage.Total = c.usage.Input + c.usage.Output
}

// Usage returns the accumulated token usage.
func (c *AgentContext) Usage() models.TokenUsageTotal { return c.usage }

// RecordToolCall appends an entry to the tool-call log.
func (c *AgentContext) RecordToolCall(tool string, input map[string]any, resultText string, isError bool) {
	c.toolCalls = append(c.toolCalls, models.ToolCallLogEntry{
		Tool:      tool,
		Input:     input,
		Result:    resultText,
		IsError:   isError,
		Iteration: c.iteration,
		Timestamp: time.Now(),
	})
}

// ToolCalls returns the tool-call log.
func (c *AgentContext) ToolCalls() []models.ToolCallLogEntry { return c.toolCalls }

// CreateCheckpoint snapshots messages/iteration/usage/tool-calls/metadata
// under id, generating a uuid if id is empty, and returns the id used.
func (c *AgentContext) CreateCheckpoint(id string) string {
	if id == "" {
		id = uuid.NewString()
	}
	c.checkpoints[id] = checkpoint{
		messages:  append([]models.Message(nil), c.messages...),
		iteration: c.iteration,
		usage:     c.usage,
		toolCalls: append([]models.ToolCallLogEntry(nil), c.toolCalls...),
		metadata:  cloneMetadata(c.Metadata),
	}
	return id
}

// RestoreCheckpoint overwrites messages/iteration/usage/tool-calls/metadata
// from the named checkpoint. Returns ErrUnknownCheckpoint for an id that
// was never created.
func (c *AgentContext) RestoreCheckpoint(id string) error {
	cp, ok := c.checkpoints[id]
	if !ok {
		return ErrUnknownCheckpoint
	}
	c.messages = append([]models.Message(nil), cp.messages...)
	c.iteration = cp.iteration
	c.usage = cp.usage
	c.toolCalls = append([]models.ToolCallLogEntry(nil), cp.toolCalls...)
	c.Metadata = cloneMetadata(cp.metadata)
	return nil
}

func cloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Fork produces an independent context that shares the context manager and
// the Tool values themselves, while copying the mutable state (messages,
// tool set, counters, tool-call log, metadata), for speculative
// exploration that must not mutate the parent.
func (c *AgentContext) Fork() *AgentContext {
	tools := NewToolRegistry()
	tools.RegisterMany(c.tools.All()...)
	fork := &AgentContext{
		Task:           c.Task,
		tools:          tools,
		messages:       append([]models.Message(nil), c.messages...),
		iteration:      c.iteration,
		maxIter:        c.maxIter,
		usage:          c.usage,
		toolCalls:      append([]models.ToolCallLogEntry(nil), c.toolCalls...),
		Metadata:       cloneMetadata(c.Metadata),
		contextManager: c.contextManager,
		startedAt:      time.Now(),
		checkpoints:    make(map[string]checkpoint),
	}
	return fork
}

// StartedAt/EndedAt expose run timing.
func (c *AgentContext) StartedAt() time.Time { return c.startedAt }
func (c *AgentContext) EndedAt() time.Time   { return c.endedAt }

// ToResult builds the caller-facing AgentResult from the final context
// state.
func (c *AgentContext) ToResult() models.AgentResult {
	end := c.endedAt
	if end.IsZero() {
		end = time.Now()
	}
	res := models.AgentResult{
		Success:  c.completed && !c.failed,
		Messages: c.messages,
		Metadata: models.AgentResultMetadata{
			TokenUsage:    c.usage,
			ToolCalls:     c.toolCalls,
			ExecutionTime: end.Sub(c.startedAt),
			StartTime:     c.startedAt,
			EndTime:       end,
			Iterations:    c.iteration,
		},
	}
	if res.Success {
		res.Answer = c.answer
	} else {
		res.Error = c.errMsg
	}
	return res
}
