package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/nexusrun/agentcore/pkg/models"
)

// ErrorCallback is invoked when Run fails before returning its result.
type ErrorCallback func(err error)

// Agent is a builder that wires a Provider, tool set, config, and optional
// collaborators (memory, context manager, retry, callbacks, logger, loop
// strategy) into a runnable unit (§4.6).
type Agent struct {
	name     string
	provider Provider
	tools    *ToolRegistry
	config   AgentConfig
	retry    *RetryHandler
	ctxMgr   *ContextManager
	logger   *slog.Logger
	loop     LoopStrategy

	onIteration IterationCallback
	onTool      ToolExecutionCallback
	onError     ErrorCallback

	paused    bool
	pausedCtx *AgentContext
}

// NewAgent builds an Agent with the given provider and config. Defaults:
// an empty tool registry, the default ReactLoop, no retry handler, and
// slog.Default() as the logger — matching the teacher's
// DefaultLoopConfig/DefaultRuntimeOptions convention of "safe to use with
// zero extra setup."
func NewAgent(provider Provider, config AgentConfig) *Agent {
	return &Agent{
		provider: provider,
		tools:    NewToolRegistry(),
		config:   config,
		logger:   slog.Default(),
		loop:     NewReactLoop(),
	}
}

// WithName sets a human-readable name for logging.
func (a *Agent) WithName(name string) *Agent { a.name = name; return a }

// WithTools registers additional tools.
func (a *Agent) WithTools(tools ...Tool) *Agent { a.tools.RegisterMany(tools...); return a }

// WithToolRegistry replaces the tool registry outright.
func (a *Agent) WithToolRegistry(r *ToolRegistry) *Agent { a.tools = r; return a }

// WithContextManager enables compaction.
func (a *Agent) WithContextManager(cm *ContextManager) *Agent { a.ctxMgr = cm; return a }

// WithRetry enables retrying the loop's model calls on transient failures.
func (a *Agent) WithRetry(r *RetryHandler) *Agent { a.retry = r; return a }

// WithLogger overrides the default logger.
func (a *Agent) WithLogger(l *slog.Logger) *Agent {
	if l != nil {
		a.logger = l
	}
	return a
}

// WithLoopStrategy overrides the default ReactLoop.
func (a *Agent) WithLoopStrategy(l LoopStrategy) *Agent { a.loop = l; return a }

// OnIteration registers a per-iteration callback.
func (a *Agent) OnIteration(fn IterationCallback) *Agent { a.onIteration = fn; return a }

// OnToolExecution registers a per-tool-call callback.
func (a *Agent) OnToolExecution(fn ToolExecutionCallback) *Agent { a.onTool = fn; return a }

// OnError registers a callback invoked on unhandled run failure.
func (a *Agent) OnError(fn ErrorCallback) *Agent { a.onError = fn; return a }

// Pause requests that the running loop break out at the top of its next
// iteration, per §4.6. Safe to call from inside a callback.
func (a *Agent) Pause() { a.paused = true }

func (a *Agent) isPaused() bool { return a.paused }

// Run constructs a fresh AgentContext, wires callbacks into the loop
// strategy, and drives it to completion (optionally through the retry
// handler), returning the result. Run never returns a Go error for a
// failed run — failures are reported through the AgentResult, per §4.6
// ("on unhandled error the facade invokes the error callback and returns
// an AgentResult.Failure").
func (a *Agent) Run(ctx context.Context, task string) models.AgentResult {
	if task == "" {
		a.reportError(ErrNoTask)
		return failureResult(ErrNoTask)
	}

	actx := NewAgentContext(task, a.tools, a.config.MaxIterations, a.ctxMgr)
	actx.AddMessage(models.Message{Role: models.RoleUser, Content: models.TextContent(task)})

	a.logger.Info("run started", "agent", a.name, "max_iterations", a.config.MaxIterations)

	if cs, ok := a.loop.(CallbackSetter); ok {
		cs.SetCallbacks(a.loggingIteration(), a.loggingTool())
	}
	if rl, ok := a.loop.(*ReactLoop); ok {
		a.paused = false
		rl.SetPauseCheck(a.isPaused)
	}

	op := func() error { return a.loop.Execute(ctx, actx, a.provider, a.config) }

	var err error
	if a.retry != nil {
		err = a.retry.Do(ctx, op)
	} else {
		err = op()
	}

	if err != nil {
		a.reportError(err)
		return failureResult(err)
	}

	if a.paused {
		a.pausedCtx = actx
	}
	result := actx.ToResult()
	a.logger.Info("run finished", "agent", a.name, "iteration", actx.Iteration(), "success", result.Success)
	return result
}

// loggingIteration wraps the facade's onIteration callback (if any) with a
// structured log line per iteration, per §2's "With(...) fields (agent,
// iteration, tool) at call sites."
func (a *Agent) loggingIteration() IterationCallback {
	return func(actx *AgentContext, resp models.CompletionResponse) {
		a.logger.Debug("iteration complete",
			"agent", a.name,
			"iteration", actx.Iteration(),
			"stop_reason", resp.StopReason,
		)
		if a.onIteration != nil {
			a.onIteration(actx, resp)
		}
	}
}

// loggingTool wraps the facade's onTool callback (if any) with a
// structured log line per tool call.
func (a *Agent) loggingTool() ToolExecutionCallback {
	return func(toolName string, input map[string]any, result ToolResult) {
		a.logger.Debug("tool executed",
			"agent", a.name,
			"tool", toolName,
			"is_error", result.IsError,
		)
		if a.onTool != nil {
			a.onTool(toolName, input, result)
		}
	}
}

// Resume re-enters the loop with the context saved by the last paused Run,
// clearing the pause flag first.
func (a *Agent) Resume(ctx context.Context) models.AgentResult {
	if a.pausedCtx == nil {
		return failureResult(NewError(ErrorConfiguration, "no paused run to resume", nil))
	}
	actx := a.pausedCtx
	a.pausedCtx = nil
	a.paused = false

	a.logger.Info("run resumed", "agent", a.name, "iteration", actx.Iteration())

	if cs, ok := a.loop.(CallbackSetter); ok {
		cs.SetCallbacks(a.loggingIteration(), a.loggingTool())
	}
	if rl, ok := a.loop.(*ReactLoop); ok {
		rl.SetPauseCheck(a.isPaused)
	}

	if err := a.loop.Execute(ctx, actx, a.provider, a.config); err != nil {
		a.reportError(err)
		return failureResult(err)
	}
	if a.paused {
		a.pausedCtx = actx
	}
	return actx.ToResult()
}

func (a *Agent) reportError(err error) {
	a.logger.Error("run failed", "agent", a.name, "error", err)
	if a.onError != nil {
		a.onError(err)
	}
}

func failureResult(err error) models.AgentResult {
	return models.AgentResult{
		Success: false,
		Error:   err.Error(),
		Metadata: models.AgentResultMetadata{
			StartTime: time.Now(),
			EndTime:   time.Now(),
		},
	}
}

// PersistedState is the pause/resume/save-state wire layout from §6: enough
// to reconstruct the conversation, not the live client handle or tool
// closures.
type PersistedState struct {
	Name      string           `json:"name"`
	Context   PersistedContext `json:"context"`
	Config    PersistedConfig  `json:"config"`
	Timestamp time.Time        `json:"timestamp"`
}

// PersistedContext mirrors AgentContext's transferable fields.
type PersistedContext struct {
	Task       string                     `json:"task"`
	Messages   []models.Message           `json:"messages"`
	Iteration  int                        `json:"iteration"`
	Completed  bool                       `json:"completed"`
	Answer     string                     `json:"answer,omitempty"`
	Error      string                     `json:"error,omitempty"`
	ToolCalls  []models.ToolCallLogEntry  `json:"tool_calls"`
	TokenUsage models.TokenUsageTotal     `json:"token_usage"`
	Metadata   map[string]any             `json:"metadata"`
	StartTime  time.Time                  `json:"start_time"`
	EndTime    time.Time                  `json:"end_time"`
}

// PersistedConfig mirrors the config fields worth round-tripping.
type PersistedConfig struct {
	Model         string  `json:"model"`
	MaxIterations int     `json:"max_iterations"`
	MaxTokens     int     `json:"max_tokens"`
	Temperature   float64 `json:"temperature"`
}

// SaveState serializes the current (paused) context into PersistedState.
// Returns false if there is nothing paused to save.
func (a *Agent) SaveState() (PersistedState, bool) {
	if a.pausedCtx == nil {
		return PersistedState{}, false
	}
	c := a.pausedCtx
	return PersistedState{
		Name: a.name,
		Context: PersistedContext{
			Task:       c.Task,
			Messages:   c.messages,
			Iteration:  c.iteration,
			Completed:  c.completed,
			Answer:     c.answer,
			Error:      c.errMsg,
			ToolCalls:  c.toolCalls,
			TokenUsage: c.usage,
			Metadata:   c.Metadata,
			StartTime:  c.startedAt,
			EndTime:    c.endedAt,
		},
		Config: PersistedConfig{
			Model:         a.config.Model,
			MaxIterations: a.config.MaxIterations,
			MaxTokens:     a.config.MaxTokens,
			Temperature:   a.config.Temperature,
		},
		Timestamp: time.Now(),
	}, true
}

// RestoreState rebuilds a context from previously saved state and arms it
// for Resume. The tool registry and provider must already be configured on
// the Agent — they are not part of the persisted state.
func (a *Agent) RestoreState(s PersistedState) {
	a.name = s.Name
	a.config.Model = s.Config.Model
	a.config.MaxIterations = s.Config.MaxIterations
	a.config.MaxTokens = s.Config.MaxTokens
	a.config.Temperature = s.Config.Temperature

	actx := NewAgentContext(s.Context.Task, a.tools, a.config.MaxIterations, a.ctxMgr)
	actx.messages = append([]models.Message(nil), s.Context.Messages...)
	actx.iteration = s.Context.Iteration
	actx.completed = s.Context.Completed
	actx.answer = s.Context.Answer
	actx.errMsg = s.Context.Error
	actx.toolCalls = append([]models.ToolCallLogEntry(nil), s.Context.ToolCalls...)
	actx.usage = s.Context.TokenUsage
	actx.Metadata = cloneMetadata(s.Context.Metadata)
	actx.startedAt = s.Context.StartTime
	actx.endedAt = s.Context.EndTime

	a.pausedCtx = actx
	a.paused = true
}
