package agent

import (
	"context"
	"fmt"

	"github.com/nexusrun/agentcore/pkg/models"
)

// IterationCallback is invoked once per loop iteration after the model
// response has been appended to the context's message list.
type IterationCallback func(ctx *AgentContext, resp models.CompletionResponse)

// ToolExecutionCallback is invoked once per tool call, after the handler
// has run but before the loop continues.
type ToolExecutionCallback func(toolName string, input map[string]any, result ToolResult)

// LoopStrategy drives a run to completion. Agent wires Provider/config and
// the optional callbacks into whichever strategy it's given, then calls
// Execute.
type LoopStrategy interface {
	Execute(ctx context.Context, actx *AgentContext, provider Provider, cfg AgentConfig) error
}

// CallbackSetter is implemented by loop strategies that accept the
// Agent facade's iteration/tool-execution hooks (§4.6, §4.3 design note:
// "prefer a small interface over a generic event bus").
type CallbackSetter interface {
	SetCallbacks(onIteration IterationCallback, onTool ToolExecutionCallback)
}

// ReactLoop is the default LoopStrategy: call model, dispatch any
// requested tools, repeat until the model stops asking for tools or the
// iteration bound is reached (§4.3).
type ReactLoop struct {
	onIteration IterationCallback
	onTool      ToolExecutionCallback

	// pauseCheck, if set, is polled at the top of every iteration; when it
	// returns true the loop breaks out without completing or failing,
	// leaving actx in a resumable state (§4.6 pause/resume).
	pauseCheck func() bool
}

// NewReactLoop builds the default loop strategy.
func NewReactLoop() *ReactLoop { return &ReactLoop{} }

// SetCallbacks implements CallbackSetter.
func (l *ReactLoop) SetCallbacks(onIteration IterationCallback, onTool ToolExecutionCallback) {
	l.onIteration = onIteration
	l.onTool = onTool
}

// SetPauseCheck wires a pause predicate; used by the Agent facade.
func (l *ReactLoop) SetPauseCheck(fn func() bool) { l.pauseCheck = fn }

// Execute runs the canonical tool-using loop described in §4.3.
func (l *ReactLoop) Execute(ctx context.Context, actx *AgentContext, provider Provider, cfg AgentConfig) error {
	for {
		if actx.Completed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return NewError(ErrorCancelled, "run cancelled", err)
		}
		if actx.ReachedMaxIterations() {
			actx.Fail(ErrorBudget, "max iterations reached")
			return nil
		}
		if l.pauseCheck != nil && l.pauseCheck() {
			return nil
		}

		resp, err := provider.Complete(ctx, CompletionRequest{
			Model:       cfg.Model,
			System:      cfg.SystemPrompt,
			Tools:       actx.ToolDefinitions(),
			Messages:    actx.MessagesWithCompaction(),
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Thinking:    cfg.Thinking,
		})
		if err != nil {
			return err
		}

		actx.AddTokenUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)
		actx.AddMessage(models.Message{Role: models.RoleAssistant, Content: resp.Content})

		if l.onIteration != nil {
			l.onIteration(actx, resp)
		}

		if resp.StopReason != models.StopToolUse {
			actx.Complete(textOf(resp.Content))
			return nil
		}

		if err := l.willExceedIterations(actx); err != nil {
			actx.IncrementIteration()
			actx.Complete(fmt.Sprintf("Stopping: %v", err))
			return nil
		}

		toolResults := make(models.BlockContent, 0, len(resp.Content))
		for _, block := range resp.Content {
			tu, ok := block.(models.ToolUseBlock)
			if !ok {
				continue
			}
			result := l.dispatch(ctx, actx, tu)
			toolResults = append(toolResults, models.ToolResultBlock{
				ToolUseID: tu.ID,
				Content:   result.Text,
				IsError:   result.IsError,
			})
		}

		actx.AddMessage(models.Message{Role: models.RoleUser, Content: toolResults})
		actx.IncrementIteration()
	}
}

// willExceedIterations reports (as an error, for message formatting
// convenience) whether incrementing the iteration counter now would bring
// the run to its bound; if so the loop must stop with a terminal
// message rather than emit another tool round, per §4.3's termination
// ordering.
func (l *ReactLoop) willExceedIterations(actx *AgentContext) error {
	if actx.iteration+1 >= actx.maxIter {
		return fmt.Errorf("reached the %d-iteration limit before the task finished", actx.maxIter)
	}
	return nil
}

func (l *ReactLoop) dispatch(ctx context.Context, actx *AgentContext, tu models.ToolUseBlock) ToolResult {
	var result ToolResult
	if tool, ok := actx.GetTool(tu.Name); ok {
		result = tool.Execute(ctx, tu.Input)
	} else {
		result = Error("Unknown tool: " + tu.Name)
	}
	actx.RecordToolCall(tu.Name, tu.Input, result.Text, result.IsError)
	if l.onTool != nil {
		l.onTool(tu.Name, tu.Input, result)
	}
	return result
}

func textOf(content models.BlockContent) string {
	out := ""
	for _, b := range content {
		if tb, ok := b.(models.TextBlock); ok {
			out += tb.Text
		}
	}
	return out
}
