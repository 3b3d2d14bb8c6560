package agent

import "time"

// ThinkingConfig enables extended model "thinking" with a token budget.
type ThinkingConfig struct {
	Enabled     bool
	BudgetTokens int
}

// AgentConfig is the immutable per-run model configuration. Use With to
// derive a modified copy; AgentConfig itself is never mutated in place.
type AgentConfig struct {
	Model         string
	MaxIterations int
	MaxTokens     int
	Temperature   float64
	Thinking      *ThinkingConfig
	SystemPrompt  string
}

// DefaultAgentConfig returns sane defaults: 10 iterations, 4096 response
// tokens, the teacher's documented defaults for its agentic loop.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxIterations: 10,
		MaxTokens:     4096,
		Temperature:   1.0,
	}
}

// ConfigDelta carries only the fields a caller wants to override; zero
// values are left untouched by With.
type ConfigDelta struct {
	Model         *string
	MaxIterations *int
	MaxTokens     *int
	Temperature   *float64
	Thinking      *ThinkingConfig
	SystemPrompt  *string
}

// With returns a new AgentConfig with delta's non-nil fields applied over
// c. c itself is never modified.
func (c AgentConfig) With(delta ConfigDelta) AgentConfig {
	out := c
	if delta.Model != nil {
		out.Model = *delta.Model
	}
	if delta.MaxIterations != nil {
		out.MaxIterations = *delta.MaxIterations
	}
	if delta.MaxTokens != nil {
		out.MaxTokens = *delta.MaxTokens
	}
	if delta.Temperature != nil {
		out.Temperature = *delta.Temperature
	}
	if delta.Thinking != nil {
		out.Thinking = delta.Thinking
	}
	if delta.SystemPrompt != nil {
		out.SystemPrompt = *delta.SystemPrompt
	}
	return out
}

// RetryConfig is the immutable configuration for RetryHandler.
type RetryConfig struct {
	MaxAttempts int
	DelayMs     int
	MaxDelayMs  int
	Multiplier  float64
}

// DefaultRetryConfig returns sensible defaults: 3 attempts, 500ms initial
// delay, 10s cap, doubling backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		DelayMs:     500,
		MaxDelayMs:  10_000,
		Multiplier:  2.0,
	}
}

// delayFor returns the wait (pre-jitter) before the given attempt number
// (1-indexed: the wait that precedes a retry after attempt N failed).
func (c RetryConfig) delayFor(attempt int) time.Duration {
	delay := float64(c.DelayMs)
	for i := 1; i < attempt; i++ {
		delay *= c.Multiplier
		if delay > float64(c.MaxDelayMs) {
			delay = float64(c.MaxDelayMs)
			break
		}
	}
	if delay > float64(c.MaxDelayMs) {
		delay = float64(c.MaxDelayMs)
	}
	return time.Duration(delay) * time.Millisecond
}
