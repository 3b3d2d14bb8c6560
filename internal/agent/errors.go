package agent

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for retry and reporting purposes. It is a
// closed taxonomy, not an open error type hierarchy.
type ErrorKind string

const (
	// ErrorConfiguration covers missing required fields or invalid schemas.
	ErrorConfiguration ErrorKind = "configuration"
	// ErrorValidation covers bad tool input or an unknown tool name.
	ErrorValidation ErrorKind = "validation"
	// ErrorTransport covers network failures, timeouts, and 5xx responses.
	ErrorTransport ErrorKind = "transport"
	// ErrorRateLimit covers HTTP 429 responses.
	ErrorRateLimit ErrorKind = "rate_limit"
	// ErrorAuth covers HTTP 401/403 responses.
	ErrorAuth ErrorKind = "auth"
	// ErrorModelProtocol covers a malformed response or unexpected stop reason.
	ErrorModelProtocol ErrorKind = "model_protocol"
	// ErrorTool covers a tool handler that returned or threw an error.
	ErrorTool ErrorKind = "tool"
	// ErrorBudget covers exhausting max iterations or a token budget.
	ErrorBudget ErrorKind = "budget"
	// ErrorCancelled covers a run stopped by context cancellation.
	ErrorCancelled ErrorKind = "cancelled"
)

// Retriable reports whether RetryHandler should wait and retry an error of
// this kind. Only Transport and RateLimit are retriable; everything else
// propagates immediately.
func (k ErrorKind) Retriable() bool {
	switch k {
	case ErrorTransport, ErrorRateLimit:
		return true
	default:
		return false
	}
}

// AgentError is the structured error carried through the loop. The short
// Message is safe to show a user; Cause carries the technical detail for
// operators.
type AgentError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *AgentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AgentError) Unwrap() error { return e.Cause }

// NewError builds an AgentError of the given kind.
func NewError(kind ErrorKind, message string, cause error) *AgentError {
	return &AgentError{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the ErrorKind from err if it is (or wraps) an AgentError,
// defaulting to ErrorTransport for unclassified errors so an unexpected
// failure is retried rather than silently swallowed.
func KindOf(err error) ErrorKind {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ErrorTransport
}

// Sentinel errors for conditions that don't need a message or cause.
var (
	// ErrUnknownCheckpoint is returned by AgentContext.RestoreCheckpoint for
	// an id that was never created.
	ErrUnknownCheckpoint = errors.New("unknown checkpoint id")
	// ErrNoTask is returned when Agent.Run is called with an empty task.
	ErrNoTask = errors.New("task must not be empty")
)
