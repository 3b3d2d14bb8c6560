package agent

import (
	"context"
	"math/rand"
	"time"
)

// Classifier maps an error to an ErrorKind so RetryHandler knows whether to
// wait and retry. The default classifier treats anything already wrapped
// in an AgentError as authoritative and falls back to ErrorTransport
// (retriable) for unclassified errors, per KindOf.
type Classifier func(err error) ErrorKind

// RetryHandler wraps a fallible, zero-argument operation with classified
// exponential backoff, per §4.5.
type RetryHandler struct {
	cfg        RetryConfig
	classify   Classifier
	sleep      func(context.Context, time.Duration) error
	randSource func() float64
}

// NewRetryHandler builds a RetryHandler. A nil classifier defaults to
// KindOf.
func NewRetryHandler(cfg RetryConfig, classify Classifier) *RetryHandler {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultRetryConfig()
	}
	if classify == nil {
		classify = KindOf
	}
	return &RetryHandler{
		cfg:        cfg,
		classify:   classify,
		sleep:      ctxSleep,
		randSource: rand.Float64,
	}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do executes op, retrying on retriable failures until MaxAttempts is
// reached or op succeeds. Non-retriable and fatal errors propagate
// immediately without waiting. The number of invocations of op never
// exceeds MaxAttempts, and the last invocation is the successful one when
// Do returns nil.
func (h *RetryHandler) Do(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= h.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		kind := h.classify(err)
		if !kind.Retriable() {
			return err
		}
		if attempt >= h.cfg.MaxAttempts {
			break
		}

		delay := h.cfg.delayFor(attempt)
		jitter := time.Duration(h.randSource() * float64(delay) / 2)
		if err := h.sleep(ctx, delay+jitter); err != nil {
			return err
		}
	}
	return lastErr
}
