// Package http implements a built-in Tool that issues HTTP GET requests
// against an allow-listed set of hosts, rate-limited per host and capped
// on response size.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/nexusrun/agentcore/internal/agent"
)

// Name is the tool name registered with an agent.
const Name = "http"

const defaultMaxResponseBytes = 1 << 20 // 1MB

// Config controls the sandbox an http Tool operates within.
type Config struct {
	// AllowedHosts is the set of hostnames (without scheme or port) a
	// request may target. Empty means no host is allowed (fail closed).
	AllowedHosts []string
	// AllowedSchemes defaults to {"https"} when empty.
	AllowedSchemes []string
	// MaxResponseBytes caps how much of a response body is read. Zero
	// defaults to 1MB.
	MaxResponseBytes int64
	// RequestsPerSecond and Burst configure the per-host token bucket.
	// Zero RequestsPerSecond disables throttling.
	RequestsPerSecond float64
	Burst             int
	// Client is the underlying HTTP client; defaults to http.DefaultClient.
	Client *http.Client
}

// New builds the http Tool over cfg.
func New(cfg Config) agent.Tool {
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaultMaxResponseBytes
	}
	if len(cfg.AllowedSchemes) == 0 {
		cfg.AllowedSchemes = []string{"https"}
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	limiters := newHostLimiters(cfg.RequestsPerSecond, cfg.Burst)

	return agent.NewFuncTool(Name,
		"Issues an HTTP GET request to an allow-listed host and returns the response body.",
		agent.InputSchema{
			Properties: map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The URL to fetch",
				},
			},
			Required: []string{"url"},
		},
		handler(cfg, limiters),
	)
}

// hostLimiters lazily creates one rate.Limiter per host seen.
type hostLimiters struct {
	mu    sync.Mutex
	byKey map[string]*rate.Limiter
	rps   float64
	burst int
}

func newHostLimiters(rps float64, burst int) *hostLimiters {
	return &hostLimiters{byKey: map[string]*rate.Limiter{}, rps: rps, burst: burst}
}

func (h *hostLimiters) forHost(host string) *rate.Limiter {
	if h.rps <= 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.byKey[host]
	if !ok {
		burst := h.burst
		if burst <= 0 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Limit(h.rps), burst)
		h.byKey[host] = l
	}
	return l
}

func handler(cfg Config, limiters *hostLimiters) agent.Handler {
	return func(ctx context.Context, input map[string]any) (any, error) {
		raw, _ := input["url"].(string)
		parsed, err := validateURL(raw, cfg)
		if err != nil {
			return nil, err
		}

		if l := limiters.forHost(parsed.Hostname()); l != nil {
			if err := l.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := cfg.Client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, cfg.MaxResponseBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if int64(len(body)) > cfg.MaxResponseBytes {
			return nil, fmt.Errorf("response exceeds max size of %d bytes", cfg.MaxResponseBytes)
		}

		return fmt.Sprintf("HTTP %d\n%s", resp.StatusCode, string(body)), nil
	}
}

func validateURL(raw string, cfg Config) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("url must not be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if !schemeAllowed(parsed.Scheme, cfg.AllowedSchemes) {
		return nil, fmt.Errorf("scheme %q is not allowed", parsed.Scheme)
	}
	if !hostAllowed(parsed.Hostname(), cfg.AllowedHosts) {
		return nil, fmt.Errorf("host %q is not in the allowed list", parsed.Hostname())
	}
	return parsed, nil
}

func schemeAllowed(scheme string, allowed []string) bool {
	for _, s := range allowed {
		if strings.EqualFold(s, scheme) {
			return true
		}
	}
	return false
}

func hostAllowed(host string, allowed []string) bool {
	for _, h := range allowed {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}
