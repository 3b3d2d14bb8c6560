// Package datetime implements a built-in Tool exposing the current time and
// simple duration arithmetic, using only the standard library's time
// package.
package datetime

import (
	"context"
	"fmt"
	"time"

	"github.com/nexusrun/agentcore/internal/agent"
)

// Name is the tool name registered with an agent.
const Name = "datetime"

// New builds the datetime Tool. Clock is exposed for tests that need a
// deterministic "now"; production callers should pass time.Now.
func New(clock func() time.Time) agent.Tool {
	if clock == nil {
		clock = time.Now
	}
	return agent.NewFuncTool(Name,
		"Reports the current time, or adds/subtracts a duration from a given timestamp.",
		agent.InputSchema{
			Properties: map[string]any{
				"operation": map[string]any{
					"type":        "string",
					"description": "\"now\" or \"add\"",
					"enum":        []string{"now", "add"},
				},
				"timestamp": map[string]any{
					"type":        "string",
					"description": "RFC3339 timestamp, required for \"add\"",
				},
				"duration": map[string]any{
					"type":        "string",
					"description": "Go duration string, e.g. \"24h\", \"-30m\"; required for \"add\"",
				},
				"timezone": map[string]any{
					"type":        "string",
					"description": "IANA timezone name, e.g. \"America/New_York\"; defaults to UTC",
				},
			},
			Required: []string{"operation"},
		},
		handler(clock),
	)
}

func handler(clock func() time.Time) agent.Handler {
	return func(ctx context.Context, input map[string]any) (any, error) {
		op, _ := input["operation"].(string)
		loc, err := resolveLocation(input)
		if err != nil {
			return nil, err
		}

		switch op {
		case "now":
			return clock().In(loc).Format(time.RFC3339), nil
		case "add":
			ts, _ := input["timestamp"].(string)
			durStr, _ := input["duration"].(string)
			if ts == "" || durStr == "" {
				return nil, fmt.Errorf("\"add\" requires both timestamp and duration")
			}
			t, err := time.Parse(time.RFC3339, ts)
			if err != nil {
				return nil, fmt.Errorf("invalid timestamp: %w", err)
			}
			d, err := time.ParseDuration(durStr)
			if err != nil {
				return nil, fmt.Errorf("invalid duration: %w", err)
			}
			return t.In(loc).Add(d).Format(time.RFC3339), nil
		default:
			return nil, fmt.Errorf("unknown operation %q", op)
		}
	}
}

func resolveLocation(input map[string]any) (*time.Location, error) {
	tz, _ := input["timezone"].(string)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return loc, nil
}
