package datetime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTool_NowUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	tool := New(fixedClock(fixed))

	result := tool.Execute(context.Background(), map[string]any{"operation": "now"})
	require.False(t, result.IsError)
	assert.Equal(t, fixed.Format(time.RFC3339), result.Text)
}

func TestTool_AddAppliesDuration(t *testing.T) {
	tool := New(nil)
	result := tool.Execute(context.Background(), map[string]any{
		"operation": "add",
		"timestamp": "2026-07-30T12:00:00Z",
		"duration":  "24h",
	})
	require.False(t, result.IsError)
	assert.Equal(t, "2026-07-31T12:00:00Z", result.Text)
}

func TestTool_AddRespectsTimezone(t *testing.T) {
	tool := New(nil)
	result := tool.Execute(context.Background(), map[string]any{
		"operation": "add",
		"timestamp": "2026-07-30T12:00:00Z",
		"duration":  "0h",
		"timezone":  "America/New_York",
	})
	require.False(t, result.IsError)
	assert.Contains(t, result.Text, "-04:00")
}

func TestTool_AddMissingDurationIsError(t *testing.T) {
	tool := New(nil)
	result := tool.Execute(context.Background(), map[string]any{
		"operation": "add",
		"timestamp": "2026-07-30T12:00:00Z",
	})
	assert.True(t, result.IsError)
}

func TestTool_UnknownTimezoneIsError(t *testing.T) {
	tool := New(nil)
	result := tool.Execute(context.Background(), map[string]any{
		"operation": "now",
		"timezone":  "Not/AZone",
	})
	assert.True(t, result.IsError)
}
