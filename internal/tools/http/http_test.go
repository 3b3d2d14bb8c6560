package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServerAndConfig(t *testing.T, handler http.HandlerFunc) (Config, *url.URL) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	return Config{
		AllowedHosts:   []string{u.Hostname()},
		AllowedSchemes: []string{"http"},
		Client:         server.Client(),
	}, u
}

func TestTool_FetchAllowedHostSucceeds(t *testing.T) {
	cfg, u := newServerAndConfig(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	})
	tool := New(cfg)

	result := tool.Execute(context.Background(), map[string]any{"url": u.String()})
	require.False(t, result.IsError, result.Text)
	assert.Contains(t, result.Text, "hello")
	assert.Contains(t, result.Text, "HTTP 200")
}

func TestTool_DisallowedHostIsRejected(t *testing.T) {
	cfg, _ := newServerAndConfig(t, func(w http.ResponseWriter, r *http.Request) {})
	cfg.AllowedHosts = []string{"someother.invalid"}
	tool := New(cfg)

	result := tool.Execute(context.Background(), map[string]any{"url": "http://example.com"})
	assert.True(t, result.IsError)
}

func TestTool_ResponseExceedingMaxSizeIsRejected(t *testing.T) {
	cfg, u := newServerAndConfig(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 100))
	})
	cfg.MaxResponseBytes = 10
	tool := New(cfg)

	result := tool.Execute(context.Background(), map[string]any{"url": u.String()})
	assert.True(t, result.IsError)
}

func TestTool_DisallowedSchemeIsRejected(t *testing.T) {
	cfg, u := newServerAndConfig(t, func(w http.ResponseWriter, r *http.Request) {})
	cfg.AllowedSchemes = nil // defaults to {"https"} only; test server is http
	tool := New(cfg)

	result := tool.Execute(context.Background(), map[string]any{"url": u.String()})
	assert.True(t, result.IsError)
}

func TestTool_EmptyURLIsRejected(t *testing.T) {
	cfg, _ := newServerAndConfig(t, func(w http.ResponseWriter, r *http.Request) {})
	tool := New(cfg)

	result := tool.Execute(context.Background(), map[string]any{"url": ""})
	assert.True(t, result.IsError)
}
