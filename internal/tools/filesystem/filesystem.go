// Package filesystem implements a built-in Tool that reads and writes files
// under a configured sandbox of allowed paths.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nexusrun/agentcore/internal/agent"
)

// Name is the tool name registered with an agent.
const Name = "filesystem"

const defaultMaxFileSize = 10 * 1024 * 1024 // 10MB

// Config controls the sandbox a filesystem Tool operates within.
type Config struct {
	// AllowedPaths is the set of directories reads/writes are confined to.
	// A path outside all of these (after resolving ".." and symlinks) is
	// rejected.
	AllowedPaths []string
	// MaxFileSize caps how many bytes a single read/write may touch.
	// Zero defaults to 10MB.
	MaxFileSize int64
	// ReadOnly disables the "write" operation entirely.
	ReadOnly bool
}

// New builds the filesystem Tool over cfg.
func New(cfg Config) agent.Tool {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	return agent.NewFuncTool(Name,
		"Reads or writes a file within an allow-listed set of directories.",
		agent.InputSchema{
			Properties: map[string]any{
				"operation": map[string]any{
					"type": "string",
					"enum": []string{"read", "write", "list"},
				},
				"path": map[string]any{
					"type":        "string",
					"description": "Path to read, write, or list",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Content to write; required for \"write\"",
				},
			},
			Required: []string{"operation", "path"},
		},
		handler(cfg),
	)
}

func handler(cfg Config) agent.Handler {
	return func(ctx context.Context, input map[string]any) (any, error) {
		op, _ := input["operation"].(string)
		path, _ := input["path"].(string)

		resolved, err := resolveInSandbox(cfg.AllowedPaths, path)
		if err != nil {
			return nil, err
		}

		switch op {
		case "read":
			return readFile(resolved, cfg.MaxFileSize)
		case "write":
			if cfg.ReadOnly {
				return nil, fmt.Errorf("filesystem tool is read-only")
			}
			content, _ := input["content"].(string)
			return writeFile(resolved, content, cfg.MaxFileSize)
		case "list":
			return listDir(resolved)
		default:
			return nil, fmt.Errorf("unknown operation %q", op)
		}
	}
}

// resolveInSandbox cleans path and verifies it falls within one of
// allowedPaths, returning the absolute path to operate on.
func resolveInSandbox(allowedPaths []string, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	if len(allowedPaths) == 0 {
		return "", fmt.Errorf("no allowed paths configured")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	cleaned := resolveSymlinks(filepath.Clean(abs))

	for _, allowed := range allowedPaths {
		absAllowed, err := filepath.Abs(allowed)
		if err != nil {
			continue
		}
		absAllowed = resolveSymlinks(filepath.Clean(absAllowed))
		if cleaned == absAllowed || strings.HasPrefix(cleaned, absAllowed+string(filepath.Separator)) {
			return cleaned, nil
		}
	}
	return "", fmt.Errorf("path %q escapes the allowed directories", path)
}

// resolveSymlinks evaluates symlinks in the longest existing prefix of p,
// so a path whose last elements do not exist yet still resolves through
// any linked parent directory.
func resolveSymlinks(p string) string {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r
	}
	parent := filepath.Dir(p)
	if parent == p {
		return p
	}
	return filepath.Join(resolveSymlinks(parent), filepath.Base(p))
}

func readFile(path string, maxSize int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > maxSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), maxSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(content), nil
}

func writeFile(path, content string, maxSize int64) (string, error) {
	if int64(len(content)) > maxSize {
		return "", fmt.Errorf("content too large: %d bytes (max %d)", len(content), maxSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
}

func listDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}
