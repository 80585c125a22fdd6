package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// NewCurrentTimeTool reports the current time in RFC 3339 format,
// optionally in a named IANA location.
func NewCurrentTimeTool() *FunctionTool {
	return NewFunctionTool(
		"current_time",
		"Get the current time, optionally in a specific IANA timezone",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{"type": "string"},
			},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			now := time.Now()
			if tz, ok := args["timezone"].(string); ok && tz != "" {
				loc, err := time.LoadLocation(tz)
				if err != nil {
					return nil, NewToolError("current_time", fmt.Sprintf("unknown timezone %q", tz), "INVALID_ARGUMENT")
				}
				now = now.In(loc)
			}
			return now.Format(time.RFC3339), nil
		},
	)
}

// NewWordCountTool counts whitespace-separated words in a text argument.
func NewWordCountTool() *FunctionTool {
	return NewFunctionTool(
		"word_count",
		"Count the words in a text",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			text, ok := args["text"].(string)
			if !ok {
				return nil, NewToolError("word_count", "argument 'text' must be a string", "INVALID_ARGUMENT")
			}
			return len(strings.Fields(text)), nil
		},
	)
}

// NewReadFileTool reads a file relative to root. Paths escaping root are
// rejected so tool-enabled agents stay confined to their workspace.
func NewReadFileTool(root string) *FunctionTool {
	return NewFunctionTool(
		"read_file",
		"Read the contents of a file inside the agent workspace",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string"},
			},
			"required": []string{"path"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			rel, ok := args["path"].(string)
			if !ok {
				return nil, NewToolError("read_file", "argument 'path' must be a string", "INVALID_ARGUMENT")
			}
			full := filepath.Join(root, filepath.Clean("/"+rel))
			if !strings.HasPrefix(full, filepath.Clean(root)+string(os.PathSeparator)) && full != filepath.Clean(root) {
				return nil, NewToolError("read_file", "path escapes workspace root", "INVALID_ARGUMENT")
			}
			data, err := os.ReadFile(full)
			if err != nil {
				return nil, NewToolError("read_file", err.Error(), "EXECUTION_ERROR")
			}
			return string(data), nil
		},
	)
}
