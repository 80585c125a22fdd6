// Package tool implements the capability extension consumed by tool-enabled
// agents: named, describable functions with a declared parameter schema,
// registered in a read-mostly registry and resolved by name at task
// execution time.
package tool

import (
	"context"
	"fmt"
)

// Tool defines the interface for extending agent capabilities with external
// functions.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions (names are the
//     discovery key; snake_case recommended)
//   - Describe their arguments through Parameters as a minimal JSON-Schema
//     shaped map
//   - Be safe for concurrent use; the registry performs lookups without
//     serializing callers
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description used for capability
	// discovery.
	Description() string

	// Parameters returns a JSON-Schema shaped description of the expected
	// arguments.
	Parameters() map[string]any

	// Call executes the tool with named arguments. Implementations must
	// respect ctx cancellation for long-running work.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Message string `json:"message"` // Error message
	Code    string `json:"code"`    // Error code for categorization
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
