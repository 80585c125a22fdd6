package tool

import "context"

// FunctionTool is a generic adapter that exposes a plain Go function as a
// swarmbus tool.
//
// A FunctionTool has no internal mutable state after construction and is
// safe for concurrent use by multiple goroutines. The parameters map should
// follow a minimal JSON-Schema shape (type, properties, required); argument
// validation beyond presence is left to the wrapped function, which should
// return a *ToolError for structured failures.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schema and
// function.
//
// Example:
//
//	wordCount := NewFunctionTool(
//	  "word_count",
//	  "Count the words in a text",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "text": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"text"},
//	  },
//	  func(_ context.Context, args map[string]any) (any, error) {
//	    return len(strings.Fields(args["text"].(string))), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// Name returns the unique tool name used for resolution at execution time.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description of the tool.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON-Schema shaped argument description.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call invokes the wrapped function.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	return t.fn(ctx, args)
}
