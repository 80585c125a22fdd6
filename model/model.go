package model

import "context"

// Message is a single conversational turn handed to a provider.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request captures the normalized model input produced by a model-backed
// agent's capability.
type Request struct {
	Instruction string    `json:"instruction"` // System-level guidance for the model
	Messages    []Message `json:"messages"`    // Conversation, oldest first
	MaxTokens   int64     `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Response is a completed, non-streaming model answer.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// Model is the provider contract consumed by model-backed agents.
// Implementations must respect ctx cancellation; the engine relies on it
// for cooperative task cancellation.
type Model interface {
	// Complete returns the model's answer to the request.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name identifies the underlying model (for logging and results).
	Name() string
}

// Func adapts a plain function into a Model. Useful for tests and for
// wrapping bespoke providers.
type Func func(ctx context.Context, req Request) (*Response, error)

// Complete implements Model.
func (f Func) Complete(ctx context.Context, req Request) (*Response, error) { return f(ctx, req) }

// Name implements Model.
func (f Func) Name() string { return "func" }
