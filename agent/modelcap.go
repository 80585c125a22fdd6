package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/swarmbus-io/swarmbus/core"
	"github.com/swarmbus-io/swarmbus/model"
)

// historyWindow bounds the conversation turns replayed to the provider on
// each call.
const historyWindow = 20

// ModelCapability is the model-backed variant: it delegates task execution
// to an injected model.Model, carrying a bounded conversation history
// across tasks so follow-up instructions keep their context.
type ModelCapability struct {
	model       model.Model
	instruction string

	mu      sync.Mutex
	history []model.Message
}

// NewModelCapability builds a capability delegating to m. instruction is
// the system-level guidance sent with every request.
func NewModelCapability(m model.Model, instruction string) *ModelCapability {
	return &ModelCapability{model: m, instruction: instruction}
}

// Execute implements Capability. The prompt is the task description; when
// the task carries the output of a prior orchestration step it is included
// as context.
func (c *ModelCapability) Execute(ctx context.Context, task core.Task) (any, error) {
	prompt := task.Description
	if task.Input != nil {
		prompt = fmt.Sprintf("%s\n\nResult of the previous step:\n%v", task.Description, task.Input)
	}

	c.mu.Lock()
	messages := make([]model.Message, len(c.history), len(c.history)+1)
	copy(messages, c.history)
	c.mu.Unlock()
	messages = append(messages, model.Message{Role: "user", Content: prompt})

	resp, err := c.model.Complete(ctx, model.Request{
		Instruction: c.instruction,
		Messages:    messages,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.history = append(c.history,
		model.Message{Role: "user", Content: prompt},
		model.Message{Role: "assistant", Content: resp.Content},
	)
	if len(c.history) > historyWindow {
		c.history = c.history[len(c.history)-historyWindow:]
	}
	c.mu.Unlock()

	return resp.Content, nil
}

// ClearHistory drops the accumulated conversation.
func (c *ModelCapability) ClearHistory() {
	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()
}
