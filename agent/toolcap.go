package agent

import (
	"context"
	"fmt"

	"github.com/swarmbus-io/swarmbus/core"
	"github.com/swarmbus-io/swarmbus/tool"
)

// ToolCapability is the tool-enabled variant: it resolves the task's tool
// by name at execution time and invokes it with the task's arguments. An
// unresolved tool name fails the task (surfaced as a task_failed event by
// the agent), not the registry.
type ToolCapability struct {
	tools *tool.Registry
}

// NewToolCapability builds a capability backed by the given tool registry.
func NewToolCapability(tools *tool.Registry) *ToolCapability {
	return &ToolCapability{tools: tools}
}

// Execute implements Capability.
func (c *ToolCapability) Execute(ctx context.Context, task core.Task) (any, error) {
	if task.Tool == "" {
		return nil, fmt.Errorf("%w: task %q names no tool", core.ErrUnknownTool, task.Description)
	}
	t, err := c.tools.Get(task.Tool)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.Call(ctx, task.Args)
}
