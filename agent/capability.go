package agent

import (
	"context"
	"fmt"

	"github.com/swarmbus-io/swarmbus/core"
)

// Type discriminates the closed set of agent capability variants. The
// registry selects the variant at construction time, avoiding runtime type
// inspection.
type Type string

const (
	// TypeBasic is a plain agent that echoes its task description.
	TypeBasic Type = "basic"
	// TypeTool is a tool-enabled agent resolving a named tool per task.
	TypeTool Type = "tool"
	// TypeModel is a model-backed agent delegating to a model.Model.
	TypeModel Type = "model"
	// TypeAdapter wraps an externally supplied function as a capability.
	TypeAdapter Type = "adapter"
)

// Capability is the task-execution behavior specific to an agent variant.
// Implementations must poll ctx at natural suspension boundaries (before or
// after any sub-step or external call); cancellation is cooperative.
type Capability interface {
	Execute(ctx context.Context, task core.Task) (any, error)
}

// Func adapts a plain function into a Capability. This is the adapter
// variant: external collaborators satisfy the contract "given a task,
// return a result or a failure" without depending on agent internals.
type Func func(ctx context.Context, task core.Task) (any, error)

// Execute implements Capability.
func (f Func) Execute(ctx context.Context, task core.Task) (any, error) { return f(ctx, task) }

// EchoCapability is the basic variant: it acknowledges the task with a
// formatted echo of its description. Useful as a stand-in worker and in
// tests.
type EchoCapability struct{}

// Execute implements Capability.
func (EchoCapability) Execute(ctx context.Context, task core.Task) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fmt.Sprintf("processed task: %s", task.Description), nil
}
