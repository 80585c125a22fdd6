package core

import (
	"errors"
	"fmt"
)

// Structural errors are returned synchronously by the operation that
// triggered them; they indicate misuse rather than runtime failure and are
// never retried by the engine.
var (
	// ErrDuplicateName is returned when creating an agent whose name is
	// already registered.
	ErrDuplicateName = errors.New("agent name already registered")

	// ErrUnknownAgent is returned when an operation references an agent
	// that is not present in the registry.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrUnknownRecipient is returned by the message bus when a direct
	// message names a receiver that is not registered.
	ErrUnknownRecipient = errors.New("unknown recipient")

	// ErrAgentBusy is returned when a task is submitted to an agent that is
	// already executing one.
	ErrAgentBusy = errors.New("agent is busy")

	// ErrDuplicateTool is returned when registering a tool whose name
	// collides with an existing registration.
	ErrDuplicateTool = errors.New("tool name already registered")

	// ErrUnknownTool is returned when a tool-enabled agent resolves a tool
	// name that has not been registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrEmptyTask is returned by the orchestrator when there is nothing to
	// decompose.
	ErrEmptyTask = errors.New("empty task")

	// ErrNoEligibleAgents is returned when decomposition yields no
	// sub-tasks because no suitable agents are available.
	ErrNoEligibleAgents = errors.New("no eligible agents")

	// ErrCancelled marks a task whose execution was cancelled
	// cooperatively before completion.
	ErrCancelled = errors.New("task cancelled")
)

// CapabilityError wraps any error raised by an agent's task-execution
// capability (for example a failing external model call). It is never
// surfaced to orchestrator or registry callers directly; instead it is
// captured into the TaskResult and reported through a task_failed event.
type CapabilityError struct {
	Agent string // Name of the agent whose capability failed
	Err   error  // Underlying cause
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability failure in agent %s: %v", e.Agent, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As matching.
func (e *CapabilityError) Unwrap() error { return e.Err }

// NewCapabilityError wraps err as a capability failure attributed to the
// named agent. Errors that already belong to the swarmbus taxonomy are
// returned unchanged so callers can match them with errors.Is.
func NewCapabilityError(agent string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnknownTool) || errors.Is(err, ErrCancelled) {
		return err
	}
	return &CapabilityError{Agent: agent, Err: err}
}
