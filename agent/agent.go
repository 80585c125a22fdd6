package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/swarmbus-io/swarmbus/bus"
	"github.com/swarmbus-io/swarmbus/core"
	"github.com/swarmbus-io/swarmbus/logging"
	"github.com/swarmbus-io/swarmbus/memory"
)

// State is an agent's lifecycle state. Valid transitions:
//
//	idle → working → idle   (success)
//	idle → working → error  (failure)
//	error → working         (next task submission clears the error)
//
// A cancelled task returns the agent to idle.
type State string

const (
	StateIdle    State = "idle"
	StateWorking State = "working"
	StateError   State = "error"
)

// Options configure optional agent collaborators.
type Options struct {
	Description string
	Logger      logging.Logger
	MemoryLimit int
}

// Agent is an addressable unit with identity, state, and a task-execution
// capability. It holds a non-owning reference to the message bus for
// sending; the bus owns its inbox. All exported methods are goroutine-safe.
type Agent struct {
	name        string
	role        string
	description string
	agentType   Type

	mu    sync.Mutex
	state State

	capability Capability
	bus        *bus.MessageBus
	events     *core.Publisher
	memory     *memory.Store
	logger     logging.Logger
}

// New constructs an agent. Name and role are required; the capability
// defines what executing a task means for this agent. Construction does not
// register the agent anywhere; the registry owns that step.
func New(name, role string, agentType Type, capability Capability, b *bus.MessageBus, events *core.Publisher, optFns ...func(o *Options)) *Agent {
	opts := Options{Description: fmt.Sprintf("Agent %s", name)}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Agent{
		name:        name,
		role:        role,
		description: opts.Description,
		agentType:   agentType,
		state:       StateIdle,
		capability:  capability,
		bus:         b,
		events:      events,
		memory:      memory.NewStore(opts.MemoryLimit),
		logger:      logging.OrNoOp(opts.Logger),
	}
}

// Name returns the agent's unique, immutable name.
func (a *Agent) Name() string { return a.name }

// Role returns the agent's free-text role classification.
func (a *Agent) Role() string { return a.role }

// Description returns the agent's description.
func (a *Agent) Description() string { return a.description }

// Type returns the capability variant selected at construction.
func (a *Agent) Type() Type { return a.agentType }

// State returns the agent's current lifecycle state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Memory returns the agent's memory store.
func (a *Agent) Memory() *memory.Store { return a.memory }

// ExecuteTask runs the task to completion through the agent's capability.
//
// It transitions the agent to working and publishes task_started, then
// either publishes task_completed and returns to idle, or publishes
// task_failed and enters the error state (idle for a cancelled task). All
// capability failures, including panics, are converted into the failure
// result; the only synchronous error is ErrAgentBusy when a task is already
// running.
func (a *Agent) ExecuteTask(ctx context.Context, task core.Task) (core.TaskResult, error) {
	a.mu.Lock()
	if a.state == StateWorking {
		a.mu.Unlock()
		return core.TaskResult{}, fmt.Errorf("%w: %s", core.ErrAgentBusy, a.name)
	}
	// A new submission clears a previous error state.
	a.state = StateWorking
	a.mu.Unlock()

	if task.ID == "" {
		task.ID = core.NewID()
	}
	if task.Agent == "" {
		task.Agent = a.name
	}

	a.events.Publish(core.NewEvent(core.EventTaskStarted, map[string]any{
		"agent":   a.name,
		"task":    task.Description,
		"task_id": task.ID,
	}))
	a.logger.Debug("agent.task.start", "agent", a.name, "task_id", task.ID)

	started := time.Now().UTC()
	output, err := a.runCapability(ctx, task)
	completed := time.Now().UTC()

	result := core.TaskResult{
		TaskID:      task.ID,
		Agent:       a.name,
		StartedAt:   started,
		CompletedAt: completed,
	}

	if err != nil {
		cancelled := errors.Is(err, core.ErrCancelled) ||
			errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded)
		if cancelled {
			err = fmt.Errorf("%w: %s", core.ErrCancelled, task.Description)
		} else {
			err = core.NewCapabilityError(a.name, err)
		}

		a.mu.Lock()
		if cancelled {
			a.state = StateIdle
		} else {
			a.state = StateError
		}
		a.mu.Unlock()

		result.Status = core.TaskFailed
		result.Error = err.Error()

		a.events.Publish(core.NewEvent(core.EventTaskFailed, map[string]any{
			"agent":   a.name,
			"error":   result.Error,
			"task_id": task.ID,
		}))
		a.logger.Warn("agent.task.failed", "agent", a.name, "task_id", task.ID, "error", result.Error)
	} else {
		a.mu.Lock()
		a.state = StateIdle
		a.mu.Unlock()

		result.Status = core.TaskSucceeded
		result.Output = output

		a.events.Publish(core.NewEvent(core.EventTaskCompleted, map[string]any{
			"agent":   a.name,
			"result":  output,
			"task_id": task.ID,
		}))
		a.logger.Info("agent.task.completed", "agent", a.name, "task_id", task.ID,
			"duration_ms", result.Duration().Milliseconds())
	}

	a.memory.AddTaskResult(result)
	return result, nil
}

// runCapability invokes the capability, converting panics into errors so a
// misbehaving external capability cannot take the process down.
func (a *Agent) runCapability(ctx context.Context, task core.Task) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = fmt.Errorf("capability panicked: %v", r)
		}
	}()
	return a.capability.Execute(ctx, task)
}

// SendMessage constructs a message with this agent as sender and delegates
// to the bus.
func (a *Agent) SendMessage(receiver string, content any) error {
	msg := core.NewMessage(a.name, receiver, content)
	if _, err := a.bus.Send(msg); err != nil {
		return err
	}
	a.memory.AddMessage(msg)
	return nil
}

// Broadcast sends content to every other registered agent and returns the
// delivery count.
func (a *Agent) Broadcast(content any) (int, error) {
	msg := core.NewMessage(a.name, core.Broadcast, content)
	delivered, err := a.bus.Send(msg)
	if err != nil {
		return 0, err
	}
	a.memory.AddMessage(msg)
	return delivered, nil
}

// Messages drains the agent's inbox in FIFO order, recording the received
// messages in memory.
func (a *Agent) Messages() ([]core.Message, error) {
	msgs, err := a.bus.Receive(a.name)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		a.memory.AddMessage(m)
	}
	return msgs, nil
}
