package orchestrator

import (
	"context"
	"fmt"

	"github.com/swarmbus-io/swarmbus/agent"
	"github.com/swarmbus-io/swarmbus/core"
	"github.com/swarmbus-io/swarmbus/registry"
)

// Planner decomposes a high-level task description into steps bound to
// registered agents. Decomposition policy is pluggable; the engine only
// requires that each step names exactly one registered agent.
type Planner interface {
	Plan(ctx context.Context, task string, agents []registry.Info) ([]Step, error)
}

// PlannerFunc adapts a plain function into a Planner.
type PlannerFunc func(ctx context.Context, task string, agents []registry.Info) ([]Step, error)

// Plan implements Planner.
func (f PlannerFunc) Plan(ctx context.Context, task string, agents []registry.Info) ([]Step, error) {
	return f(ctx, task, agents)
}

// FirstIdlePlanner assigns the whole task to the first idle agent, the
// default single-worker decomposition. It fails with ErrNoEligibleAgents
// when no agent is idle.
func FirstIdlePlanner() Planner {
	return PlannerFunc(func(_ context.Context, task string, agents []registry.Info) ([]Step, error) {
		for _, info := range agents {
			if info.State == agent.StateIdle {
				return []Step{{Agent: info.Name, Instruction: task}}, nil
			}
		}
		return nil, fmt.Errorf("%w: no idle agent for task", core.ErrNoEligibleAgents)
	})
}

// FanOutPlanner assigns the whole task to every registered agent,
// producing one independent step per agent. Combined with the parallel or
// auto strategy this reproduces a broadcast work assignment.
func FanOutPlanner() Planner {
	return PlannerFunc(func(_ context.Context, task string, agents []registry.Info) ([]Step, error) {
		steps := make([]Step, 0, len(agents))
		for _, info := range agents {
			steps = append(steps, Step{Agent: info.Name, Instruction: task})
		}
		return steps, nil
	})
}
