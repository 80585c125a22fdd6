package orchestrator

import (
	"time"

	"github.com/swarmbus-io/swarmbus/core"
)

// Strategy is the execution policy for a plan's sub-tasks.
type Strategy string

const (
	// StrategySequential executes sub-tasks one at a time in plan order,
	// stopping at the first failure.
	StrategySequential Strategy = "sequential"
	// StrategyParallel dispatches all sub-tasks concurrently and waits for
	// every branch regardless of individual failures.
	StrategyParallel Strategy = "parallel"
	// StrategyAuto lets the orchestrator choose: parallel when no step
	// depends on a prior step's result, sequential otherwise.
	StrategyAuto Strategy = "auto"
)

// Step is one sub-task of a plan, bound to exactly one registered agent.
type Step struct {
	Agent       string         `json:"agent"`
	Instruction string         `json:"instruction"`
	Tool        string         `json:"tool,omitempty"`
	Args        map[string]any `json:"args,omitempty"`

	// UsesPriorResult declares a dependency on the previous step's output.
	// Any dependent step forces an auto plan to run sequentially, and in a
	// sequential run the prior output is handed to this step as input.
	UsesPriorResult bool `json:"uses_prior_result,omitempty"`
}

// Plan is constructed per orchestration request, executed once, and
// discarded after producing a Result.
type Plan struct {
	ID       string   `json:"id"`
	Task     string   `json:"task"`
	Strategy Strategy `json:"strategy"`
	Steps    []Step   `json:"steps"`
}

// NewPlan creates a plan for the root task with the given strategy.
func NewPlan(task string, strategy Strategy, steps ...Step) Plan {
	return Plan{ID: core.NewID(), Task: task, Strategy: strategy, Steps: steps}
}

// resolve maps auto onto a concrete strategy using the declared step
// dependencies.
func (p Plan) resolve() Strategy {
	if p.Strategy != StrategyAuto {
		return p.Strategy
	}
	for _, s := range p.Steps {
		if s.UsesPriorResult {
			return StrategySequential
		}
	}
	return StrategyParallel
}

// Result aggregates the per-agent task results of one orchestration run.
// For a sequential run it contains results for all steps attempted before a
// failure stopped execution; for a parallel run it contains every branch
// outcome. Overall status is failure if any contained result failed.
type Result struct {
	PlanID      string            `json:"plan_id"`
	Task        string            `json:"task"`
	Strategy    Strategy          `json:"strategy"` // Resolved strategy, never auto
	Status      core.TaskStatus   `json:"status"`
	Results     []core.TaskResult `json:"results"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
}

// Succeeded reports whether every sub-task succeeded.
func (r *Result) Succeeded() bool { return r.Status == core.TaskSucceeded }
