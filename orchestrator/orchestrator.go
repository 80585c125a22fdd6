// Package orchestrator composes multiple agents' task executions into a
// plan and executes it per a strategy (sequential, parallel, or
// auto-selected), aggregating per-agent results into one outcome.
//
// Failure containment: a sub-task failure never aborts an unrelated
// concurrent branch and is never raised to the caller as an error; it is
// captured in the aggregate result and reported through events. Only
// structural problems (empty task, no eligible agents, a step bound to an
// unregistered agent) surface synchronously.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/swarmbus-io/swarmbus/core"
	"github.com/swarmbus-io/swarmbus/logging"
	"github.com/swarmbus-io/swarmbus/registry"
)

// Options configure an Orchestrator.
type Options struct {
	Planner Planner
	Logger  logging.Logger
}

// Orchestrator decomposes high-level tasks into sub-tasks for specific
// agents and executes them per a strategy.
type Orchestrator struct {
	registry *registry.Registry
	events   *core.Publisher
	planner  Planner
	logger   logging.Logger
}

// New constructs an orchestrator over the given registry. The default
// planner assigns the task to the first idle agent; supply a custom Planner
// for richer decomposition.
func New(reg *registry.Registry, events *core.Publisher, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{Planner: FirstIdlePlanner()}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Orchestrator{
		registry: reg,
		events:   events,
		planner:  opts.Planner,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// Run decomposes the task through the configured planner and executes the
// resulting plan. orchestrator_started is published before decomposition
// begins; decomposition failures (EmptyTask, NoEligibleAgents, a planner
// error) publish a failed orchestrator_completed and surface synchronously,
// as do plans whose steps reference unknown agents. Sub-task failures are
// captured in the returned Result.
func (o *Orchestrator) Run(ctx context.Context, task string, strategy Strategy) (*Result, error) {
	task = strings.TrimSpace(task)
	if strategy == "" {
		strategy = StrategyAuto
	}
	plan := Plan{ID: core.NewID(), Task: task, Strategy: strategy}
	o.publishStarted(plan, strategy)

	fail := func(err error) (*Result, error) {
		o.publishCompleted(&Result{
			PlanID:   plan.ID,
			Task:     plan.Task,
			Strategy: strategy,
			Status:   core.TaskFailed,
		}, err)
		return nil, err
	}

	if task == "" {
		return fail(core.ErrEmptyTask)
	}
	agents := o.registry.List()
	if len(agents) == 0 {
		return fail(fmt.Errorf("%w: registry is empty", core.ErrNoEligibleAgents))
	}
	steps, err := o.planner.Plan(ctx, task, agents)
	if err != nil {
		return fail(err)
	}
	if len(steps) == 0 {
		return fail(fmt.Errorf("%w: planner produced no steps", core.ErrNoEligibleAgents))
	}

	plan.Steps = steps
	return o.execute(ctx, plan, plan.resolve())
}

// RunPlan executes an explicit plan. Every step must reference an agent
// present in the registry at execution time; the plan fails fast otherwise,
// publishing a failed orchestrator_completed event.
func (o *Orchestrator) RunPlan(ctx context.Context, plan Plan) (*Result, error) {
	if strings.TrimSpace(plan.Task) == "" {
		return nil, core.ErrEmptyTask
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("%w: plan has no steps", core.ErrNoEligibleAgents)
	}
	if plan.ID == "" {
		plan.ID = core.NewID()
	}
	if plan.Strategy == "" {
		plan.Strategy = StrategyAuto
	}
	strategy := plan.resolve()
	o.publishStarted(plan, strategy)
	return o.execute(ctx, plan, strategy)
}

// execute runs a decomposed plan. The caller has already published
// orchestrator_started exactly once for this plan.
func (o *Orchestrator) execute(ctx context.Context, plan Plan, strategy Strategy) (*Result, error) {
	o.logger.Info("orchestrator.start", "plan_id", plan.ID, "strategy", string(strategy), "steps", len(plan.Steps))

	if err := o.validate(plan); err != nil {
		o.publishCompleted(&Result{
			PlanID:   plan.ID,
			Task:     plan.Task,
			Strategy: strategy,
			Status:   core.TaskFailed,
		}, err)
		return nil, err
	}

	result := &Result{
		PlanID:    plan.ID,
		Task:      plan.Task,
		Strategy:  strategy,
		StartedAt: time.Now().UTC(),
	}

	switch strategy {
	case StrategyParallel:
		result.Results = o.runParallel(ctx, plan)
	default:
		result.Results = o.runSequential(ctx, plan)
	}
	result.CompletedAt = time.Now().UTC()

	// A sequential run that stopped early necessarily recorded a failed
	// result, so this loop also covers incomplete plans.
	result.Status = core.TaskSucceeded
	for _, r := range result.Results {
		if !r.Succeeded() {
			result.Status = core.TaskFailed
			break
		}
	}

	o.publishCompleted(result, nil)
	o.logger.Info("orchestrator.done", "plan_id", plan.ID, "status", string(result.Status),
		"results", len(result.Results))

	return result, nil
}

// validate fails fast when a step references an agent missing from the
// registry at plan-execution time.
func (o *Orchestrator) validate(plan Plan) error {
	for _, step := range plan.Steps {
		if _, err := o.registry.Get(step.Agent); err != nil {
			return fmt.Errorf("step bound to %q: %w", step.Agent, err)
		}
	}
	return nil
}

// runSequential executes steps one at a time in plan order. The first
// failure stops execution immediately; results for attempted steps are
// retained. A step that declared UsesPriorResult receives the previous
// step's output as task input.
func (o *Orchestrator) runSequential(ctx context.Context, plan Plan) []core.TaskResult {
	results := make([]core.TaskResult, 0, len(plan.Steps))
	var prior any

	for _, step := range plan.Steps {
		task := o.buildTask(plan, step)
		if step.UsesPriorResult {
			task.Input = prior
		}

		result := o.executeStep(ctx, step, task)
		results = append(results, result)
		if !result.Succeeded() {
			break
		}
		prior = result.Output
	}
	return results
}

// runParallel dispatches every step concurrently and waits for all of them
// regardless of individual failures; branch outcomes keep plan order.
func (o *Orchestrator) runParallel(ctx context.Context, plan Plan) []core.TaskResult {
	results := make([]core.TaskResult, len(plan.Steps))
	var wg sync.WaitGroup

	for i, step := range plan.Steps {
		wg.Add(1)
		go func(i int, step Step) {
			defer wg.Done()
			results[i] = o.executeStep(ctx, step, o.buildTask(plan, step))
		}(i, step)
	}
	wg.Wait()

	return results
}

// executeStep runs one sub-task on its agent. Synchronous agent errors
// (AgentBusy, or the agent vanishing mid-plan) are folded into a failed
// result so one busy agent cannot abort sibling branches.
func (o *Orchestrator) executeStep(ctx context.Context, step Step, task core.Task) core.TaskResult {
	now := time.Now().UTC()
	failed := func(err error) core.TaskResult {
		return core.TaskResult{
			TaskID:      task.ID,
			Agent:       step.Agent,
			Status:      core.TaskFailed,
			Error:       err.Error(),
			StartedAt:   now,
			CompletedAt: time.Now().UTC(),
		}
	}

	a, err := o.registry.Get(step.Agent)
	if err != nil {
		return failed(err)
	}
	result, err := a.ExecuteTask(ctx, task)
	if err != nil {
		return failed(err)
	}
	return result
}

func (o *Orchestrator) buildTask(plan Plan, step Step) core.Task {
	instruction := step.Instruction
	if instruction == "" {
		instruction = plan.Task
	}
	task := core.NewTask(step.Agent, instruction)
	task.Tool = step.Tool
	task.Args = step.Args
	return task
}

func (o *Orchestrator) publishStarted(plan Plan, strategy Strategy) {
	o.events.Publish(core.NewEvent(core.EventOrchestratorStarted, map[string]any{
		"task":     plan.Task,
		"plan_id":  plan.ID,
		"strategy": string(strategy),
		"steps":    len(plan.Steps),
	}))
}

func (o *Orchestrator) publishCompleted(result *Result, err error) {
	data := map[string]any{
		"task":     result.Task,
		"plan_id":  result.PlanID,
		"status":   string(result.Status),
		"strategy": string(result.Strategy),
		"result":   result,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	o.events.Publish(core.NewEvent(core.EventOrchestratorCompleted, data))
}
