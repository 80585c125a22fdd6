package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swarmbus-io/swarmbus/agent"
	"github.com/swarmbus-io/swarmbus/bus"
	"github.com/swarmbus-io/swarmbus/core"
	"github.com/swarmbus-io/swarmbus/registry"
)

type harness struct {
	pub      *core.Publisher
	sub      *core.Subscription
	registry *registry.Registry
	orch     *Orchestrator
}

func newHarness(t *testing.T, optFns ...func(o *Options)) *harness {
	t.Helper()
	pub := core.NewPublisher()
	t.Cleanup(pub.Close)
	sub := pub.Subscribe()
	t.Cleanup(sub.Close)
	reg := registry.New(bus.New(pub), pub)
	return &harness{pub: pub, sub: sub, registry: reg, orch: New(reg, pub, optFns...)}
}

func (h *harness) addWorker(t *testing.T, name string, fn agent.Func) {
	t.Helper()
	_, err := h.registry.Create(registry.Config{
		Name: name, Role: "worker", Type: agent.TypeAdapter, Handler: fn,
	})
	require.NoError(t, err)
}

func echoWorker(name string) agent.Func {
	return func(_ context.Context, task core.Task) (any, error) {
		return name + " did: " + task.Description, nil
	}
}

func failing(err error) agent.Func {
	return func(context.Context, core.Task) (any, error) { return nil, err }
}

func drainEvents(sub *core.Subscription, types ...core.EventType) []core.Event {
	want := map[core.EventType]bool{}
	for _, t := range types {
		want[t] = true
	}
	var out []core.Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub.Events():
			if want[ev.Type] {
				out = append(out, ev)
				if ev.Type == core.EventOrchestratorCompleted {
					return out
				}
			}
		case <-deadline:
			return out
		}
	}
}

func TestSequentialShortCircuit(t *testing.T) {
	h := newHarness(t)
	var step3Ran atomic.Bool
	h.addWorker(t, "one", echoWorker("one"))
	h.addWorker(t, "two", failing(errors.New("step two broke")))
	h.addWorker(t, "three", func(_ context.Context, task core.Task) (any, error) {
		step3Ran.Store(true)
		return "never", nil
	})

	plan := NewPlan("three step job", StrategySequential,
		Step{Agent: "one", Instruction: "a"},
		Step{Agent: "two", Instruction: "b"},
		Step{Agent: "three", Instruction: "c"},
	)

	result, err := h.orch.RunPlan(context.Background(), plan)
	require.NoError(t, err)

	assert.False(t, result.Succeeded())
	require.Len(t, result.Results, 2, "steps after the failure are never attempted")
	assert.True(t, result.Results[0].Succeeded())
	assert.False(t, result.Results[1].Succeeded())
	assert.Contains(t, result.Results[1].Error, "step two broke")
	assert.False(t, step3Ran.Load())
}

func TestParallelCompleteness(t *testing.T) {
	h := newHarness(t)
	h.addWorker(t, "one", echoWorker("one"))
	h.addWorker(t, "two", failing(errors.New("branch two broke")))
	h.addWorker(t, "three", echoWorker("three"))

	plan := NewPlan("fan out", StrategyParallel,
		Step{Agent: "one"},
		Step{Agent: "two"},
		Step{Agent: "three"},
	)

	result, err := h.orch.RunPlan(context.Background(), plan)
	require.NoError(t, err)

	assert.False(t, result.Succeeded())
	require.Len(t, result.Results, 3, "parallel runs never short-circuit")
	assert.True(t, result.Results[0].Succeeded())
	assert.False(t, result.Results[1].Succeeded())
	assert.True(t, result.Results[2].Succeeded())
	// Branch order matches plan order even though execution interleaves.
	assert.Equal(t, "one", result.Results[0].Agent)
	assert.Equal(t, "three", result.Results[2].Agent)
}

func TestAutoStrategyInference(t *testing.T) {
	independent := NewPlan("t", StrategyAuto, Step{Agent: "a"}, Step{Agent: "b"})
	assert.Equal(t, StrategyParallel, independent.resolve())

	dependent := NewPlan("t", StrategyAuto,
		Step{Agent: "a"},
		Step{Agent: "b", UsesPriorResult: true},
	)
	assert.Equal(t, StrategySequential, dependent.resolve())
}

func TestSequentialPassesPriorResult(t *testing.T) {
	h := newHarness(t)
	h.addWorker(t, "producer", func(context.Context, core.Task) (any, error) {
		return "raw findings", nil
	})
	var gotInput any
	h.addWorker(t, "consumer", func(_ context.Context, task core.Task) (any, error) {
		gotInput = task.Input
		return "summary", nil
	})

	plan := NewPlan("pipeline", StrategyAuto,
		Step{Agent: "producer", Instruction: "dig"},
		Step{Agent: "consumer", Instruction: "summarize", UsesPriorResult: true},
	)

	result, err := h.orch.RunPlan(context.Background(), plan)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, StrategySequential, result.Strategy)
	assert.Equal(t, "raw findings", gotInput)
}

func TestStructuralErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Run(context.Background(), "   ", StrategyAuto)
	assert.ErrorIs(t, err, core.ErrEmptyTask)

	_, err = h.orch.Run(context.Background(), "anything", StrategyAuto)
	assert.ErrorIs(t, err, core.ErrNoEligibleAgents, "empty registry has no eligible agents")

	h.addWorker(t, "only", echoWorker("only"))
	plan := NewPlan("job", StrategySequential, Step{Agent: "ghost"})
	_, err = h.orch.RunPlan(context.Background(), plan)
	assert.ErrorIs(t, err, core.ErrUnknownAgent, "plans fail fast on unregistered agents")
}

func TestDecompositionFailurePublishesEventPair(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Run(context.Background(), "anything", StrategyAuto)
	require.ErrorIs(t, err, core.ErrNoEligibleAgents)

	events := drainEvents(h.sub,
		core.EventOrchestratorStarted, core.EventOrchestratorCompleted)
	require.Len(t, events, 2, "an empty registry still yields started plus failed completion")
	assert.Equal(t, core.EventOrchestratorStarted, events[0].Type)
	assert.Equal(t, core.EventOrchestratorCompleted, events[1].Type)
	assert.Equal(t, "failed", events[1].Data["status"])
	assert.Contains(t, events[1].Data["error"], "no eligible agents")
	assert.Equal(t, events[0].Data["plan_id"], events[1].Data["plan_id"])
}

func TestPlannerErrorPublishesEventPair(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Planner = PlannerFunc(func(context.Context, string, []registry.Info) ([]Step, error) {
			return nil, errors.New("decomposition fell apart")
		})
	})
	h.addWorker(t, "idle", echoWorker("idle"))

	_, err := h.orch.Run(context.Background(), "anything", StrategyAuto)
	require.Error(t, err)

	events := drainEvents(h.sub,
		core.EventOrchestratorStarted, core.EventOrchestratorCompleted)
	require.Len(t, events, 2)
	assert.Equal(t, "failed", events[1].Data["status"])
	assert.Contains(t, events[1].Data["error"], "decomposition fell apart")
}

func TestRunPublishesStartedOnce(t *testing.T) {
	h := newHarness(t)
	h.addWorker(t, "solo", echoWorker("solo"))

	_, err := h.orch.Run(context.Background(), "single job", StrategyAuto)
	require.NoError(t, err)

	events := drainEvents(h.sub,
		core.EventOrchestratorStarted, core.EventOrchestratorCompleted)
	var started int
	for _, ev := range events {
		if ev.Type == core.EventOrchestratorStarted {
			started++
		}
	}
	assert.Equal(t, 1, started, "delegation to the plan executor must not republish started")
}

func TestRunWithDefaultPlanner(t *testing.T) {
	h := newHarness(t)
	h.addWorker(t, "solo", echoWorker("solo"))

	result, err := h.orch.Run(context.Background(), "single job", StrategyAuto)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	require.Len(t, result.Results, 1)
	assert.Equal(t, "solo did: single job", result.Results[0].Output)
}

func TestRunWithFanOutPlanner(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Planner = FanOutPlanner() })
	h.addWorker(t, "a", echoWorker("a"))
	h.addWorker(t, "b", echoWorker("b"))
	h.addWorker(t, "c", echoWorker("c"))

	result, err := h.orch.Run(context.Background(), "everyone works", StrategyAuto)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Len(t, result.Results, 3)
	assert.Equal(t, StrategyParallel, result.Strategy)
}

func TestBusyAgentFailsBranchNotPlanExecution(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.addWorker(t, "busy", func(ctx context.Context, _ core.Task) (any, error) {
		<-release
		return "eventually", nil
	})
	h.addWorker(t, "free", echoWorker("free"))

	busyAgent, err := h.registry.Get("busy")
	require.NoError(t, err)
	go func() {
		_, _ = busyAgent.ExecuteTask(context.Background(), core.NewTask("busy", "occupy"))
	}()
	require.Eventually(t, func() bool { return busyAgent.State() == agent.StateWorking },
		time.Second, time.Millisecond)

	plan := NewPlan("contended", StrategyParallel,
		Step{Agent: "busy"},
		Step{Agent: "free"},
	)
	result, err := h.orch.RunPlan(context.Background(), plan)
	require.NoError(t, err, "a busy agent must not abort the plan")

	assert.False(t, result.Succeeded())
	require.Len(t, result.Results, 2)
	assert.Contains(t, result.Results[0].Error, "busy")
	assert.True(t, result.Results[1].Succeeded())

	close(release)
}

// The end-to-end scenario from the contract: researcher then writer run
// sequentially and the event stream reflects the logical order.
func TestResearcherWriterScenarioEventOrder(t *testing.T) {
	h := newHarness(t)
	h.addWorker(t, "researcher", echoWorker("researcher"))
	h.addWorker(t, "writer", echoWorker("writer"))

	plan := NewPlan("produce a summary report", StrategySequential,
		Step{Agent: "researcher", Instruction: "gather sources"},
		Step{Agent: "writer", Instruction: "write the report", UsesPriorResult: true},
	)

	result, err := h.orch.RunPlan(context.Background(), plan)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	require.Len(t, result.Results, 2)

	events := drainEvents(h.sub,
		core.EventOrchestratorStarted,
		core.EventTaskStarted, core.EventTaskCompleted,
		core.EventOrchestratorCompleted,
	)
	require.Len(t, events, 6)
	assert.Equal(t, core.EventOrchestratorStarted, events[0].Type)
	assert.Equal(t, core.EventTaskStarted, events[1].Type)
	assert.Equal(t, "researcher", events[1].Data["agent"])
	assert.Equal(t, core.EventTaskCompleted, events[2].Type)
	assert.Equal(t, "researcher", events[2].Data["agent"])
	assert.Equal(t, core.EventTaskStarted, events[3].Type)
	assert.Equal(t, "writer", events[3].Data["agent"])
	assert.Equal(t, core.EventTaskCompleted, events[4].Type)
	assert.Equal(t, "writer", events[4].Data["agent"])
	assert.Equal(t, core.EventOrchestratorCompleted, events[5].Type)
	assert.Equal(t, "succeeded", events[5].Data["status"])
}
