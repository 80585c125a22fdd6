// Package swarmbus coordinates a set of autonomous software agents that
// exchange messages, execute tasks, and can be composed into multi-step
// workflows by an orchestrator.
//
// The System type wires the engine's components (event publisher, message
// bus, tool registry, agent registry and orchestrator) with sane defaults
// so embedders get a working engine in one call:
//
//	system := swarmbus.New()
//	defer system.Close()
//
//	system.Registry.Create(registry.Config{Name: "researcher", Role: "research"})
//	system.Registry.Create(registry.Config{Name: "writer", Role: "writing"})
//
//	result, err := system.Orchestrator.RunPlan(ctx, orchestrator.NewPlan(
//	    "produce a summary report", orchestrator.StrategySequential,
//	    orchestrator.Step{Agent: "researcher", Instruction: "gather sources"},
//	    orchestrator.Step{Agent: "writer", Instruction: "write it up", UsesPriorResult: true},
//	))
//
// Observers subscribe to System.Events for the engine's event stream; every
// state change (agent lifecycle, message routing, task execution,
// orchestration) is published there.
package swarmbus

import (
	"github.com/swarmbus-io/swarmbus/bus"
	"github.com/swarmbus-io/swarmbus/core"
	"github.com/swarmbus-io/swarmbus/logging"
	"github.com/swarmbus-io/swarmbus/orchestrator"
	"github.com/swarmbus-io/swarmbus/registry"
	"github.com/swarmbus-io/swarmbus/tool"
)

// Version is the current swarmbus release.
const Version = "0.1.0"

// Options configure a System.
type Options struct {
	Logger       logging.Logger
	Tools        *tool.Registry
	Planner      orchestrator.Planner
	HistoryLimit int
}

// System bundles a fully wired engine. All components share one event
// publisher; Close drains and shuts it down.
type System struct {
	Events       *core.Publisher
	Bus          *bus.MessageBus
	Tools        *tool.Registry
	Registry     *registry.Registry
	Orchestrator *orchestrator.Orchestrator
}

// New constructs a System. Components are wired explicitly; there is no
// package-level singleton.
func New(optFns ...func(o *Options)) *System {
	opts := Options{
		Tools:        tool.NewRegistry(),
		HistoryLimit: bus.DefaultHistoryLimit,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)

	events := core.NewPublisher()
	messageBus := bus.New(events, func(o *bus.Options) {
		o.Logger = logger
		o.HistoryLimit = opts.HistoryLimit
	})
	reg := registry.New(messageBus, events, func(o *registry.Options) {
		o.Logger = logger
		o.Tools = opts.Tools
	})
	orch := orchestrator.New(reg, events, func(o *orchestrator.Options) {
		o.Logger = logger
		if opts.Planner != nil {
			o.Planner = opts.Planner
		}
	})

	return &System{
		Events:       events,
		Bus:          messageBus,
		Tools:        opts.Tools,
		Registry:     reg,
		Orchestrator: orch,
	}
}

// Close shuts the event publisher down, flushing pending events to
// subscribers. Call it once, after all orchestrations have finished.
func (s *System) Close() {
	s.Events.Close()
}
