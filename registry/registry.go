// Package registry owns the set of live agents: creation of the closed
// capability variant set, lookup, snapshot listing, and removal. The
// registry is the sole owner of agent instances; removing an agent also
// unsubscribes it from the message bus and discards its pending inbox.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/swarmbus-io/swarmbus/agent"
	"github.com/swarmbus-io/swarmbus/bus"
	"github.com/swarmbus-io/swarmbus/core"
	"github.com/swarmbus-io/swarmbus/logging"
	"github.com/swarmbus-io/swarmbus/model"
	"github.com/swarmbus-io/swarmbus/tool"
)

// Config describes the agent to create. Name and Role are required; Type
// selects the capability variant (TypeBasic when empty). Model is required
// for TypeModel, Handler for TypeAdapter; Tools overrides the registry's
// default tool registry for TypeTool.
type Config struct {
	Name        string
	Role        string
	Description string
	Type        agent.Type

	Tools       *tool.Registry
	Model       model.Model
	Instruction string
	Handler     agent.Func
}

// Info is a read-only snapshot of one agent's identity and current state.
type Info struct {
	Name        string      `json:"name"`
	Role        string      `json:"role"`
	Description string      `json:"description"`
	Type        agent.Type  `json:"type"`
	State       agent.State `json:"state"`
	Pending     int         `json:"pending"` // Undelivered inbox messages
}

// Options configure a Registry.
type Options struct {
	Logger logging.Logger
	// Tools is the default tool registry handed to tool-enabled agents
	// whose Config does not bring its own.
	Tools *tool.Registry
}

// Registry is the agent table. It serializes access to its own map but
// never across agents: two agents' task executions do not contend here.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*agent.Agent

	bus    *bus.MessageBus
	events *core.Publisher
	tools  *tool.Registry
	logger logging.Logger
}

// New constructs a registry bound to the given bus and event publisher.
func New(b *bus.MessageBus, events *core.Publisher, optFns ...func(o *Options)) *Registry {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Tools == nil {
		opts.Tools = tool.NewRegistry()
	}
	return &Registry{
		agents: make(map[string]*agent.Agent),
		bus:    b,
		events: events,
		tools:  opts.Tools,
		logger: logging.OrNoOp(opts.Logger),
	}
}

// Tools returns the registry's default tool registry.
func (r *Registry) Tools() *tool.Registry { return r.tools }

// Create constructs the requested agent variant, registers it with the
// message bus, and publishes agent_created. Duplicate names are rejected
// with ErrDuplicateName, leaving the registry unchanged.
func (r *Registry) Create(cfg Config) (*agent.Agent, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if strings.TrimSpace(cfg.Role) == "" {
		return nil, fmt.Errorf("agent role is required")
	}
	if name == core.SystemSender || name == core.Broadcast {
		return nil, fmt.Errorf("agent name %q is reserved", name)
	}

	capability, err := r.buildCapability(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[name]; ok {
		return nil, fmt.Errorf("%w: %s", core.ErrDuplicateName, name)
	}
	if err := r.bus.Register(name); err != nil {
		return nil, err
	}

	agentType := cfg.Type
	if agentType == "" {
		agentType = agent.TypeBasic
	}
	a := agent.New(name, cfg.Role, agentType, capability, r.bus, r.events, func(o *agent.Options) {
		if cfg.Description != "" {
			o.Description = cfg.Description
		}
		o.Logger = r.logger
	})
	r.agents[name] = a

	r.events.Publish(core.NewEvent(core.EventAgentCreated, map[string]any{
		"name": name,
		"role": cfg.Role,
		"type": string(agentType),
	}))
	r.logger.Info("registry.create", "agent", name, "role", cfg.Role, "type", string(agentType))

	return a, nil
}

// buildCapability selects the variant at construction time so no runtime
// type inspection is needed later.
func (r *Registry) buildCapability(cfg Config) (agent.Capability, error) {
	switch cfg.Type {
	case agent.TypeBasic, "":
		return agent.EchoCapability{}, nil
	case agent.TypeTool:
		tools := cfg.Tools
		if tools == nil {
			tools = r.tools
		}
		return agent.NewToolCapability(tools), nil
	case agent.TypeModel:
		if cfg.Model == nil {
			return nil, fmt.Errorf("agent type %q requires a model", cfg.Type)
		}
		return agent.NewModelCapability(cfg.Model, cfg.Instruction), nil
	case agent.TypeAdapter:
		if cfg.Handler == nil {
			return nil, fmt.Errorf("agent type %q requires a handler", cfg.Type)
		}
		return cfg.Handler, nil
	default:
		return nil, fmt.Errorf("unknown agent type %q", cfg.Type)
	}
}

// Remove unsubscribes the named agent from the bus, removes it from the
// registry and publishes agent_deleted. Absent names fail with
// ErrUnknownAgent, making double removal detectable.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[name]; !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownAgent, name)
	}
	if err := r.bus.Unregister(name); err != nil {
		return err
	}
	delete(r.agents, name)

	r.events.Publish(core.NewEvent(core.EventAgentDeleted, map[string]any{
		"name": name,
	}))
	r.logger.Info("registry.remove", "agent", name)

	return nil
}

// Get returns the named agent for direct interaction.
func (r *Registry) Get(name string) (*agent.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownAgent, name)
	}
	return a, nil
}

// List returns a read-only snapshot of all agents' identity and state,
// sorted by name. Mutations to the snapshot do not affect the registry.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, Info{
			Name:        a.Name(),
			Role:        a.Role(),
			Description: a.Description(),
			Type:        a.Type(),
			State:       a.State(),
			Pending:     r.bus.Pending(a.Name()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
