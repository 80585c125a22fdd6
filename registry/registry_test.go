package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swarmbus-io/swarmbus/agent"
	"github.com/swarmbus-io/swarmbus/bus"
	"github.com/swarmbus-io/swarmbus/core"
	"github.com/swarmbus-io/swarmbus/model"
	"github.com/swarmbus-io/swarmbus/tool"
)

func newTestRegistry(t *testing.T) (*Registry, *bus.MessageBus, *core.Subscription) {
	t.Helper()
	pub := core.NewPublisher()
	t.Cleanup(pub.Close)
	sub := pub.Subscribe()
	t.Cleanup(sub.Close)
	b := bus.New(pub)
	return New(b, pub), b, sub
}

func waitEvent(t *testing.T, sub *core.Subscription, eventType core.EventType) core.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub.Events():
			if ev.Type == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", eventType)
		}
	}
}

func TestCreateRegistersWithBusAndPublishes(t *testing.T) {
	r, b, sub := newTestRegistry(t)

	a, err := r.Create(Config{Name: "alice", Role: "analyst"})
	require.NoError(t, err)
	assert.Equal(t, "alice", a.Name())
	assert.Equal(t, agent.TypeBasic, a.Type())
	assert.True(t, b.Registered("alice"))

	ev := waitEvent(t, sub, core.EventAgentCreated)
	assert.Equal(t, "alice", ev.Data["name"])
	assert.Equal(t, "analyst", ev.Data["role"])
}

func TestCreateRejectsDuplicatesAndLeavesRegistryUnchanged(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	_, err := r.Create(Config{Name: "alice", Role: "analyst"})
	require.NoError(t, err)

	_, err = r.Create(Config{Name: "alice", Role: "other"})
	assert.ErrorIs(t, err, core.ErrDuplicateName)
	assert.Equal(t, 1, r.Len())

	got, err := r.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, "analyst", got.Role())
}

func TestCreateValidation(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	_, err := r.Create(Config{Name: "", Role: "x"})
	assert.Error(t, err)

	_, err = r.Create(Config{Name: "x", Role: ""})
	assert.Error(t, err)

	_, err = r.Create(Config{Name: core.Broadcast, Role: "x"})
	assert.Error(t, err, "reserved identities cannot be agent names")

	_, err = r.Create(Config{Name: "m", Role: "x", Type: agent.TypeModel})
	assert.Error(t, err, "model agents need a model")

	_, err = r.Create(Config{Name: "a", Role: "x", Type: agent.TypeAdapter})
	assert.Error(t, err, "adapter agents need a handler")

	_, err = r.Create(Config{Name: "w", Role: "x", Type: agent.Type("weird")})
	assert.Error(t, err)
}

func TestRemoveIsDetectablyIdempotent(t *testing.T) {
	r, b, sub := newTestRegistry(t)

	_, err := r.Create(Config{Name: "alice", Role: "analyst"})
	require.NoError(t, err)
	_, err = r.Create(Config{Name: "bob", Role: "writer"})
	require.NoError(t, err)

	require.NoError(t, r.Remove("alice"))
	assert.ErrorIs(t, r.Remove("alice"), core.ErrUnknownAgent)

	ev := waitEvent(t, sub, core.EventAgentDeleted)
	assert.Equal(t, "alice", ev.Data["name"])

	// After removal the bus rejects direct sends to that name.
	_, err = b.Send(core.NewMessage("bob", "alice", "too late"))
	assert.ErrorIs(t, err, core.ErrUnknownRecipient)

	_, err = r.Get("alice")
	assert.ErrorIs(t, err, core.ErrUnknownAgent)
}

func TestListSnapshot(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	_, err := r.Create(Config{Name: "zoe", Role: "writer"})
	require.NoError(t, err)
	_, err = r.Create(Config{Name: "adam", Role: "analyst", Description: "numbers person"})
	require.NoError(t, err)

	infos := r.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "adam", infos[0].Name)
	assert.Equal(t, "zoe", infos[1].Name)
	assert.Equal(t, agent.StateIdle, infos[0].State)
	assert.Equal(t, "numbers person", infos[0].Description)

	// Mutating the snapshot does not touch the registry.
	infos[0].Name = "mallory"
	_, err = r.Get("adam")
	assert.NoError(t, err)
}

func TestCreateVariants(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	require.NoError(t, r.Tools().Register(tool.NewWordCountTool()))

	_, err := r.Create(Config{Name: "tooler", Role: "counter", Type: agent.TypeTool})
	require.NoError(t, err)

	fake := model.Func(func(_ context.Context, req model.Request) (*model.Response, error) {
		return &model.Response{Content: "insight"}, nil
	})
	_, err = r.Create(Config{Name: "thinker", Role: "llm", Type: agent.TypeModel, Model: fake})
	require.NoError(t, err)

	_, err = r.Create(Config{Name: "wrapped", Role: "external", Type: agent.TypeAdapter,
		Handler: func(_ context.Context, task core.Task) (any, error) { return "wrapped: " + task.Description, nil }})
	require.NoError(t, err)

	tooler, _ := r.Get("tooler")
	task := core.NewTask("tooler", "count")
	task.Tool = "word_count"
	task.Args = map[string]any{"text": "a b"}
	result, err := tooler.ExecuteTask(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Output)

	thinker, _ := r.Get("thinker")
	result, err = thinker.ExecuteTask(context.Background(), core.NewTask("thinker", "think"))
	require.NoError(t, err)
	assert.Equal(t, "insight", result.Output)

	wrapped, _ := r.Get("wrapped")
	result, err = wrapped.ExecuteTask(context.Background(), core.NewTask("wrapped", "job"))
	require.NoError(t, err)
	assert.Equal(t, "wrapped: job", result.Output)
}

func TestConcurrentCreateUniqueNames(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Create(Config{Name: "contested", Role: "r"})
		}(i)
	}
	wg.Wait()

	var created, rejected int
	for _, err := range errs {
		if err == nil {
			created++
		} else {
			rejected++
		}
	}
	assert.Equal(t, 1, created, "exactly one creation may win")
	assert.Equal(t, attempts-1, rejected)
	assert.Equal(t, 1, r.Len())
}
