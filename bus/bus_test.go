package bus

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swarmbus-io/swarmbus/core"
)

func newTestBus(t *testing.T, names ...string) *MessageBus {
	t.Helper()
	pub := core.NewPublisher()
	t.Cleanup(pub.Close)
	b := New(pub)
	for _, n := range names {
		require.NoError(t, b.Register(n))
	}
	return b
}

func TestDirectDelivery(t *testing.T) {
	b := newTestBus(t, "alice", "bob")

	delivered, err := b.Send(core.NewMessage("alice", "bob", "hello"))
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	msgs, err := b.Receive("bob")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice", msgs[0].Sender)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.False(t, msgs[0].Timestamp.IsZero())

	// Inbox is drained.
	msgs, err = b.Receive("bob")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestPerSenderOrderingPreserved(t *testing.T) {
	b := newTestBus(t, "alice", "bob")

	for i := 0; i < 10; i++ {
		_, err := b.Send(core.NewMessage("alice", "bob", i))
		require.NoError(t, err)
	}

	msgs, err := b.Receive("bob")
	require.NoError(t, err)
	require.Len(t, msgs, 10)
	for i, m := range msgs {
		assert.Equal(t, i, m.Content)
		if i > 0 {
			assert.False(t, m.Timestamp.Before(msgs[i-1].Timestamp), "timestamps must be non-decreasing")
		}
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	b := newTestBus(t, "alice", "bob", "carol")

	delivered, err := b.Send(core.NewMessage("alice", core.Broadcast, "all hands"))
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)

	for _, name := range []string{"bob", "carol"} {
		msgs, err := b.Receive(name)
		require.NoError(t, err)
		assert.Len(t, msgs, 1, "agent %s should receive the broadcast", name)
	}

	msgs, err := b.Receive("alice")
	require.NoError(t, err)
	assert.Empty(t, msgs, "sender must not receive its own broadcast")
}

func TestSystemBroadcastReachesEveryone(t *testing.T) {
	b := newTestBus(t, "alice", "bob")

	delivered, err := b.Send(core.NewMessage(core.SystemSender, core.Broadcast, "shutdown soon"))
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
}

func TestUnknownRecipientAndSender(t *testing.T) {
	b := newTestBus(t, "alice")

	_, err := b.Send(core.NewMessage("alice", "ghost", "hi"))
	assert.ErrorIs(t, err, core.ErrUnknownRecipient)

	_, err = b.Send(core.NewMessage("ghost", "alice", "hi"))
	assert.ErrorIs(t, err, core.ErrUnknownAgent)

	_, err = b.Receive("ghost")
	assert.ErrorIs(t, err, core.ErrUnknownAgent)
}

func TestUnregisterDiscardsPendingInbox(t *testing.T) {
	b := newTestBus(t, "alice", "bob")

	_, err := b.Send(core.NewMessage("alice", "bob", "pending"))
	require.NoError(t, err)

	require.NoError(t, b.Unregister("bob"))
	assert.ErrorIs(t, b.Unregister("bob"), core.ErrUnknownAgent)

	_, err = b.Send(core.NewMessage("alice", "bob", "late"))
	assert.ErrorIs(t, err, core.ErrUnknownRecipient)

	// Re-registering starts with a clean inbox.
	require.NoError(t, b.Register("bob"))
	msgs, err := b.Receive("bob")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDuplicateRegistration(t *testing.T) {
	b := newTestBus(t, "alice")
	assert.ErrorIs(t, b.Register("alice"), core.ErrDuplicateName)
}

func TestConcurrentSendersDoNotLoseMessages(t *testing.T) {
	b := newTestBus(t, "sink")
	const senders, perSender = 8, 50

	for i := 0; i < senders; i++ {
		require.NoError(t, b.Register(fmt.Sprintf("sender-%d", i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			name := fmt.Sprintf("sender-%d", id)
			for j := 0; j < perSender; j++ {
				_, err := b.Send(core.NewMessage(name, "sink", j))
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	msgs, err := b.Receive("sink")
	require.NoError(t, err)
	require.Len(t, msgs, senders*perSender)

	// Per-sender order must survive interleaving.
	next := map[string]int{}
	for _, m := range msgs {
		assert.Equal(t, next[m.Sender], m.Content, "out-of-order delivery from %s", m.Sender)
		next[m.Sender]++
	}
}

func TestMessageSentEventPublished(t *testing.T) {
	pub := core.NewPublisher()
	defer pub.Close()
	sub := pub.Subscribe()
	defer sub.Close()

	b := New(pub)
	require.NoError(t, b.Register("alice"))
	require.NoError(t, b.Register("bob"))

	_, err := b.Send(core.NewMessage("alice", "bob", "ping"))
	require.NoError(t, err)

	select {
	case ev := <-sub.Events():
		assert.Equal(t, core.EventMessageSent, ev.Type)
		assert.Equal(t, "alice", ev.Data["sender"])
		assert.Equal(t, "bob", ev.Data["receiver"])
		assert.Equal(t, "ping", ev.Data["content"])
	case <-time.After(time.Second):
		t.Fatal("expected a message_sent event")
	}
}

func TestHistoryFilteredAndBounded(t *testing.T) {
	pub := core.NewPublisher()
	defer pub.Close()
	b := New(pub, func(o *Options) { o.HistoryLimit = 3 })
	require.NoError(t, b.Register("alice"))
	require.NoError(t, b.Register("bob"))
	require.NoError(t, b.Register("carol"))

	for i := 0; i < 5; i++ {
		_, err := b.Send(core.NewMessage("alice", "bob", i))
		require.NoError(t, err)
	}
	_, err := b.Send(core.NewMessage("bob", "carol", "aside"))
	require.NoError(t, err)

	all := b.History("")
	assert.Len(t, all, 3)

	carols := b.History("carol")
	require.Len(t, carols, 1)
	assert.Equal(t, "aside", carols[0].Content)
}
