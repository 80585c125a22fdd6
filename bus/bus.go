// Package bus implements the message bus that routes messages between
// agents without agents holding direct references to each other. It supports
// point-to-point delivery with acknowledgment and broadcast fan-out, owns
// every agent's inbox, and keeps a bounded history of routed messages.
package bus

import (
	"fmt"
	"sync"
	"time"

	"github.com/swarmbus-io/swarmbus/core"
	"github.com/swarmbus-io/swarmbus/logging"
)

// DefaultHistoryLimit bounds the number of routed messages retained for
// inspection. Oldest entries are evicted first.
const DefaultHistoryLimit = 1000

// Options configure a MessageBus.
type Options struct {
	Logger       logging.Logger
	HistoryLimit int
}

// MessageBus is the single owner of all agent inboxes. Access to one
// agent's inbox never blocks access to another's: the registration table is
// guarded by its own RWMutex while each inbox carries its own lock.
type MessageBus struct {
	mu      sync.RWMutex
	inboxes map[string]*inbox

	// clockMu serializes timestamp assignment so that timestamps are
	// monotonically non-decreasing per bus instance.
	clockMu sync.Mutex
	lastTS  time.Time

	histMu       sync.Mutex
	history      []core.Message
	historyLimit int

	events *core.Publisher
	logger logging.Logger
}

// inbox holds one agent's pending messages. Its mutex makes send/receive on
// the same inbox mutually exclusive without involving the bus-wide lock.
type inbox struct {
	mu   sync.Mutex
	msgs []core.Message
}

// New constructs a message bus publishing message_sent events to events.
func New(events *core.Publisher, optFns ...func(o *Options)) *MessageBus {
	opts := Options{HistoryLimit: DefaultHistoryLimit}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MessageBus{
		inboxes:      make(map[string]*inbox),
		historyLimit: opts.HistoryLimit,
		events:       events,
		logger:       logging.OrNoOp(opts.Logger),
	}
}

// Register creates an empty inbox for the named agent. The registry calls
// this during agent creation; a duplicate name is rejected.
func (b *MessageBus) Register(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inboxes[name]; ok {
		return fmt.Errorf("%w: %s", core.ErrDuplicateName, name)
	}
	b.inboxes[name] = &inbox{}
	b.logger.Debug("bus.register", "agent", name)
	return nil
}

// Unregister removes the named agent's inbox. Pending messages are
// discarded; this is the documented removal policy.
func (b *MessageBus) Unregister(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inboxes[name]; !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownAgent, name)
	}
	delete(b.inboxes, name)
	b.logger.Debug("bus.unregister", "agent", name)
	return nil
}

// Registered reports whether the named agent currently owns an inbox.
func (b *MessageBus) Registered(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.inboxes[name]
	return ok
}

// Send routes the message and returns the number of inboxes it reached:
// exactly one for a direct message, the count of other registered agents
// for a broadcast. The sender must be a registered agent or the reserved
// system identity; a direct message to an absent receiver fails with
// ErrUnknownRecipient, while a broadcast never fails for that reason.
// Delivery copies the envelope per inbox but not the Content payload; see
// core.Message for the read-only contract on delivered content.
func (b *MessageBus) Send(msg core.Message) (int, error) {
	if msg.Sender != core.SystemSender && !b.Registered(msg.Sender) {
		return 0, fmt.Errorf("%w: sender %s", core.ErrUnknownAgent, msg.Sender)
	}
	if msg.ID == "" {
		msg.ID = core.NewID()
	}
	msg.Timestamp = b.stamp()

	var delivered int
	if msg.IsBroadcast() {
		delivered = b.deliverBroadcast(msg)
	} else {
		if err := b.deliverDirect(msg); err != nil {
			return 0, err
		}
		delivered = 1
	}

	b.record(msg)
	b.events.Publish(core.NewEvent(core.EventMessageSent, map[string]any{
		"sender":    msg.Sender,
		"receiver":  msg.Receiver,
		"content":   msg.Content,
		"timestamp": msg.Timestamp,
	}))
	b.logger.Debug("bus.send", "sender", msg.Sender, "receiver", msg.Receiver, "delivered", delivered)

	return delivered, nil
}

// Receive drains and returns the named agent's pending inbox in FIFO order,
// leaving the inbox empty. It never blocks; an empty inbox yields an empty
// slice.
func (b *MessageBus) Receive(name string) ([]core.Message, error) {
	b.mu.RLock()
	in, ok := b.inboxes[name]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownAgent, name)
	}

	in.mu.Lock()
	msgs := in.msgs
	in.msgs = nil
	in.mu.Unlock()

	if msgs == nil {
		msgs = []core.Message{}
	}
	return msgs, nil
}

// Pending returns the number of undelivered messages waiting for the named
// agent without draining them.
func (b *MessageBus) Pending(name string) int {
	b.mu.RLock()
	in, ok := b.inboxes[name]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.msgs)
}

// History returns a copy of routed messages, optionally filtered to those
// sent by or addressed to the named agent. Pass "" for the full history.
func (b *MessageBus) History(agentName string) []core.Message {
	b.histMu.Lock()
	defer b.histMu.Unlock()

	out := make([]core.Message, 0, len(b.history))
	for _, m := range b.history {
		if agentName == "" || m.Sender == agentName || m.Receiver == agentName {
			out = append(out, m)
		}
	}
	return out
}

func (b *MessageBus) deliverDirect(msg core.Message) error {
	b.mu.RLock()
	in, ok := b.inboxes[msg.Receiver]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownRecipient, msg.Receiver)
	}

	in.mu.Lock()
	in.msgs = append(in.msgs, msg)
	in.mu.Unlock()
	return nil
}

// deliverBroadcast appends a copy of msg to every inbox except the
// sender's. The inbox snapshot is taken under the read lock so concurrent
// registration does not block delivery.
func (b *MessageBus) deliverBroadcast(msg core.Message) int {
	type target struct {
		name string
		in   *inbox
	}
	b.mu.RLock()
	targets := make([]target, 0, len(b.inboxes))
	for name, in := range b.inboxes {
		if name == msg.Sender {
			continue
		}
		targets = append(targets, target{name, in})
	}
	b.mu.RUnlock()

	for _, t := range targets {
		t.in.mu.Lock()
		t.in.msgs = append(t.in.msgs, msg)
		t.in.mu.Unlock()
	}
	return len(targets)
}

// stamp returns a timestamp that never decreases across sends on this bus.
func (b *MessageBus) stamp() time.Time {
	b.clockMu.Lock()
	defer b.clockMu.Unlock()
	now := time.Now().UTC()
	if !now.After(b.lastTS) {
		now = b.lastTS.Add(time.Nanosecond)
	}
	b.lastTS = now
	return now
}

func (b *MessageBus) record(msg core.Message) {
	b.histMu.Lock()
	defer b.histMu.Unlock()
	b.history = append(b.history, msg)
	if b.historyLimit > 0 && len(b.history) > b.historyLimit {
		b.history = b.history[len(b.history)-b.historyLimit:]
	}
}
