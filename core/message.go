package core

import (
	"time"

	"github.com/google/uuid"
)

// Reserved identities understood by the message bus.
const (
	// SystemSender is the reserved sender identity for messages that do
	// not originate from a registered agent.
	SystemSender = "system"

	// Broadcast is the reserved receiver identity meaning "all registered
	// agents except the sender".
	Broadcast = "all"
)

// Message is the immutable envelope for inter-agent communication.
//
// A message is conceptually owned by the bus from send until delivery, after
// which a copy of the envelope lands in each recipient's inbox. The copy is
// shallow: Content is an opaque payload (text or structured data) shared by
// reference across broadcast recipients, so senders must not mutate it after
// send and recipients must treat it as read-only.
type Message struct {
	ID            string    `json:"id"`
	Sender        string    `json:"sender"`
	Receiver      string    `json:"receiver"`
	Content       any       `json:"content"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewMessage constructs a message from sender to receiver. The timestamp is
// assigned by the bus at send time so that per-bus monotonicity holds.
func NewMessage(sender, receiver string, content any) Message {
	return Message{
		ID:       NewID(),
		Sender:   sender,
		Receiver: receiver,
		Content:  content,
	}
}

// Reply constructs a response to m addressed back at its sender, carrying
// m's ID as the correlation id so callers can link replies to requests.
func (m Message) Reply(sender string, content any) Message {
	r := NewMessage(sender, m.Sender, content)
	r.CorrelationID = m.ID
	return r
}

// IsBroadcast reports whether the message targets every other agent.
func (m Message) IsBroadcast() bool { return m.Receiver == Broadcast }

// NewID generates a unique identifier used for messages, tasks, events and
// plans throughout the engine.
func NewID() string { return uuid.NewString() }
