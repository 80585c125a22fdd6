package core

import "time"

// EventType identifies one of the fixed set of state changes the engine
// reports to observers.
type EventType string

const (
	EventAgentCreated          EventType = "agent_created"
	EventAgentDeleted          EventType = "agent_deleted"
	EventMessageSent           EventType = "message_sent"
	EventTaskStarted           EventType = "task_started"
	EventTaskCompleted         EventType = "task_completed"
	EventTaskFailed            EventType = "task_failed"
	EventOrchestratorStarted   EventType = "orchestrator_started"
	EventOrchestratorCompleted EventType = "orchestrator_completed"
)

// Event is an immutable notification of a state change, published for
// external observers (a UI, a logger, a metrics collector). After emission
// it must be treated as read-only; Data maps are never mutated after
// publication.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent creates an event of the given type carrying the supplied payload.
// The timestamp is set at construction in UTC.
func NewEvent(eventType EventType, data map[string]any) Event {
	if data == nil {
		data = map[string]any{}
	}
	return Event{
		ID:        NewID(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
