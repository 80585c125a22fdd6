package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/swarmbus-io/swarmbus/core"
)

// EntryType categorizes a memory entry.
type EntryType string

const (
	EntryGeneral     EntryType = "general"
	EntryMessage     EntryType = "message"
	EntryTask        EntryType = "task"
	EntryObservation EntryType = "observation"
)

// Entry is a single remembered item.
type Entry struct {
	Content   any            `json:"content"`
	Type      EntryType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// DefaultShortTermLimit is the short-term window size before the oldest
// entry is promoted to long-term memory.
const DefaultShortTermLimit = 100

// Store holds one agent's memory. Concurrency: protected by RWMutex; safe
// for use from the agent's task execution and message paths simultaneously.
type Store struct {
	mu        sync.RWMutex
	limit     int
	shortTerm []Entry
	longTerm  []Entry
}

// NewStore creates a memory store. A non-positive limit falls back to
// DefaultShortTermLimit.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultShortTermLimit
	}
	return &Store{limit: limit}
}

// Add appends an entry to short-term memory, promoting the oldest entry to
// long-term memory when the window overflows.
func (s *Store) Add(content any, entryType EntryType, metadata map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shortTerm = append(s.shortTerm, Entry{
		Content:   content,
		Type:      entryType,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	})
	if len(s.shortTerm) > s.limit {
		s.longTerm = append(s.longTerm, s.shortTerm[0])
		s.shortTerm = s.shortTerm[1:]
	}
}

// AddMessage remembers a routed message.
func (s *Store) AddMessage(msg core.Message) {
	s.Add(msg, EntryMessage, map[string]any{"sender": msg.Sender, "receiver": msg.Receiver})
}

// AddTaskResult remembers a completed task execution.
func (s *Store) AddTaskResult(result core.TaskResult) {
	s.Add(result, EntryTask, map[string]any{"status": string(result.Status)})
}

// AddObservation remembers a free-form observation.
func (s *Store) AddObservation(observation string) {
	s.Add(observation, EntryObservation, nil)
}

// Recent returns up to n most recent short-term entries, oldest first.
func (s *Store) Recent(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.shortTerm) {
		n = len(s.shortTerm)
	}
	out := make([]Entry, n)
	copy(out, s.shortTerm[len(s.shortTerm)-n:])
	return out
}

// Search performs a case-insensitive substring match over both memory
// tiers. Matching is textual: non-string contents are compared via their
// fmt representation.
func (s *Store) Search(query string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(query)
	var results []Entry
	for _, tier := range [][]Entry{s.shortTerm, s.longTerm} {
		for _, e := range tier {
			if strings.Contains(strings.ToLower(fmt.Sprint(e.Content)), query) {
				results = append(results, e)
			}
		}
	}
	return results
}

// Len returns the short-term and long-term entry counts.
func (s *Store) Len() (shortTerm, longTerm int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shortTerm), len(s.longTerm)
}

// ClearShortTerm drops the short-term window, leaving long-term memory
// intact.
func (s *Store) ClearShortTerm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shortTerm = nil
}
