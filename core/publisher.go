package core

import "sync"

// Publisher is the single notification point every state-changing component
// writes to. Publish never blocks the caller on subscriber processing: each
// subscription buffers events in an unbounded queue drained by its own
// goroutine, so a slow observer cannot stall an agent or the orchestrator.
//
// Ordering: events published from one goroutine reach every subscription in
// publish order. No total order is guaranteed across independently running
// publishers (e.g. two agents executing concurrently).
//
// Lifecycle: create one Publisher at system start, pass it explicitly to
// every component, and Close it at shutdown. Close flushes queued events to
// subscribers before closing their channels.
type Publisher struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewPublisher constructs an empty publisher.
func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[*Subscription]struct{})}
}

// Publish fans the event out to all current subscriptions without blocking.
// Publishing after Close is a no-op.
func (p *Publisher) Publish(event Event) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	targets := make([]*Subscription, 0, len(p.subs))
	for s := range p.subs {
		targets = append(targets, s)
	}
	p.mu.Unlock()

	for _, s := range targets {
		s.enqueue(event)
	}
}

// Subscribe registers a new read-only observer. The returned subscription
// receives every event published after this call.
func (p *Publisher) Subscribe() *Subscription {
	s := &Subscription{
		pub:  p,
		out:  make(chan Event),
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	p.mu.Lock()
	if p.closed {
		s.closed = true
	} else {
		p.subs[s] = struct{}{}
	}
	p.mu.Unlock()

	go s.pump()
	return s
}

// Close shuts the publisher down. Every subscription drains its pending
// queue and then has its channel closed.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	subs := make([]*Subscription, 0, len(p.subs))
	for s := range p.subs {
		subs = append(subs, s)
	}
	p.subs = nil
	p.mu.Unlock()

	for _, s := range subs {
		s.finish()
	}
}

func (p *Publisher) remove(s *Subscription) {
	p.mu.Lock()
	if !p.closed {
		delete(p.subs, s)
	}
	p.mu.Unlock()
}

// Subscription is one observer's view of the event stream. Events are read
// from Events(); Close detaches the observer and releases its resources.
type Subscription struct {
	pub    *Publisher
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool

	out  chan Event
	done chan struct{}
}

// Events returns the channel delivering this subscription's events. The
// channel is closed once the subscription or its publisher is closed and
// all pending events have been delivered or abandoned.
func (s *Subscription) Events() <-chan Event { return s.out }

// Close detaches the subscription from its publisher. Pending events that
// have not been read are discarded.
func (s *Subscription) Close() {
	s.pub.remove(s)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	close(s.done)
	s.cond.Signal()
	s.mu.Unlock()
}

// finish marks the subscription closed but lets the pump drain the queue,
// used by Publisher.Close to flush events at shutdown.
func (s *Subscription) finish() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *Subscription) enqueue(event Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, event)
	s.cond.Signal()
	s.mu.Unlock()
}

// pump is the single writer of s.out. It forwards queued events in order
// and closes the channel once the subscription winds down.
func (s *Subscription) pump() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			close(s.out)
			return
		}
		event := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- event:
		case <-s.done:
			close(s.out)
			return
		}
	}
}
