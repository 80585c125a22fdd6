// Package core provides the foundational domain types used across swarmbus.
// It defines the core abstractions for:
//
//   - Messages (immutable envelopes exchanged between agents)
//   - Tasks and task results (units of work and their outcomes)
//   - Events (immutable notifications of state changes)
//   - The event publisher (a single injectable pub/sub point for observers)
//   - The shared error taxonomy
//
// The package intentionally keeps implementation concerns (routing, agent
// behavior, orchestration) out of scope, exposing small types that the other
// packages build on without introducing cyclic dependencies.
package core
