// Package agent contains the agent implementation: a unit of identity,
// state, and task-execution capability subscribed to the message bus.
//
// The package focuses on three concerns:
//
//  1. The idle → working → {idle, error} state machine around task execution
//  2. Capability polymorphism, the one part of agent behavior that varies
//     by agent type (echo, tool invocation, model call, adapter function),
//     modeled as a closed variant set behind a single Execute contract
//  3. Bus integration for sending, broadcasting and draining messages
//
// Design principles:
//   - No hidden global state; the bus and event publisher are injected
//   - ExecuteTask never lets a capability failure escape as an error or
//     panic: failures become a task_failed event plus a failure result
//   - Cancellation is cooperative via context.Context
package agent
