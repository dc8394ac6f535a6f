// Package refresh coordinates access-token renewal across concurrent requests.
//
// # Model
//
// A [Coordinator] is either [Idle] or [Refreshing]. The first caller that observes an
// expired credential while Idle becomes the leader: it flips the state to Refreshing and
// runs the renewal. Every caller that arrives while Refreshing is parked in the pending
// queue and receives the leader's outcome. When the renewal finishes the queue is drained
// completely and the state returns to Idle, so at most one renewal is ever in flight.
//
// # Architecture boundaries
//
// This package owns the state machine and the pending queue only. What a renewal does
// (HTTP exchange, session update, redirect) is supplied by the caller as a function.
//
// # What this package must NOT do
//
//   - Perform I/O of its own.
//   - Import goDesk or session.
//   - Cancel a renewal because one caller's context ended.
package refresh
