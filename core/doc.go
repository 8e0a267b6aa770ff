// Package core provides the foundational domain types and interfaces used by
// AgentBus. It defines the core abstractions for:
//
//   - Agents (units of message-handling behavior identified by an AgentID)
//   - Topics (named broadcast channels routed to agents via Subscriptions)
//   - Messages (typed payloads moved through the runtime)
//   - Futures (single-resolution result slots for request/response calls)
//   - CancellationToken (shareable, monotonic cancellation flags)
//
// The package intentionally keeps implementation concerns (scheduling,
// subscription bookkeeping, concrete agents) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
