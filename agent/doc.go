// Package agent provides the building blocks concrete agents are composed
// from: BaseAgent for identity and runtime plumbing, Routed for dispatch-table
// based message handling, Closure for function-backed agents, and Register
// for wiring an agent type into a runtime together with its direct-message
// subscription.
package agent
