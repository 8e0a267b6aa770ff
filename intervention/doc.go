// Package intervention defines the hook chain invoked on every envelope
// immediately before delivery. Hooks may pass a message through unchanged,
// transform it, veto it with Drop, or fail it by returning an error. The
// chain's output fully replaces the envelope's payload for all downstream
// processing, making it the single integration point for test harnesses that
// assert on traffic and for safety layers that veto messages before they
// reach any agent.
package intervention
