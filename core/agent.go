package core

import (
	"context"
	"time"
)

// Agent defines the contract every unit of message-handling behavior must
// implement. Concrete agents normally embed agent.BaseAgent or agent.Routed
// rather than implementing this interface from scratch.
//
// Agent instances are created lazily by registered factories, at most once
// per AgentID, and live until the runtime itself is discarded. The bus makes
// no multi-writer guarantee about an agent's private state: a handler that is
// re-entered concurrently must serialize itself if needed.
type Agent interface {
	// ID returns the identity this instance was constructed for.
	ID() AgentID

	// Metadata describes the agent for diagnostics and discovery.
	Metadata() AgentMetadata

	// OnMessage handles one delivered message. The returned message becomes
	// the reply for direct sends; it is discarded for publish deliveries.
	OnMessage(ctx context.Context, msg Message, mctx *MessageContext) (Message, error)

	// SaveState returns an opaque checkpoint of the agent's private state.
	SaveState() (map[string]any, error)

	// LoadState restores a checkpoint previously produced by SaveState.
	LoadState(state map[string]any) error
}

// AgentMetadata carries identifying details about an agent instance.
// Produced on demand from the instance; never separately persisted.
type AgentMetadata struct {
	Type        string `json:"type"`
	Key         string `json:"key"`
	Description string `json:"description"`
}

// SendOptions configures a direct point-to-point call.
type SendOptions struct {
	// Sender identifies the calling agent, nil for external callers.
	Sender *AgentID
	// CancellationToken aborts the waiting caller when cancelled. A fresh
	// token is created when nil.
	CancellationToken *CancellationToken
	// Timeout bounds the caller's await; zero means no deadline beyond the
	// context's own.
	Timeout time.Duration
}

// PublishOptions configures a topic fan-out.
type PublishOptions struct {
	// Sender identifies the publishing agent; deliveries back to the sender
	// are suppressed.
	Sender *AgentID
	// CancellationToken aborts the fan-out when cancelled. A fresh token is
	// created when nil.
	CancellationToken *CancellationToken
	// MessageID overrides the generated unique id for the published message.
	MessageID string
}

// Runtime is the agent-facing surface of the message bus. The concrete
// implementation lives in the runtime package; agents hold this interface so
// they can call back into the bus without depending on scheduler internals.
type Runtime interface {
	// Send delivers a message point-to-point and awaits exactly one reply
	// or error.
	Send(ctx context.Context, msg Message, recipient AgentID, optFns ...func(o *SendOptions)) (Message, error)

	// Publish fans a message out to every subscribed agent. Per-recipient
	// failures are isolated and logged, never surfaced to the publisher.
	Publish(ctx context.Context, msg Message, topic TopicID, optFns ...func(o *PublishOptions)) error

	// AddSubscription adds a topic routing rule. Subscriptions freeze once
	// any topic has been routed.
	AddSubscription(sub Subscription) error

	// RemoveSubscription removes a routing rule by subscription id and
	// rebuilds the routing cache.
	RemoveSubscription(id string) error
}
