package core

// Subscription defines the topics an agent is interested in: a predicate over
// TopicID plus a rule mapping a matched topic to the agent instance that
// should receive it. Implementations must be immutable after construction and
// return a stable unique ID.
type Subscription interface {
	// ID returns the unique, stable id of the subscription, usually a UUID.
	ID() string

	// Matches reports whether the topic is covered by this subscription.
	Matches(topic TopicID) bool

	// MapToAgent maps a matched topic to the receiving agent. It must only
	// be called for topics Matches returned true for; otherwise it returns
	// ErrCantHandle.
	MapToAgent(topic TopicID) (AgentID, error)
}
