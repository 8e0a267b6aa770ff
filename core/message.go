package core

// Message is the payload contract for everything moved through the bus.
// Applications define a closed set of message variants and tag each with a
// stable type name; the routed dispatch layer keys its handler table by that
// tag instead of open-ended runtime type inspection.
type Message interface {
	// MessageType returns the stable type tag of the variant, e.g.
	// "chat.user_text". Tags must be unique within an application.
	MessageType() string
}

// MessageContext carries delivery metadata into an agent's message handler.
type MessageContext struct {
	// Sender is the publishing or sending agent, nil for external callers.
	Sender *AgentID

	// Topic is set for messages delivered through a publish fan-out and nil
	// for direct sends.
	Topic *TopicID

	// IsRPC reports whether the message was delivered point-to-point and a
	// reply is expected.
	IsRPC bool

	// MessageID is the unique id assigned when the message was enqueued.
	MessageID string

	// CancellationToken is the token governing this delivery. Handlers may
	// poll it or register callbacks to observe cancellation.
	CancellationToken *CancellationToken
}
