package intervention

import (
	"context"

	"github.com/hupe1980/agentbus/core"
)

// dropMessage is the sentinel returned by hooks to veto delivery.
type dropMessage struct{}

// MessageType implements core.Message for the sentinel.
func (dropMessage) MessageType() string { return "intervention.drop" }

// Drop is returned from a hook instead of a message to veto delivery. A
// dropped send or response fails the caller's future with ErrMessageDropped;
// a dropped publish is discarded silently.
var Drop core.Message = dropMessage{}

// IsDrop reports whether a hook return value is the Drop sentinel.
func IsDrop(msg core.Message) bool {
	_, ok := msg.(dropMessage)
	return ok
}

// Handler is one link of the intervention chain. Each method receives the
// current payload and returns the payload to continue with, Drop to veto, or
// an error to fault the envelope. Hooks run on the scheduler goroutine in
// chain order, once per envelope, so transformations are observed atomically
// by all recipients and total order is preserved.
type Handler interface {
	// OnSend runs before a direct send is dispatched to its recipient.
	OnSend(ctx context.Context, msg core.Message, sender *core.AgentID, recipient core.AgentID) (core.Message, error)

	// OnPublish runs before a publish is fanned out to subscribers.
	OnPublish(ctx context.Context, msg core.Message, sender *core.AgentID, topic core.TopicID) (core.Message, error)

	// OnResponse runs before the reply to a send is resolved to its caller.
	OnResponse(ctx context.Context, msg core.Message, sender core.AgentID, recipient *core.AgentID) (core.Message, error)
}

// Passthrough implements Handler with no-ops for every hook. Embed it to
// intercept only the envelope kinds you care about.
type Passthrough struct{}

// OnSend returns the message unchanged.
func (Passthrough) OnSend(_ context.Context, msg core.Message, _ *core.AgentID, _ core.AgentID) (core.Message, error) {
	return msg, nil
}

// OnPublish returns the message unchanged.
func (Passthrough) OnPublish(_ context.Context, msg core.Message, _ *core.AgentID, _ core.TopicID) (core.Message, error) {
	return msg, nil
}

// OnResponse returns the message unchanged.
func (Passthrough) OnResponse(_ context.Context, msg core.Message, _ core.AgentID, _ *core.AgentID) (core.Message, error) {
	return msg, nil
}
