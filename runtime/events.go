package runtime

import "github.com/hupe1980/agentbus/core"

// MessageKind labels which envelope kind an observability event refers to.
type MessageKind string

const (
	// KindSend marks events for point-to-point envelopes.
	KindSend MessageKind = "send"
	// KindPublish marks events for fan-out envelopes.
	KindPublish MessageKind = "publish"
	// KindResponse marks events for reply envelopes.
	KindResponse MessageKind = "response"
)

// DeliveryStage labels where in an envelope's lifecycle an event was emitted.
type DeliveryStage string

const (
	// StageEnqueue is emitted when an envelope enters the queue.
	StageEnqueue DeliveryStage = "enqueue"
	// StageDeliver is emitted when an envelope's unit of work starts.
	StageDeliver DeliveryStage = "deliver"
	// StageDrop is emitted when an intervention handler vetoes an envelope.
	StageDrop DeliveryStage = "drop"
	// StageFault is emitted when an envelope's processing fails.
	StageFault DeliveryStage = "fault"
)

// MessageEvent is one structured observability record describing an envelope
// transition. Events carry identifiers, never payload contents.
type MessageEvent struct {
	Kind        MessageKind
	Stage       DeliveryStage
	MessageType string
	MessageID   string
	Sender      *core.AgentID
	Recipient   *core.AgentID
	Topic       *core.TopicID
	Err         error
}

// EventSink receives MessageEvents from the runtime. Implementations must be
// safe for concurrent use; the runtime emits from both the scheduler
// goroutine and per-envelope units of work. The sink is injected via
// WithEventSink, never discovered through a global.
type EventSink interface {
	OnMessageEvent(ev MessageEvent)
}

// NoOpSink discards all events. It is the default sink.
type NoOpSink struct{}

// OnMessageEvent implements EventSink.
func (NoOpSink) OnMessageEvent(MessageEvent) {}
