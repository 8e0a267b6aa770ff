package rpc

// Sentinel payloads of the emulation protocol. They are ordinary bus
// messages; the topic type they arrive on determines how they are
// interpreted.

// NoneResponse answers a request whose handler returned no message.
// "Answered with nothing" and "never answered" must stay distinguishable.
type NoneResponse struct{}

// MessageType implements core.Message.
func (NoneResponse) MessageType() string { return "rpc.none_response" }

// CancelledResponse answers a request whose handler was aborted by a cancel
// topic.
type CancelledResponse struct{}

// MessageType implements core.Message.
func (CancelledResponse) MessageType() string { return "rpc.cancelled_response" }

// CantHandleResponse reports on the error topic that the recipient has no
// handler for the request payload.
type CantHandleResponse struct {
	RequestID string
}

// MessageType implements core.Message.
func (CantHandleResponse) MessageType() string { return "rpc.cant_handle_response" }

// DroppedResponse reports on the error topic that a published response never
// reached its addressee.
type DroppedResponse struct {
	RequestID string
}

// MessageType implements core.Message.
func (DroppedResponse) MessageType() string { return "rpc.dropped_response" }

// CancelRequest is published on the cancel topic to abort an in-flight
// handler.
type CancelRequest struct{}

// MessageType implements core.Message.
func (CancelRequest) MessageType() string { return "rpc.cancel_request" }
