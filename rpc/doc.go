// Package rpc emulates request/response calls on top of the bus's publish
// primitive alone. It is for setups where only broadcast transport exists:
// requests, responses, errors and cancellations travel as ordinary topic
// publishes whose topic types encode the addressee, the exchange kind and a
// correlation id.
//
// Register wraps an agent type so inbound protocol topics are intercepted and
// answered automatically, while ordinary messages pass through to the wrapped
// agent. The returned Endpoint performs outbound calls. Every call terminates
// with a typed outcome: a resolved reply, ErrCantHandle, ErrResponseDropped,
// ErrCancelled or ErrTimedOut; it never hangs past its timeout.
package rpc
