package core

import "errors"

var (
	// ErrRecipientNotFound is returned by Send when the recipient's agent
	// type has no registered factory.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrCantHandle indicates no dispatch-table entry (or no matching
	// predicate) exists for a message's type, or a handler was invoked with
	// a message or produced a result outside its declared types.
	ErrCantHandle = errors.New("cannot handle message")

	// ErrMessageDropped is surfaced to a caller whose message was vetoed by
	// an intervention handler.
	ErrMessageDropped = errors.New("message dropped")

	// ErrDuplicateSubscription is returned when a subscription id is added
	// twice.
	ErrDuplicateSubscription = errors.New("subscription already exists")

	// ErrSubscriptionsFrozen is returned when a subscription is added after
	// any topic has been routed. The routing cache has no incremental update
	// path, so late additions are rejected outright.
	ErrSubscriptionsFrozen = errors.New("subscriptions are frozen after the first topic has been routed")

	// ErrNoSuchSubscription is returned when removing an unknown
	// subscription id.
	ErrNoSuchSubscription = errors.New("subscription does not exist")

	// ErrDuplicateAgentType is returned when an agent type is registered
	// twice.
	ErrDuplicateAgentType = errors.New("agent type already registered")

	// ErrCancelled indicates a call was aborted through its cancellation
	// token before a result arrived.
	ErrCancelled = errors.New("call cancelled")

	// ErrTimedOut indicates a call's await expired before a result arrived.
	// Any late result is unroutable and silently ignored.
	ErrTimedOut = errors.New("call timed out")

	// ErrResponseDropped indicates the reply to a call was published but
	// never reached the caller, e.g. vetoed by interception.
	ErrResponseDropped = errors.New("response dropped before reaching caller")

	// ErrRuntimeStarted is returned by Start when the processing loop is
	// already running.
	ErrRuntimeStarted = errors.New("runtime already started")
)
