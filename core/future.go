package core

import (
	"context"
	"sync"
	"time"
)

// Future is a single-resolution result slot. It is resolved exactly once with
// a value or an error; later attempts are ignored. Futures back the caller
// side of every direct send and every emulated RPC call.
type Future struct {
	done  chan struct{}
	once  sync.Once
	value Message
	err   error
}

// NewFuture creates an unresolved Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolve completes the future with a value. No-op if already settled.
func (f *Future) Resolve(value Message) {
	f.once.Do(func() {
		f.value = value
		close(f.done)
	})
}

// Reject completes the future with an error. No-op if already settled.
func (f *Future) Reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Cancel rejects the future with ErrCancelled. No-op if already settled.
func (f *Future) Cancel() { f.Reject(ErrCancelled) }

// Done returns a channel closed once the future settles.
func (f *Future) Done() <-chan struct{} { return f.done }

// Settled reports whether the future has been resolved or rejected.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future settles, the context is done, or the timeout
// expires. A zero timeout means no deadline beyond the context's own.
func (f *Future) Await(ctx context.Context, timeout time.Duration) (Message, error) {
	var expired <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-f.done:
		return f.value, f.err
	case <-expired:
		// Reject locally so a late result finds a settled slot and is
		// silently ignored.
		f.Reject(ErrTimedOut)
		<-f.done

		return f.value, f.err
	case <-ctx.Done():
		f.Reject(ctx.Err())
		<-f.done

		return f.value, f.err
	}
}
