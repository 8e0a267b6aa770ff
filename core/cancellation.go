package core

import "sync"

// CancellationToken is a shareable flag used to abort a logical call. The
// transition to cancelled is monotonic: once cancelled, a token can never be
// reset. Cancelling does not itself stop a running computation; callers must
// poll the flag, register a callback, or rely on a linked future's
// cancellation to unwind.
type CancellationToken struct {
	mu        sync.Mutex
	cancelled bool
	nextID    int
	callbacks map[int]func()
}

// NewCancellationToken creates a token in the not-cancelled state.
func NewCancellationToken() *CancellationToken {
	return &CancellationToken{}
}

// Cancel sets the flag and fires every registered callback, including the
// cancellation of all linked futures. It is idempotent.
func (t *CancellationToken) Cancel() {
	t.mu.Lock()

	if t.cancelled {
		t.mu.Unlock()
		return
	}

	t.cancelled = true
	callbacks := t.callbacks
	t.callbacks = nil
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// IsCancelled reports whether Cancel has been called.
func (t *CancellationToken) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cancelled
}

// AddCallback registers fn to run when the token is cancelled and returns a
// function that removes the registration again. Callers whose interest ends
// before the token's lifetime, such as a completed call sharing a long-lived
// token, must invoke it so the token does not fire or retain stale
// callbacks. If the token is already cancelled, fn runs immediately on the
// calling goroutine and the returned function is a no-op.
func (t *CancellationToken) AddCallback(fn func()) (remove func()) {
	t.mu.Lock()

	if t.cancelled {
		t.mu.Unlock()
		fn()

		return func() {}
	}

	if t.callbacks == nil {
		t.callbacks = make(map[int]func())
	}

	id := t.nextID
	t.nextID++
	t.callbacks[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()

		delete(t.callbacks, id)
	}
}

// LinkFuture registers f to be cancelled when the token is cancelled, or
// cancels it immediately if the token already is. Returns f for chaining.
func (t *CancellationToken) LinkFuture(f *Future) *Future {
	t.AddCallback(f.Cancel)
	return f
}
