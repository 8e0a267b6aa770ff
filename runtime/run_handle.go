package runtime

import (
	"context"
	"sync"
)

// RunHandle controls one scheduler run. It is returned by Runtime.Start and
// becomes inert once its loop exits; a fresh handle is obtained by calling
// Start again.
type RunHandle struct {
	rt *Runtime

	mu   sync.Mutex
	stop func() bool

	done chan struct{}
}

func newRunHandle(rt *Runtime) *RunHandle {
	return &RunHandle{
		rt:   rt,
		done: make(chan struct{}),
	}
}

// loop is the scheduler: a single goroutine draining the envelope queue until
// an end condition installed by Stop, StopWhenIdle or StopWhen holds.
func (h *RunHandle) loop() {
	defer close(h.done)
	defer h.rt.clearRun(h)

	for {
		h.mu.Lock()
		stop := h.stop
		h.mu.Unlock()

		if stop != nil && stop() {
			return
		}

		h.rt.processNext()
	}
}

// Stop halts the scheduler after the envelope currently at the head of the
// queue, leaving any remaining envelopes queued. Blocks until the loop has
// exited or the context expires.
func (h *RunHandle) Stop(ctx context.Context) error {
	return h.stopWhen(ctx, func() bool { return true })
}

// StopWhenIdle halts the scheduler once the queue is empty and no unit of
// work is in flight. Blocks until the loop has exited or the context expires.
func (h *RunHandle) StopWhenIdle(ctx context.Context) error {
	return h.stopWhen(ctx, h.rt.Idle)
}

// StopWhen halts the scheduler once cond reports true. cond is evaluated on
// the scheduler goroutine between envelopes; it must be fast and must not
// block.
func (h *RunHandle) StopWhen(ctx context.Context, cond func() bool) error {
	return h.stopWhen(ctx, cond)
}

// Done returns a channel closed when the scheduler loop has exited.
func (h *RunHandle) Done() <-chan struct{} {
	return h.done
}

func (h *RunHandle) stopWhen(ctx context.Context, cond func() bool) error {
	h.mu.Lock()
	h.stop = cond
	h.mu.Unlock()

	h.rt.signal()

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
