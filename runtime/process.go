package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentbus/core"
	"github.com/hupe1980/agentbus/intervention"
)

// idlePollInterval bounds how long the scheduler waits without re-checking
// its end condition. StopWhen accepts arbitrary predicates that are not tied
// to queue activity, so the wait cannot rely on wakeup signals alone.
const idlePollInterval = 10 * time.Millisecond

// startGate sequences handler starts across envelopes. Envelopes are popped
// in enqueue order but handled by independent goroutines, so without a gate
// the order in which their handlers begin would be up to the Go scheduler.
// Each unit of work waits for the previous envelope's gate before invoking
// any handler and opens its own gate once all of its handler invocations have
// begun; handler starts follow enqueue order while completions are free to
// interleave.
type startGate struct {
	prev    <-chan struct{}
	entered chan struct{}
	once    sync.Once
}

// nextGate chains a new gate behind the most recently dispatched envelope.
// Called only from the scheduler goroutine.
func (r *Runtime) nextGate() *startGate {
	g := &startGate{prev: r.gateTail, entered: make(chan struct{})}
	r.gateTail = g.entered

	return g
}

func (g *startGate) wait() {
	if g.prev != nil {
		<-g.prev
	}
}

// open releases the next envelope's unit of work. Idempotent; also run on
// early exits so a failed delivery never stalls the chain.
func (g *startGate) open() {
	g.once.Do(func() { close(g.entered) })
}

// processNext handles one scheduler iteration: pop the head envelope, run it
// through the intervention chain, and start its unit of work; or, with an
// empty queue, wait for a wakeup. Called only from the RunHandle loop.
func (r *Runtime) processNext() {
	env := r.dequeue()
	if env == nil {
		select {
		case <-r.notify:
		case <-time.After(idlePollInterval):
		}

		return
	}

	switch e := env.(type) {
	case *sendEnvelope:
		r.dispatchSend(e)
	case *publishEnvelope:
		r.dispatchPublish(e)
	case *responseEnvelope:
		r.dispatchResponse(e)
	}
}

func (r *Runtime) dispatchSend(e *sendEnvelope) {
	msg := e.message

	for _, h := range r.interventions {
		out, err := h.OnSend(context.Background(), msg, e.sender, e.recipient)
		if err != nil {
			r.emit(KindSend, StageFault, e.messageID, msg, err)
			e.future.Reject(err)

			return
		}

		if intervention.IsDrop(out) {
			r.emit(KindSend, StageDrop, e.messageID, msg, nil)
			e.future.Reject(core.ErrMessageDropped)

			return
		}

		msg = out
	}

	e.message = msg

	r.outstanding.Add(1)

	g := r.nextGate()

	go func() {
		defer r.taskDone()
		r.processSend(e, g)
	}()
}

func (r *Runtime) dispatchPublish(e *publishEnvelope) {
	msg := e.message

	for _, h := range r.interventions {
		out, err := h.OnPublish(context.Background(), msg, e.sender, e.topic)
		if err != nil {
			// Publish faults must not corrupt the queue: log and move on.
			r.logger.Error("intervention handler failed for publish", "topic", e.topic.String(), "error", err)
			r.emit(KindPublish, StageFault, e.messageID, msg, err)

			return
		}

		if intervention.IsDrop(out) {
			r.logger.Debug("publish dropped by intervention", "topic", e.topic.String())
			r.emit(KindPublish, StageDrop, e.messageID, msg, nil)
			r.notifyUndeliverable(msg, e.sender, e.topic, e.messageID)

			return
		}

		msg = out
	}

	e.message = msg

	r.outstanding.Add(1)

	g := r.nextGate()

	go func() {
		defer r.taskDone()
		r.processPublish(e, g)
	}()
}

func (r *Runtime) dispatchResponse(e *responseEnvelope) {
	msg := e.message

	for _, h := range r.interventions {
		out, err := h.OnResponse(context.Background(), msg, e.sender, e.recipient)
		if err != nil {
			r.emit(KindResponse, StageFault, "", msg, err)
			e.future.Reject(err)

			return
		}

		if intervention.IsDrop(out) {
			r.emit(KindResponse, StageDrop, "", msg, nil)
			e.future.Reject(core.ErrMessageDropped)

			return
		}

		msg = out
	}

	e.message = msg

	r.outstanding.Add(1)

	g := r.nextGate()

	go func() {
		defer r.taskDone()
		r.processResponse(e, g)
	}()
}

// processSend runs one send's unit of work: resolve the recipient, invoke
// its dispatch entry point and enqueue the reply. Any failure rejects the
// caller's future; the scheduler loop is never affected.
func (r *Runtime) processSend(e *sendEnvelope, g *startGate) {
	defer g.open()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancelling the token aborts this handler invocation too.
	remove := e.token.AddCallback(cancel)
	defer remove()

	g.wait()

	agent, err := r.agent(e.recipient)
	if err != nil {
		e.future.Reject(err)
		return
	}

	r.emit(KindSend, StageDeliver, e.messageID, e.message, nil)
	r.logger.Debug("delivering send", "message_type", e.message.MessageType(), "recipient", e.recipient.String())

	mctx := &core.MessageContext{
		Sender:            e.sender,
		IsRPC:             true,
		MessageID:         e.messageID,
		CancellationToken: e.token,
	}

	g.open()

	result, err := agent.OnMessage(ctx, e.message, mctx)
	if err != nil {
		// Surfaced verbatim to the original caller.
		e.future.Reject(err)
		return
	}

	r.enqueue(&responseEnvelope{
		message:   result,
		sender:    e.recipient,
		recipient: e.sender,
		future:    e.future,
	})
}

// processPublish runs one fan-out: resolve the recipient set, suppress
// self-delivery, and invoke all recipients concurrently. One recipient's
// failure never prevents delivery to its siblings; a cancelled fan-out is a
// silent abort.
func (r *Runtime) processPublish(e *publishEnvelope, g *startGate) {
	defer g.open()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remove := e.token.AddCallback(cancel)
	defer remove()

	g.wait()

	recipients := r.subscriptions.Route(e.topic)

	var (
		group errgroup.Group
		began sync.WaitGroup
	)

	delivered := 0

	for _, id := range recipients {
		if e.sender != nil && id == *e.sender {
			continue
		}

		agent, err := r.agent(id)
		if err != nil {
			r.logger.Error("failed to resolve publish recipient", "recipient", id.String(), "error", err)
			continue
		}

		delivered++

		r.emit(KindPublish, StageDeliver, e.messageID, e.message, nil)
		r.logger.Debug("delivering publish", "message_type", e.message.MessageType(), "recipient", id.String())

		began.Add(1)

		group.Go(func() error {
			mctx := &core.MessageContext{
				Sender:            e.sender,
				Topic:             &e.topic,
				MessageID:         e.messageID,
				CancellationToken: e.token,
			}

			began.Done()

			if _, err := agent.OnMessage(ctx, e.message, mctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, core.ErrCancelled) {
					return nil
				}

				r.logger.Error("error processing publish", "topic", e.topic.String(), "recipient", id.String(), "error", err)
			}

			return nil
		})
	}

	// Every recipient invocation has begun; later envelopes may start.
	began.Wait()
	g.open()

	_ = group.Wait()

	if delivered == 0 {
		r.notifyUndeliverable(e.message, e.sender, e.topic, e.messageID)
	}
}

// processResponse resolves the result slot referenced by the envelope.
func (r *Runtime) processResponse(e *responseEnvelope, g *startGate) {
	defer g.open()

	g.wait()

	r.emit(KindResponse, StageDeliver, "", e.message, nil)

	g.open()

	e.future.Resolve(e.message)
}

// taskDone closes out one unit of work and wakes the scheduler so idle
// detection re-evaluates promptly.
func (r *Runtime) taskDone() {
	r.outstanding.Add(-1)
	r.signal()
}

func (r *Runtime) emit(kind MessageKind, stage DeliveryStage, messageID string, msg core.Message, err error) {
	messageType := ""
	if msg != nil {
		messageType = msg.MessageType()
	}

	r.sink.OnMessageEvent(MessageEvent{
		Kind:        kind,
		Stage:       stage,
		MessageType: messageType,
		MessageID:   messageID,
		Err:         err,
	})
}
