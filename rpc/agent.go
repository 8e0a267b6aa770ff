package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/agentbus/core"
	"github.com/hupe1980/agentbus/logging"
)

type sentResponse struct {
	requestID  string
	callerType string
}

// state is the protocol bookkeeping shared by every instance of one
// registered agent type. Response topics are sourced with the responder's
// key, so the instance that receives a reply is not necessarily the one that
// issued the request; keeping the tables per type rather than per instance
// makes correlation independent of instance keys.
type state struct {
	mu       sync.Mutex
	pending  map[string]*core.Future       // request id -> caller's result slot
	inflight map[string]context.CancelFunc // request id -> abort for the running handler
	sent     map[string]sentResponse       // response message id -> original request
}

func newState() *state {
	return &state{
		pending:  make(map[string]*core.Future),
		inflight: make(map[string]context.CancelFunc),
		sent:     make(map[string]sentResponse),
	}
}

func (s *state) addPending(requestID string, f *core.Future) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[requestID] = f
}

func (s *state) takePending(requestID string) *core.Future {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.pending[requestID]
	if !ok {
		return nil
	}

	delete(s.pending, requestID)

	return f
}

func (s *state) removePending(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, requestID)
}

func (s *state) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}

func (s *state) addInflight(requestID string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inflight[requestID] = cancel
}

func (s *state) removeInflight(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inflight, requestID)
}

func (s *state) cancelInflight(requestID string) {
	s.mu.Lock()
	cancel, ok := s.inflight[requestID]
	if ok {
		delete(s.inflight, requestID)
	}
	s.mu.Unlock()

	if ok {
		cancel()
	}
}

func (s *state) recordSent(responseID string, sr sentResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent[responseID] = sr
}

func (s *state) takeSent(responseID string) (sentResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sr, ok := s.sent[responseID]
	if ok {
		delete(s.sent, responseID)
	}

	return sr, ok
}

// Agent wraps another agent with the emulation protocol: inbound request,
// response, error and cancel topics are intercepted and answered here;
// everything else passes through to the wrapped agent untouched.
type Agent struct {
	inner          core.Agent
	runtime        core.Runtime
	logger         logging.Logger
	forwardUnbound bool
	state          *state
}

// ID returns the wrapped agent's identity.
func (a *Agent) ID() core.AgentID { return a.inner.ID() }

// Metadata returns the wrapped agent's metadata.
func (a *Agent) Metadata() core.AgentMetadata { return a.inner.Metadata() }

// SaveState delegates to the wrapped agent. Protocol bookkeeping is
// transient and never checkpointed.
func (a *Agent) SaveState() (map[string]any, error) { return a.inner.SaveState() }

// LoadState delegates to the wrapped agent.
func (a *Agent) LoadState(state map[string]any) error { return a.inner.LoadState(state) }

// OnMessage implements core.Agent, branching on the delivery topic's
// protocol kind.
func (a *Agent) OnMessage(ctx context.Context, msg core.Message, mctx *core.MessageContext) (core.Message, error) {
	if mctx.Topic == nil {
		return a.inner.OnMessage(ctx, msg, mctx)
	}

	topicType := mctx.Topic.Type

	if responseID, ok := errorRequestID(topicType); ok {
		return nil, a.handleError(ctx, msg, mctx, responseID)
	}

	if requestID, ok := cancelRequestID(topicType); ok {
		if _, ok := msg.(CancelRequest); ok {
			a.state.cancelInflight(requestID)
		}

		return nil, nil
	}

	if requestID, ok := responseRequestID(topicType); ok {
		return nil, a.handleResponse(ctx, msg, mctx, requestID)
	}

	if callerType, ok := requestSenderType(topicType); ok {
		return nil, a.handleRequest(ctx, msg, mctx, callerType)
	}

	return a.inner.OnMessage(ctx, msg, mctx)
}

// handleRequest runs an inbound call through the wrapped agent and publishes
// the outcome back to the caller: the reply (a nil reply becomes the
// NoneResponse sentinel), CantHandleResponse on the error topic, or
// CancelledResponse when the handler was aborted.
func (a *Agent) handleRequest(ctx context.Context, msg core.Message, mctx *core.MessageContext, callerType string) error {
	requestID := mctx.MessageID

	handlerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.state.addInflight(requestID, cancel)
	defer a.state.removeInflight(requestID)

	result, err := a.inner.OnMessage(handlerCtx, msg, mctx)

	switch {
	case err == nil:
	case errors.Is(err, core.ErrCantHandle):
		return a.publish(CantHandleResponse{RequestID: requestID}, ErrorTopic(callerType, requestID, a.ID().Key), "")
	case errors.Is(err, context.Canceled) || errors.Is(err, core.ErrCancelled):
		return a.publish(CancelledResponse{}, ResponseTopic(callerType, requestID, a.ID().Key), "")
	default:
		// Anything else is an ordinary handler fault; the caller's
		// timeout bounds its wait.
		return err
	}

	response := result
	if response == nil {
		response = NoneResponse{}
	}

	responseID := uuid.NewString()

	// Remembered so a lost response can be reported back to the caller.
	a.state.recordSent(responseID, sentResponse{requestID: requestID, callerType: callerType})

	return a.publish(response, ResponseTopic(callerType, requestID, a.ID().Key), responseID)
}

func (a *Agent) handleResponse(ctx context.Context, msg core.Message, mctx *core.MessageContext, requestID string) error {
	f := a.state.takePending(requestID)
	if f == nil {
		if a.forwardUnbound {
			_, err := a.inner.OnMessage(ctx, msg, mctx)
			return err
		}

		a.logger.Warn("response for unknown request", "agent", a.ID().String(), "request_id", requestID)

		return nil
	}

	switch msg.(type) {
	case NoneResponse:
		f.Resolve(nil)
	case CancelledResponse:
		f.Cancel()
	default:
		f.Resolve(msg)
	}

	return nil
}

// handleError serves two roles: as the responder, a correlated error means
// one of our responses was lost and the loss is forwarded to the original
// caller; as the caller, it rejects the pending slot with a typed cause.
func (a *Agent) handleError(ctx context.Context, msg core.Message, mctx *core.MessageContext, responseID string) error {
	if sr, ok := a.state.takeSent(responseID); ok {
		return a.publish(DroppedResponse{RequestID: sr.requestID}, ErrorTopic(sr.callerType, sr.requestID, a.ID().Key), "")
	}

	if f := a.state.takePending(responseID); f != nil {
		switch msg.(type) {
		case CantHandleResponse:
			f.Reject(fmt.Errorf("request %s: %w", responseID, core.ErrCantHandle))
		case DroppedResponse:
			f.Reject(fmt.Errorf("request %s: %w", responseID, core.ErrResponseDropped))
		default:
			f.Reject(fmt.Errorf("request %s: %w", responseID, core.ErrResponseDropped))
		}

		return nil
	}

	if a.forwardUnbound {
		_, err := a.inner.OnMessage(ctx, msg, mctx)
		return err
	}

	a.logger.Warn("error notification for unknown request", "agent", a.ID().String(), "request_id", responseID)

	return nil
}

// publish emits a protocol message. The sender is omitted when the topic
// routes back to this very instance, as in a same-type exchange where the
// reply is addressed to the responder's own type: self-delivery suppression
// would swallow it otherwise.
func (a *Agent) publish(msg core.Message, topic core.TopicID, messageID string) error {
	sender := a.ID()

	return a.runtime.Publish(context.Background(), msg, topic, func(o *core.PublishOptions) {
		if topicAddressee(topic) != sender {
			o.Sender = &sender
		}

		o.MessageID = messageID
	})
}
