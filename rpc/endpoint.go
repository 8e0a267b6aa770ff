package rpc

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentbus/core"
	"github.com/hupe1980/agentbus/logging"
	"github.com/hupe1980/agentbus/runtime"
	"github.com/hupe1980/agentbus/subscription"
)

// Options configures a registered agent type.
type Options struct {
	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger

	// ForwardUnboundToHandler delivers protocol messages with no matching
	// correlation entry to the wrapped agent instead of logging them.
	ForwardUnboundToHandler bool
}

// WithLogger overrides the default NoOp logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithForwardUnboundToHandler forwards uncorrelated protocol messages to the
// wrapped agent.
func WithForwardUnboundToHandler() func(o *Options) {
	return func(o *Options) { o.ForwardUnboundToHandler = true }
}

// Endpoint performs outbound calls on behalf of one registered agent type
// and exposes its protocol bookkeeping.
type Endpoint struct {
	runtime   core.Runtime
	agentType string
	logger    logging.Logger
	state     *state
}

// Register wires an agent type into the runtime wrapped with the emulation
// protocol: the factory's agents receive ordinary messages as usual, while
// request, response, error and cancel topics are handled by the wrapper. The
// "<type>:" prefix subscription is added so all protocol topics addressed to
// the type reach it.
func Register(rt *runtime.Runtime, agentType string, factory runtime.AgentFactory, optFns ...func(o *Options)) (*Endpoint, error) {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	st := newState()

	_, err := rt.Register(agentType, func(r *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		inner, err := factory(r, id)
		if err != nil {
			return nil, err
		}

		return &Agent{
			inner:          inner,
			runtime:        r,
			logger:         opts.Logger,
			forwardUnbound: opts.ForwardUnboundToHandler,
			state:          st,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if err := rt.AddSubscription(subscription.NewTypePrefixSubscription(agentType+":", agentType)); err != nil {
		return nil, err
	}

	return &Endpoint{
		runtime:   rt,
		agentType: agentType,
		logger:    opts.Logger,
		state:     st,
	}, nil
}

// NewCaller registers a call-only endpoint: an agent type whose instances
// exist purely to receive protocol replies for Call.
func NewCaller(rt *runtime.Runtime, name string, optFns ...func(o *Options)) (*Endpoint, error) {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return Register(rt, name, func(_ *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		return &callerAgent{id: id, logger: opts.Logger}, nil
	}, optFns...)
}

// CallOptions configures a single Call.
type CallOptions struct {
	// CancellationToken aborts the call and asks the recipient to stop.
	// A fresh token is created when nil.
	CancellationToken *core.CancellationToken

	// Timeout bounds the await; zero means no deadline beyond the
	// context's own. On expiry the call fails locally with ErrTimedOut
	// and a late reply is ignored.
	Timeout time.Duration
}

// WithCancellationToken attaches a shared token to the call.
func WithCancellationToken(token *core.CancellationToken) func(o *CallOptions) {
	return func(o *CallOptions) { o.CancellationToken = token }
}

// WithTimeout bounds the caller's await.
func WithTimeout(timeout time.Duration) func(o *CallOptions) {
	return func(o *CallOptions) { o.Timeout = timeout }
}

// Call performs one request/response exchange with an instance of the
// recipient type using only publishes. It blocks until the reply arrives or
// the call fails with a typed cause.
func (e *Endpoint) Call(ctx context.Context, msg core.Message, recipient core.AgentID, optFns ...func(o *CallOptions)) (core.Message, error) {
	var opts CallOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	token := opts.CancellationToken
	if token == nil {
		token = core.NewCancellationToken()
	}

	requestID := uuid.NewString()

	future := core.NewFuture()
	token.LinkFuture(future)

	e.state.addPending(requestID, future)
	defer e.state.removePending(requestID)

	// Protocol publishes carry no sender: a synthetic sender id would equal
	// the routed recipient when an endpoint calls its own agent type, and
	// self-delivery suppression would swallow the request. The cancel
	// callback is detached once the call settles so a shared token cancelled
	// later does not publish cancels for finished calls.
	removeCancel := token.AddCallback(func() {
		err := e.runtime.Publish(context.Background(), CancelRequest{}, CancelTopic(recipient.Type, requestID, recipient.Key))
		if err != nil {
			e.logger.Error("failed to publish cancel request", "request_id", requestID, "error", err)
		}
	})
	defer removeCancel()

	err := e.runtime.Publish(ctx, msg, RequestTopic(recipient.Type, e.agentType, recipient.Key), func(o *core.PublishOptions) {
		o.MessageID = requestID
		o.CancellationToken = token
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("published request", "request_id", requestID, "recipient", recipient.String())

	return future.Await(ctx, opts.Timeout)
}

// Pending returns the number of calls still awaiting a reply.
func (e *Endpoint) Pending() int {
	return e.state.pendingCount()
}

// callerAgent backs NewCaller. Replies are consumed by the protocol wrapper
// before they reach it, so anything arriving here is unexpected.
type callerAgent struct {
	id     core.AgentID
	logger logging.Logger
}

func (a *callerAgent) ID() core.AgentID { return a.id }

func (a *callerAgent) Metadata() core.AgentMetadata {
	return core.AgentMetadata{Type: a.id.Type, Key: a.id.Key, Description: "rpc caller"}
}

func (a *callerAgent) OnMessage(_ context.Context, msg core.Message, _ *core.MessageContext) (core.Message, error) {
	a.logger.Warn("caller received unexpected message", "agent", a.id.String(), "message_type", msg.MessageType())
	return nil, nil
}

func (a *callerAgent) SaveState() (map[string]any, error) { return map[string]any{}, nil }

func (a *callerAgent) LoadState(map[string]any) error { return nil }
