package runtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hupe1980/agentbus/core"
	"github.com/hupe1980/agentbus/intervention"
	"github.com/hupe1980/agentbus/logging"
	"github.com/hupe1980/agentbus/subscription"
)

// AgentFactory produces an agent instance. The runtime invokes a factory at
// most once per AgentID, lazily, on first reference; the owning runtime and
// the assigned id are passed explicitly so constructors need no ambient
// state to discover who they are being built for.
type AgentFactory func(rt *Runtime, id core.AgentID) (core.Agent, error)

// UndeliverableFunc is notified when a publish envelope is vetoed by
// interception or fans out to zero recipients. Layers such as the RPC
// emulation use it to turn silently lost replies into caller-visible errors.
type UndeliverableFunc func(msg core.Message, sender *core.AgentID, topic core.TopicID, messageID string)

// Options configures a Runtime instance using the functional options pattern.
type Options struct {
	// Logger provides structured logging for debugging and monitoring.
	// Defaults to NoOpLogger to ensure no logging dependencies.
	Logger logging.Logger

	// EventSink receives structured message-lifecycle events.
	// Defaults to NoOpSink.
	EventSink EventSink

	// InterventionHandlers form the hook chain invoked on every envelope
	// immediately before delivery, in slice order.
	InterventionHandlers []intervention.Handler
}

// WithLogger overrides the default NoOp logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithEventSink overrides the default NoOp event sink.
func WithEventSink(sink EventSink) func(o *Options) {
	return func(o *Options) { o.EventSink = sink }
}

// WithInterventionHandlers installs the intervention chain.
func WithInterventionHandlers(handlers ...intervention.Handler) func(o *Options) {
	return func(o *Options) { o.InterventionHandlers = handlers }
}

// Runtime is the in-process actor message bus: a single cooperative
// scheduler moving send, publish and response envelopes through a FIFO
// queue toward lazily instantiated agents.
//
// All public methods are safe for concurrent use.
type Runtime struct {
	logger        logging.Logger
	sink          EventSink
	interventions []intervention.Handler

	queueMu sync.Mutex
	queue   []envelope
	notify  chan struct{}

	factoriesMu sync.RWMutex
	factories   map[string]AgentFactory

	agentsMu sync.Mutex
	agents   map[core.AgentID]core.Agent

	subscriptions *subscription.Registry

	// gateTail is the start gate of the most recently dispatched envelope.
	// Touched only by the scheduler goroutine.
	gateTail chan struct{}

	outstanding atomic.Int64

	undeliverableMu sync.RWMutex
	undeliverable   UndeliverableFunc

	runMu sync.Mutex
	run   *RunHandle
}

// New creates a Runtime with optional overrides. The zero configuration is
// fully functional: silent logger, discarding event sink, empty intervention
// chain.
func New(optFns ...func(o *Options)) *Runtime {
	opts := Options{
		Logger:    logging.NoOpLogger{},
		EventSink: NoOpSink{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runtime{
		logger:        opts.Logger,
		sink:          opts.EventSink,
		interventions: opts.InterventionHandlers,
		notify:        make(chan struct{}, 1),
		factories:     make(map[string]AgentFactory),
		agents:        make(map[core.AgentID]core.Agent),
		subscriptions: subscription.NewRegistry(),
	}
}

// Register adds an agent factory under a type name. Instances are created
// lazily, exactly once per (type, key) pair, on first routing reference.
func (r *Runtime) Register(agentType string, factory AgentFactory) (core.AgentType, error) {
	r.factoriesMu.Lock()
	defer r.factoriesMu.Unlock()

	if _, exists := r.factories[agentType]; exists {
		return core.AgentType{}, fmt.Errorf("register %s: %w", agentType, core.ErrDuplicateAgentType)
	}

	r.factories[agentType] = factory

	return core.AgentType{Name: agentType}, nil
}

// Send delivers a message point-to-point and awaits exactly one terminal
// outcome: the recipient's reply, or an error. An unregistered recipient
// type fails immediately with ErrRecipientNotFound, before any queue
// processing.
func (r *Runtime) Send(ctx context.Context, msg core.Message, recipient core.AgentID, optFns ...func(o *core.SendOptions)) (core.Message, error) {
	var opts core.SendOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if !r.knownType(recipient.Type) {
		return nil, fmt.Errorf("send to %s: %w", recipient, core.ErrRecipientNotFound)
	}

	token := opts.CancellationToken
	if token == nil {
		token = core.NewCancellationToken()
	}

	env := &sendEnvelope{
		message:   msg,
		sender:    opts.Sender,
		recipient: recipient,
		future:    core.NewFuture(),
		token:     token,
		messageID: uuid.NewString(),
	}

	token.LinkFuture(env.future)

	r.sink.OnMessageEvent(MessageEvent{
		Kind:        KindSend,
		Stage:       StageEnqueue,
		MessageType: msg.MessageType(),
		MessageID:   env.messageID,
		Sender:      opts.Sender,
		Recipient:   &env.recipient,
	})

	r.logger.Debug("enqueued send", "message_type", msg.MessageType(), "recipient", recipient.String())

	r.enqueue(env)

	return env.future.Await(ctx, opts.Timeout)
}

// Publish fans a message out to every agent subscribed to the topic,
// excluding the sender itself. Per-recipient failures are isolated and
// logged, never surfaced to the publisher.
func (r *Runtime) Publish(ctx context.Context, msg core.Message, topic core.TopicID, optFns ...func(o *core.PublishOptions)) error {
	var opts core.PublishOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	token := opts.CancellationToken
	if token == nil {
		token = core.NewCancellationToken()
	}

	messageID := opts.MessageID
	if messageID == "" {
		messageID = uuid.NewString()
	}

	env := &publishEnvelope{
		message:   msg,
		sender:    opts.Sender,
		topic:     topic,
		token:     token,
		messageID: messageID,
	}

	r.sink.OnMessageEvent(MessageEvent{
		Kind:        KindPublish,
		Stage:       StageEnqueue,
		MessageType: msg.MessageType(),
		MessageID:   messageID,
		Sender:      opts.Sender,
		Topic:       &env.topic,
	})

	r.logger.Debug("enqueued publish", "message_type", msg.MessageType(), "topic", topic.String())

	r.enqueue(env)

	return nil
}

// AddSubscription adds a topic routing rule. Returns ErrSubscriptionsFrozen
// once any topic has been routed and ErrDuplicateSubscription for repeated
// ids.
func (r *Runtime) AddSubscription(sub core.Subscription) error {
	return r.subscriptions.Add(sub)
}

// RemoveSubscription removes a routing rule by subscription id, rebuilding
// the routing cache across all previously observed topics.
func (r *Runtime) RemoveSubscription(id string) error {
	return r.subscriptions.Remove(id)
}

// SetUndeliverableHandler installs the hook notified about publish envelopes
// that were vetoed or reached zero recipients. Must be called before Start.
func (r *Runtime) SetUndeliverableHandler(fn UndeliverableFunc) {
	r.undeliverableMu.Lock()
	defer r.undeliverableMu.Unlock()

	r.undeliverable = fn
}

// Start launches the scheduler loop and returns its handle. Returns
// ErrRuntimeStarted if a loop is already running.
func (r *Runtime) Start() (*RunHandle, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if r.run != nil {
		return nil, core.ErrRuntimeStarted
	}

	handle := newRunHandle(r)
	r.run = handle

	go handle.loop()

	return handle, nil
}

// Idle reports whether the queue is empty and no unit of work is
// outstanding.
func (r *Runtime) Idle() bool {
	r.queueMu.Lock()
	queued := len(r.queue)
	r.queueMu.Unlock()

	return queued == 0 && r.outstanding.Load() == 0
}

// OutstandingTasks returns the number of envelope units of work currently in
// flight.
func (r *Runtime) OutstandingTasks() int {
	return int(r.outstanding.Load())
}

// UnprocessedMessages returns the number of envelopes waiting in the queue.
func (r *Runtime) UnprocessedMessages() int {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()

	return len(r.queue)
}

// AgentMetadata returns the metadata of the agent with the given id,
// instantiating it if needed.
func (r *Runtime) AgentMetadata(id core.AgentID) (core.AgentMetadata, error) {
	agent, err := r.agent(id)
	if err != nil {
		return core.AgentMetadata{}, err
	}

	return agent.Metadata(), nil
}

// TryAgent returns the underlying agent instance for an id, instantiating it
// if needed. Primarily used by tests and diagnostics to observe agent state.
func (r *Runtime) TryAgent(id core.AgentID) (core.Agent, error) {
	return r.agent(id)
}

// SaveState checkpoints every instantiated agent, keyed by the canonical
// string form of its id.
func (r *Runtime) SaveState() (map[string]map[string]any, error) {
	r.agentsMu.Lock()
	instances := make(map[core.AgentID]core.Agent, len(r.agents))
	for id, a := range r.agents {
		instances[id] = a
	}
	r.agentsMu.Unlock()

	state := make(map[string]map[string]any, len(instances))

	for id, a := range instances {
		s, err := a.SaveState()
		if err != nil {
			return nil, fmt.Errorf("save state of %s: %w", id, err)
		}

		state[id.String()] = s
	}

	return state, nil
}

// LoadState restores a checkpoint produced by SaveState. Entries whose agent
// type has no registered factory are skipped.
func (r *Runtime) LoadState(state map[string]map[string]any) error {
	for idStr, s := range state {
		id, err := core.ParseAgentID(idStr)
		if err != nil {
			return err
		}

		if !r.knownType(id.Type) {
			continue
		}

		agent, err := r.agent(id)
		if err != nil {
			return err
		}

		if err := agent.LoadState(s); err != nil {
			return fmt.Errorf("load state of %s: %w", id, err)
		}
	}

	return nil
}

func (r *Runtime) knownType(agentType string) bool {
	r.factoriesMu.RLock()
	defer r.factoriesMu.RUnlock()

	_, ok := r.factories[agentType]

	return ok
}

// agent returns the instance for an id, invoking the registered factory
// exactly once on first reference. Factories must not resolve other agents;
// instantiation holds the instance map lock.
func (r *Runtime) agent(id core.AgentID) (core.Agent, error) {
	r.factoriesMu.RLock()
	factory, ok := r.factories[id.Type]
	r.factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("agent %s: %w", id, core.ErrRecipientNotFound)
	}

	r.agentsMu.Lock()
	defer r.agentsMu.Unlock()

	if existing, ok := r.agents[id]; ok {
		return existing, nil
	}

	instance, err := factory(r, id)
	if err != nil {
		return nil, fmt.Errorf("instantiate agent %s: %w", id, err)
	}

	r.agents[id] = instance

	return instance, nil
}

func (r *Runtime) enqueue(env envelope) {
	r.queueMu.Lock()
	r.queue = append(r.queue, env)
	r.queueMu.Unlock()

	r.signal()
}

func (r *Runtime) dequeue() envelope {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()

	if len(r.queue) == 0 {
		return nil
	}

	env := r.queue[0]
	r.queue = r.queue[1:]

	return env
}

// signal wakes the scheduler loop. Non-blocking: a pending wakeup already
// covers this one.
func (r *Runtime) signal() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *Runtime) clearRun(handle *RunHandle) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if r.run == handle {
		r.run = nil
	}
}

func (r *Runtime) notifyUndeliverable(msg core.Message, sender *core.AgentID, topic core.TopicID, messageID string) {
	r.undeliverableMu.RLock()
	fn := r.undeliverable
	r.undeliverableMu.RUnlock()

	if fn != nil {
		fn(msg, sender, topic, messageID)
	}
}
