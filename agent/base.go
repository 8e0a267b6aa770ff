package agent

import (
	"context"

	"github.com/hupe1980/agentbus/core"
	"github.com/hupe1980/agentbus/logging"
)

// Options configures agents built on BaseAgent.
type Options struct {
	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger
}

// WithLogger overrides the default NoOp logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// BaseAgent carries the identity and runtime plumbing shared by every
// concrete agent. Embed it and implement OnMessage to obtain a full
// core.Agent.
type BaseAgent struct {
	id          core.AgentID
	description string
	runtime     core.Runtime
	logger      logging.Logger
}

// NewBaseAgent creates the common agent base. The owning runtime and the
// assigned id are passed explicitly; they normally come straight from the
// factory callback's arguments.
func NewBaseAgent(runtime core.Runtime, id core.AgentID, description string, optFns ...func(o *Options)) *BaseAgent {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &BaseAgent{
		id:          id,
		description: description,
		runtime:     runtime,
		logger:      opts.Logger,
	}
}

// ID returns the identity this instance was constructed for.
func (a *BaseAgent) ID() core.AgentID { return a.id }

// Metadata describes the agent for diagnostics and discovery.
func (a *BaseAgent) Metadata() core.AgentMetadata {
	return core.AgentMetadata{
		Type:        a.id.Type,
		Key:         a.id.Key,
		Description: a.description,
	}
}

// Runtime returns the bus this agent is attached to.
func (a *BaseAgent) Runtime() core.Runtime { return a.runtime }

// Logger returns the agent's logger.
func (a *BaseAgent) Logger() logging.Logger { return a.logger }

// Send delivers a point-to-point message with this agent as the sender.
func (a *BaseAgent) Send(ctx context.Context, msg core.Message, recipient core.AgentID, optFns ...func(o *core.SendOptions)) (core.Message, error) {
	withSender := func(o *core.SendOptions) {
		id := a.id
		o.Sender = &id
	}

	return a.runtime.Send(ctx, msg, recipient, append([]func(o *core.SendOptions){withSender}, optFns...)...)
}

// Publish fans a message out to a topic with this agent as the sender, so
// the bus suppresses delivery back to this instance.
func (a *BaseAgent) Publish(ctx context.Context, msg core.Message, topic core.TopicID, optFns ...func(o *core.PublishOptions)) error {
	withSender := func(o *core.PublishOptions) {
		id := a.id
		o.Sender = &id
	}

	return a.runtime.Publish(ctx, msg, topic, append([]func(o *core.PublishOptions){withSender}, optFns...)...)
}

// SaveState returns an empty checkpoint. Agents with durable state override
// this; the warning is the only observable effect of the default.
func (a *BaseAgent) SaveState() (map[string]any, error) {
	a.logger.Warn("save state not implemented", "agent", a.id.String())
	return map[string]any{}, nil
}

// LoadState ignores the checkpoint. Agents with durable state override this.
func (a *BaseAgent) LoadState(state map[string]any) error {
	if len(state) > 0 {
		a.logger.Warn("load state not implemented", "agent", a.id.String())
	}

	return nil
}
