package agent

import (
	"github.com/hupe1980/agentbus/core"
	"github.com/hupe1980/agentbus/runtime"
	"github.com/hupe1980/agentbus/subscription"
)

// RegisterOptions configures Register.
type RegisterOptions struct {
	// SkipDirectMessageSubscription leaves out the "<type>:" prefix
	// subscription that routes direct messages to this agent type.
	SkipDirectMessageSubscription bool

	// ExtraSubscriptions are added alongside the direct-message one.
	ExtraSubscriptions []core.Subscription
}

// WithSkipDirectMessageSubscription disables the "<type>:" prefix
// subscription.
func WithSkipDirectMessageSubscription() func(o *RegisterOptions) {
	return func(o *RegisterOptions) { o.SkipDirectMessageSubscription = true }
}

// WithExtraSubscriptions adds topic subscriptions for the agent type during
// registration, before the registry freezes.
func WithExtraSubscriptions(subs ...core.Subscription) func(o *RegisterOptions) {
	return func(o *RegisterOptions) { o.ExtraSubscriptions = append(o.ExtraSubscriptions, subs...) }
}

// Register wires an agent type into the runtime: it registers the factory
// and, unless disabled, subscribes the type to the "<type>:" topic prefix so
// instances receive messages addressed directly to them. The prefix includes
// the ":" to avoid collisions between agent type names.
func Register(rt *runtime.Runtime, agentType string, factory runtime.AgentFactory, optFns ...func(o *RegisterOptions)) (core.AgentType, error) {
	var opts RegisterOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	at, err := rt.Register(agentType, factory)
	if err != nil {
		return core.AgentType{}, err
	}

	if !opts.SkipDirectMessageSubscription {
		if err := rt.AddSubscription(subscription.NewTypePrefixSubscription(agentType+":", agentType)); err != nil {
			return core.AgentType{}, err
		}
	}

	for _, sub := range opts.ExtraSubscriptions {
		if err := rt.AddSubscription(sub); err != nil {
			return core.AgentType{}, err
		}
	}

	return at, nil
}
