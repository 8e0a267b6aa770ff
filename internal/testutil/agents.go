package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/agentbus/agent"
	"github.com/hupe1980/agentbus/core"
	"github.com/hupe1980/agentbus/runtime"
)

// Text is the canonical request payload of the test agents.
type Text struct {
	Value string
}

// MessageType implements core.Message.
func (Text) MessageType() string { return "testutil.text" }

// Ack is the canonical reply payload of the test agents.
type Ack struct {
	Value string
}

// MessageType implements core.Message.
func (Ack) MessageType() string { return "testutil.ack" }

// EchoFactory builds agents replying to every Text with an Ack carrying the
// same value. Any other payload fails with ErrCantHandle.
func EchoFactory() runtime.AgentFactory {
	return func(rt *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		return agent.NewClosure(rt, id, "echoes text messages", func(_ context.Context, msg core.Message, _ *core.MessageContext) (core.Message, error) {
			text, ok := msg.(Text)
			if !ok {
				return nil, core.ErrCantHandle
			}

			return Ack{Value: text.Value}, nil
		}), nil
	}
}

// Counter counts deliveries across all instances built from its factory.
type Counter struct {
	mu    sync.Mutex
	count int
}

// NewCounter creates an unstarted counter.
func NewCounter() *Counter { return &Counter{} }

// Factory builds agents that bump the counter once per delivered message.
func (c *Counter) Factory() runtime.AgentFactory {
	return func(rt *runtime.Runtime, id core.AgentID) (core.Agent, error) {
		return agent.NewClosure(rt, id, "counts deliveries", func(context.Context, core.Message, *core.MessageContext) (core.Message, error) {
			c.mu.Lock()
			defer c.mu.Unlock()

			c.count++

			return nil, nil
		}), nil
	}
}

// Count returns the number of deliveries observed so far.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.count
}
