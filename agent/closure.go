package agent

import (
	"context"

	"github.com/hupe1980/agentbus/core"
)

// Closure adapts a plain function into a full agent. Handy for one-off
// endpoints and tests where a dispatch table is overkill.
type Closure struct {
	*BaseAgent

	fn HandlerFunc
}

// NewClosure creates a function-backed agent.
func NewClosure(runtime core.Runtime, id core.AgentID, description string, fn HandlerFunc, optFns ...func(o *Options)) *Closure {
	return &Closure{
		BaseAgent: NewBaseAgent(runtime, id, description, optFns...),
		fn:        fn,
	}
}

// OnMessage invokes the wrapped function.
func (a *Closure) OnMessage(ctx context.Context, msg core.Message, mctx *core.MessageContext) (core.Message, error) {
	return a.fn(ctx, msg, mctx)
}
