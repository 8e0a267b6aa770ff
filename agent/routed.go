package agent

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/hupe1980/agentbus/core"
)

// HandlerFunc processes one delivered message. The returned message becomes
// the reply for direct sends and is discarded for publish deliveries.
type HandlerFunc func(ctx context.Context, msg core.Message, mctx *core.MessageContext) (core.Message, error)

// Handler declares one entry of a routed dispatch table.
type Handler struct {
	// Name identifies the handler and breaks ties: candidates registered
	// for the same message type run in alphabetical Name order.
	Name string

	// Accepts lists the message type tags this handler is registered
	// under. A handler may accept a union of tags.
	Accepts []string

	// Produces optionally lists the tags the handler may return. An empty
	// list permits any result.
	Produces []string

	// Match optionally narrows the handler to a subset of messages. The
	// first candidate whose Match reports true wins; nil matches
	// everything.
	Match func(msg core.Message, mctx *core.MessageContext) bool

	// Fn is the handler body.
	Fn HandlerFunc
}

// RoutedOptions configures a Routed agent.
type RoutedOptions struct {
	// Lenient downgrades declared-type mismatches from errors to log
	// warnings.
	Lenient bool
}

// WithLenientTypeChecks logs a declared-result-type mismatch instead of
// failing the invocation.
func WithLenientTypeChecks() func(o *RoutedOptions) {
	return func(o *RoutedOptions) { o.Lenient = true }
}

// Routed dispatches incoming messages through an explicitly registered
// handler table keyed by message type tag. The table is built once at
// construction time.
type Routed struct {
	*BaseAgent

	lenient bool
	table   map[string][]Handler
}

// NewRouted builds a Routed agent from an explicit handler list. Returns an
// error for handlers missing a name, a body, or accepted types.
func NewRouted(base *BaseAgent, handlers []Handler, optFns ...func(o *RoutedOptions)) (*Routed, error) {
	var opts RoutedOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	table := make(map[string][]Handler)

	for _, h := range handlers {
		if h.Name == "" {
			return nil, fmt.Errorf("routed agent %s: handler with empty name", base.ID())
		}

		if h.Fn == nil {
			return nil, fmt.Errorf("routed agent %s: handler %s has no body", base.ID(), h.Name)
		}

		if len(h.Accepts) == 0 {
			return nil, fmt.Errorf("routed agent %s: handler %s accepts no message types", base.ID(), h.Name)
		}

		for _, tag := range h.Accepts {
			table[tag] = append(table[tag], h)
		}
	}

	for tag := range table {
		sort.SliceStable(table[tag], func(i, j int) bool {
			return table[tag][i].Name < table[tag][j].Name
		})
	}

	return &Routed{
		BaseAgent: base,
		lenient:   opts.Lenient,
		table:     table,
	}, nil
}

// OnMessage routes the message to the first registered candidate whose match
// predicate passes. Messages with no winning candidate fail with
// ErrCantHandle; on the publish path the bus only logs that.
func (a *Routed) OnMessage(ctx context.Context, msg core.Message, mctx *core.MessageContext) (core.Message, error) {
	tag := msg.MessageType()

	for _, h := range a.table[tag] {
		if h.Match != nil && !h.Match(msg, mctx) {
			continue
		}

		return a.invoke(ctx, h, msg, mctx)
	}

	a.Logger().Debug("unhandled message", "agent", a.ID().String(), "message_type", tag)

	return nil, fmt.Errorf("%s: no handler for %s: %w", a.ID(), tag, core.ErrCantHandle)
}

func (a *Routed) invoke(ctx context.Context, h Handler, msg core.Message, mctx *core.MessageContext) (core.Message, error) {
	result, err := h.Fn(ctx, msg, mctx)
	if err != nil {
		return nil, err
	}

	if result != nil && len(h.Produces) > 0 && !slices.Contains(h.Produces, result.MessageType()) {
		if a.lenient {
			a.Logger().Warn("handler produced undeclared result type", "agent", a.ID().String(), "handler", h.Name, "message_type", result.MessageType())
			return result, nil
		}

		return nil, fmt.Errorf("handler %s produced undeclared %s: %w", h.Name, result.MessageType(), core.ErrCantHandle)
	}

	return result, nil
}
