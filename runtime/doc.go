// Package runtime implements the single-scheduler message bus at the heart
// of AgentBus. A Runtime owns a FIFO envelope queue, lazily instantiates
// agents from registered factories, runs an intervention pipeline on every
// envelope, and dispatches each envelope's processing as an independently
// progressing unit of work while tracking how many are outstanding.
//
// Concurrency model: one dispatcher goroutine pops envelopes strictly in
// enqueue order; the handling of each envelope (agent invocation, fan-out)
// runs in its own goroutine, so multiple envelopes' handlers may be in
// flight concurrently even though envelopes are popped in order. The queue,
// the routing cache and the agent-instance map are mutated only under their
// own locks; agents' private state gets no multi-writer guarantee from the
// bus.
//
// The runtime is driven by a RunHandle obtained from Start, which supports
// running indefinitely, stopping explicitly, or stopping once the bus is
// idle (queue empty and zero outstanding units of work).
package runtime
