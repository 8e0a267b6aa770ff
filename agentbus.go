// Package agentbus provides a high-level façade over the runtime scheduler
// for the common batch pattern: start the loop, do some work against the bus,
// and drive it to quiescence. Most applications interact with this package by:
//  1. Creating a Bus via New() (optionally overriding logger, event sink and
//     intervention chain)
//  2. Registering agent types and subscriptions
//  3. Running workloads with RunUntilIdle, or managing the loop directly via
//     Start()
//
// The façade delegates everything to runtime.Runtime while keeping setup and
// usage ergonomics concise. All defaults are safe for tests and local use.
package agentbus

import (
	"context"

	"github.com/hupe1980/agentbus/runtime"
)

// Bus is the high-level façade embedding the underlying runtime.
type Bus struct {
	*runtime.Runtime
}

// New creates a Bus with optional runtime overrides.
func New(optFns ...func(o *runtime.Options)) *Bus {
	return &Bus{Runtime: runtime.New(optFns...)}
}

// RunUntilIdle starts the scheduler loop, invokes fn against the bus, and
// stops the loop once the queue is empty and no unit of work is outstanding.
// If fn fails, the loop is stopped immediately and fn's error is returned.
func (b *Bus) RunUntilIdle(ctx context.Context, fn func(ctx context.Context) error) error {
	handle, err := b.Start()
	if err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		_ = handle.Stop(ctx)
		return err
	}

	return handle.StopWhenIdle(ctx)
}
