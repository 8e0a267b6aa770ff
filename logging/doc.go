// Package logging provides a minimal logging interface and adapters for
// AgentBus.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the runtime and agents use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json")
//	rt := runtime.New(runtime.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available. The runtime
// never consults a global logger; everything flows through the injected
// instance.
package logging
