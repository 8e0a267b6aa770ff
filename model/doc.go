// Package model defines the provider-agnostic completion abstraction used by
// agents that consult a language model. The bus core never depends on this
// package; model-backed agents are ordinary consumers of the runtime.
//
// Providers (OpenAI, Anthropic) implement the Model interface so agents stay
// decoupled from vendor SDKs; Mock offers deterministic completions for tests
// and examples.
package model
