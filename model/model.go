package model

import (
	"context"
	"fmt"
)

// ChatMessage is one prior turn of a conversation passed to a model.
type ChatMessage struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// Request captures the normalized model input produced by agents.
type Request struct {
	// System carries the instruction prompt, empty for none.
	System string `json:"system,omitempty"`

	// Messages is the conversation so far, oldest first.
	Messages []ChatMessage `json:"messages"`
}

// TokenUsage captures token usage statistics for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completion returned by a model.
type Response struct {
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface agents need to drive text generation.
type Model interface {
	Complete(ctx context.Context, req Request) (Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// Mock is a lightweight in-memory Model for tests and examples.
type Mock struct {
	info      Info
	responses map[string]string
}

// NewMock constructs a Mock with canned responses keyed by the last user
// message.
func NewMock(name string) *Mock {
	return &Mock{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *Mock) AddResponse(prompt, response string) { m.responses[prompt] = response }

// Complete implements Model. Unknown prompts echo themselves with a marker so
// failures are easy to read in test output.
func (m *Mock) Complete(_ context.Context, req Request) (Response, error) {
	if len(req.Messages) == 0 {
		return Response{}, fmt.Errorf("no messages provided")
	}

	last := req.Messages[len(req.Messages)-1].Text

	text, ok := m.responses[last]
	if !ok {
		text = fmt.Sprintf("Mock response to: %s", last)
	}

	return Response{Text: text, FinishReason: "stop"}, nil
}

// Info implements Model.
func (m *Mock) Info() Info { return m.info }
