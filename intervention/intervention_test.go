package intervention_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentbus/core"
	"github.com/hupe1980/agentbus/intervention"
)

type note struct {
	Text string
}

func (note) MessageType() string { return "intervention_test.note" }

func TestDropSentinel(t *testing.T) {
	assert.True(t, intervention.IsDrop(intervention.Drop))
	assert.False(t, intervention.IsDrop(note{}))
	assert.False(t, intervention.IsDrop(nil))
}

func TestPassthroughReturnsMessageUnchanged(t *testing.T) {
	var h intervention.Handler = intervention.Passthrough{}

	msg := note{Text: "hi"}
	sender := core.NewAgentID("sender", "default")

	out, err := h.OnSend(context.Background(), msg, &sender, core.NewAgentID("recipient", "default"))
	require.NoError(t, err)
	assert.Equal(t, msg, out)

	out, err = h.OnPublish(context.Background(), msg, &sender, core.NewTopicID("news", "default"))
	require.NoError(t, err)
	assert.Equal(t, msg, out)

	out, err = h.OnResponse(context.Background(), msg, sender, nil)
	require.NoError(t, err)
	assert.Equal(t, msg, out)
}

// redactor rewrites only publishes, relying on Passthrough for the rest.
type redactor struct {
	intervention.Passthrough
}

func (redactor) OnPublish(_ context.Context, msg core.Message, _ *core.AgentID, _ core.TopicID) (core.Message, error) {
	if n, ok := msg.(note); ok {
		return note{Text: "[redacted:" + n.Text + "]"}, nil
	}

	return msg, nil
}

func TestEmbeddedPassthroughOverride(t *testing.T) {
	var h intervention.Handler = redactor{}

	out, err := h.OnPublish(context.Background(), note{Text: "secret"}, nil, core.NewTopicID("news", "default"))
	require.NoError(t, err)
	assert.Equal(t, note{Text: "[redacted:secret]"}, out)

	out, err = h.OnSend(context.Background(), note{Text: "secret"}, nil, core.NewAgentID("recipient", "default"))
	require.NoError(t, err)
	assert.Equal(t, note{Text: "secret"}, out)
}
