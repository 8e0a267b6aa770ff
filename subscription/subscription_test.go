package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentbus/core"
)

func TestTypeSubscriptionMatch(t *testing.T) {
	sub := NewTypeSubscription("t1", "a1")

	assert.False(t, sub.Matches(core.NewTopicID("t0", "s1")))
	assert.True(t, sub.Matches(core.NewTopicID("t1", "s1")))
	assert.True(t, sub.Matches(core.NewTopicID("t1", "s2")))
}

func TestTypeSubscriptionMapToAgent(t *testing.T) {
	sub := NewTypeSubscription("t1", "a1")

	id, err := sub.MapToAgent(core.NewTopicID("t1", "s1"))
	require.NoError(t, err)
	assert.Equal(t, core.NewAgentID("a1", "s1"), id)

	_, err = sub.MapToAgent(core.NewTopicID("t0", "s1"))
	assert.ErrorIs(t, err, core.ErrCantHandle)
}

func TestTypePrefixSubscriptionMatch(t *testing.T) {
	sub := NewTypePrefixSubscription("worker:", "worker")

	assert.True(t, sub.Matches(core.NewTopicID("worker:request:caller:r1", "s1")))
	assert.True(t, sub.Matches(core.NewTopicID("worker:", "s1")))
	assert.False(t, sub.Matches(core.NewTopicID("workers:request", "s1")))
	assert.False(t, sub.Matches(core.NewTopicID("other", "s1")))
}

func TestTypePrefixSubscriptionMapToAgent(t *testing.T) {
	sub := NewTypePrefixSubscription("worker:", "worker")

	id, err := sub.MapToAgent(core.NewTopicID("worker:cancel:r1", "s7"))
	require.NoError(t, err)
	assert.Equal(t, core.NewAgentID("worker", "s7"), id)

	_, err = sub.MapToAgent(core.NewTopicID("other", "s7"))
	assert.ErrorIs(t, err, core.ErrCantHandle)
}

func TestSubscriptionIDsAreUnique(t *testing.T) {
	a := NewTypeSubscription("t", "a")
	b := NewTypeSubscription("t", "a")
	assert.NotEqual(t, a.ID(), b.ID())
}
