package subscription

import (
	"strings"

	"github.com/google/uuid"
	"github.com/hupe1980/agentbus/core"
)

// TypePrefixSubscription matches every topic whose type starts with a fixed
// prefix. Its primary use is direct-message delivery: registering an agent
// adds a prefix subscription on "<agent type>:" so the agent receives all
// topics addressed to it regardless of sub-channel.
type TypePrefixSubscription struct {
	id              string
	topicTypePrefix string
	agentType       string
}

// NewTypePrefixSubscription creates a topic-type prefix subscription with a
// generated id. The prefix should end with ":" to avoid accidental overlap
// between agent types sharing a common name prefix.
func NewTypePrefixSubscription(topicTypePrefix, agentType string) *TypePrefixSubscription {
	return &TypePrefixSubscription{
		id:              uuid.NewString(),
		topicTypePrefix: topicTypePrefix,
		agentType:       agentType,
	}
}

// ID returns the stable unique id of the subscription.
func (s *TypePrefixSubscription) ID() string { return s.id }

// TopicTypePrefix returns the matched topic-type prefix.
func (s *TypePrefixSubscription) TopicTypePrefix() string { return s.topicTypePrefix }

// AgentType returns the agent type matched topics are routed to.
func (s *TypePrefixSubscription) AgentType() string { return s.agentType }

// Matches reports whether topic.Type starts with the subscribed prefix.
func (s *TypePrefixSubscription) Matches(topic core.TopicID) bool {
	return strings.HasPrefix(topic.Type, s.topicTypePrefix)
}

// MapToAgent maps a matched topic to AgentID(agentType, topic.Source).
func (s *TypePrefixSubscription) MapToAgent(topic core.TopicID) (core.AgentID, error) {
	if !s.Matches(topic) {
		return core.AgentID{}, core.ErrCantHandle
	}

	return core.NewAgentID(s.agentType, topic.Source), nil
}
