package subscription

import (
	"github.com/google/uuid"
	"github.com/hupe1980/agentbus/core"
)

// TypeSubscription matches topics whose type equals a fixed topic type and
// routes them to AgentID(agentType, topic.Source): one agent instance per
// topic source, all of the same type.
type TypeSubscription struct {
	id        string
	topicType string
	agentType string
}

// NewTypeSubscription creates an exact topic-type subscription with a
// generated id.
func NewTypeSubscription(topicType, agentType string) *TypeSubscription {
	return &TypeSubscription{
		id:        uuid.NewString(),
		topicType: topicType,
		agentType: agentType,
	}
}

// ID returns the stable unique id of the subscription.
func (s *TypeSubscription) ID() string { return s.id }

// TopicType returns the exact topic type this subscription matches.
func (s *TypeSubscription) TopicType() string { return s.topicType }

// AgentType returns the agent type matched topics are routed to.
func (s *TypeSubscription) AgentType() string { return s.agentType }

// Matches reports whether topic.Type equals the subscribed topic type.
func (s *TypeSubscription) Matches(topic core.TopicID) bool {
	return topic.Type == s.topicType
}

// MapToAgent maps a matched topic to AgentID(agentType, topic.Source).
func (s *TypeSubscription) MapToAgent(topic core.TopicID) (core.AgentID, error) {
	if !s.Matches(topic) {
		return core.AgentID{}, core.ErrCantHandle
	}

	return core.NewAgentID(s.agentType, topic.Source), nil
}
