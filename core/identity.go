package core

import (
	"fmt"
	"strings"
)

// AgentType categorizes a family of agent instances sharing a factory.
// It is the first half of an AgentID.
type AgentType struct {
	Name string
}

// AgentID uniquely identifies one logical agent instance. Uniqueness is
// scoped to the (Type, Key) pair; the same Type with different Keys names
// different instances. AgentID has value semantics and is used as a map key
// throughout the runtime.
type AgentID struct {
	// Type matches the agent type registered with the runtime.
	Type string
	// Key distinguishes instances of the same type, conventionally the
	// conversation or session the instance belongs to.
	Key string
}

// NewAgentID constructs an AgentID from a type and instance key.
func NewAgentID(agentType, key string) AgentID {
	return AgentID{Type: agentType, Key: key}
}

// String renders the id in its canonical "type/key" form.
func (id AgentID) String() string { return id.Type + "/" + id.Key }

// ParseAgentID parses the canonical "type/key" form produced by String.
func ParseAgentID(s string) (AgentID, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return AgentID{}, fmt.Errorf("invalid agent id %q: expected type/key", s)
	}

	return AgentID{Type: parts[0], Key: parts[1]}, nil
}

// TopicID identifies a logical broadcast channel. Source conventionally
// carries the key of the agent or conversation that produced the topic, and
// becomes the instance key of agents routed to via type subscriptions.
type TopicID struct {
	Type   string
	Source string
}

// NewTopicID constructs a TopicID from a topic type and source.
func NewTopicID(topicType, source string) TopicID {
	return TopicID{Type: topicType, Source: source}
}

// String renders the topic in "type/source" form for logs and diagnostics.
func (t TopicID) String() string { return t.Type + "/" + t.Source }

// DefaultTopicSource is used when a publisher has no meaningful source.
const DefaultTopicSource = "default"
