package runtime

import "github.com/hupe1980/agentbus/core"

// envelope is the tagged union of units the scheduler moves through its
// queue. Exactly three kinds exist: send (point-to-point, expects a reply),
// publish (fan-out, no reply) and response (the reply to a prior send).
type envelope interface {
	envelopeKind() string
}

// sendEnvelope is a point-to-point message expecting exactly one terminal
// outcome on its future: a resolved reply or a rejection.
type sendEnvelope struct {
	message   core.Message
	sender    *core.AgentID
	recipient core.AgentID
	future    *core.Future
	token     *core.CancellationToken
	messageID string
}

func (*sendEnvelope) envelopeKind() string { return "send" }

// publishEnvelope is a topic fan-out carrying no caller-visible result.
type publishEnvelope struct {
	message   core.Message
	sender    *core.AgentID
	topic     core.TopicID
	token     *core.CancellationToken
	messageID string
}

func (*publishEnvelope) envelopeKind() string { return "publish" }

// responseEnvelope resolves the future of a completed send.
type responseEnvelope struct {
	message   core.Message
	sender    core.AgentID
	recipient *core.AgentID
	future    *core.Future
}

func (*responseEnvelope) envelopeKind() string { return "response" }
