package subscription

import (
	"fmt"
	"sync"

	"github.com/hupe1980/agentbus/core"
)

// Registry answers "which agents does this topic reach?" without re-scanning
// all subscriptions per publish. The first time a topic value is routed, every
// subscription predicate is evaluated against it and the resulting agent-id
// set is memoized; the memo for that exact topic value is frozen thereafter.
//
// Because the cache has no cheap incremental-update path, adding a
// subscription after any topic has been routed is rejected with
// ErrSubscriptionsFrozen. Removal is allowed and forces a full rebuild across
// all previously observed topics: correctness over incrementality.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu            sync.Mutex
	subscriptions []core.Subscription
	seenTopics    map[core.TopicID]struct{}
	recipients    map[core.TopicID][]core.AgentID
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		seenTopics: make(map[core.TopicID]struct{}),
		recipients: make(map[core.TopicID][]core.AgentID),
	}
}

// Add registers a subscription. It returns ErrDuplicateSubscription if the id
// is already present and ErrSubscriptionsFrozen if any topic has already been
// routed.
func (r *Registry) Add(sub core.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.subscriptions {
		if existing.ID() == sub.ID() {
			return fmt.Errorf("add subscription %s: %w", sub.ID(), core.ErrDuplicateSubscription)
		}
	}

	if len(r.seenTopics) > 0 {
		return fmt.Errorf("add subscription %s: %w", sub.ID(), core.ErrSubscriptionsFrozen)
	}

	r.subscriptions = append(r.subscriptions, sub)

	return nil
}

// Remove deletes a subscription by id and rebuilds the routing cache from the
// remaining subscriptions across all previously observed topics.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	remaining := r.subscriptions[:0]

	for _, sub := range r.subscriptions {
		if sub.ID() == id {
			found = true
			continue
		}

		remaining = append(remaining, sub)
	}

	if !found {
		return fmt.Errorf("remove subscription %s: %w", id, core.ErrNoSuchSubscription)
	}

	r.subscriptions = remaining

	r.recipients = make(map[core.TopicID][]core.AgentID, len(r.seenTopics))
	for topic := range r.seenTopics {
		r.recipients[topic] = r.build(topic)
	}

	return nil
}

// Route returns the agent ids subscribed to the topic. The first call for a
// given topic value evaluates every subscription and memoizes the result;
// later calls return the memo.
func (r *Registry) Route(topic core.TopicID) []core.AgentID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, seen := r.seenTopics[topic]; !seen {
		r.seenTopics[topic] = struct{}{}
		r.recipients[topic] = r.build(topic)
	}

	cached := r.recipients[topic]
	out := make([]core.AgentID, len(cached))
	copy(out, cached)

	return out
}

// Frozen reports whether any topic has been routed, i.e. whether Add is
// rejected from now on.
func (r *Registry) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.seenTopics) > 0
}

// build evaluates all subscriptions against a topic, collapsing duplicate
// agent ids. Caller must hold r.mu.
func (r *Registry) build(topic core.TopicID) []core.AgentID {
	var ids []core.AgentID

	dedupe := make(map[core.AgentID]struct{})

	for _, sub := range r.subscriptions {
		if !sub.Matches(topic) {
			continue
		}

		id, err := sub.MapToAgent(topic)
		if err != nil {
			continue
		}

		if _, dup := dedupe[id]; dup {
			continue
		}

		dedupe[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids
}
