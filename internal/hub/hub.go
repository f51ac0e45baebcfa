// Package hub fans out plan progress events to live subscribers.
//
// Broadcasting is best-effort and fire-and-forget: a subscriber that
// cannot keep up is dropped, and a drop never affects delivery to other
// subscribers or the orchestrator's persisted state.
package hub

import (
	"sync"

	"github.com/tripflow/tripflow/internal/events"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber
// that falls this far behind is pruned rather than blocking broadcast.
const subscriberBuffer = 100

// Hub manages plan event subscriptions and broadcasting.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscriber]struct{} // planID -> subscribers
}

// Subscriber represents a single subscription to one plan's events.
type Subscriber struct {
	PlanID string
	Events chan *events.PlanEvent
	Done   chan struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new subscriber for the given plan. The returned
// subscriber's Events channel receives every subsequent broadcast for
// that plan, in order, until Unsubscribe is called or the subscriber is
// pruned for falling behind. Done is closed when the subscription ends.
func (h *Hub) Subscribe(planID string) *Subscriber {
	sub := &Subscriber{
		PlanID: planID,
		Events: make(chan *events.PlanEvent, subscriberBuffer),
		Done:   make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[planID] == nil {
		h.subscribers[planID] = make(map[*Subscriber]struct{})
	}
	h.subscribers[planID][sub] = struct{}{}

	return sub
}

// Unsubscribe removes a subscription. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

// Broadcast delivers an event to every subscriber of its plan. Failed
// sends are collected while iterating and the offending subscribers are
// pruned afterward, so removal never mutates the set mid-iteration.
func (h *Hub) Broadcast(event *events.PlanEvent) {
	h.mu.RLock()
	subs := h.subscribers[event.PlanID]
	if len(subs) == 0 {
		h.mu.RUnlock()
		return
	}
	// Copy the subscriber list to avoid holding the lock during sends.
	subList := make([]*Subscriber, 0, len(subs))
	for sub := range subs {
		subList = append(subList, sub)
	}
	h.mu.RUnlock()

	var failed []*Subscriber
	for _, sub := range subList {
		select {
		case sub.Events <- event:
		default:
			failed = append(failed, sub)
		}
	}

	if len(failed) > 0 {
		h.mu.Lock()
		for _, sub := range failed {
			h.removeLocked(sub)
		}
		h.mu.Unlock()
	}
}

// SubscriberCount returns the number of live subscribers for a plan.
func (h *Hub) SubscriberCount(planID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[planID])
}

// removeLocked deletes a subscriber and closes its Done channel.
// Callers must hold h.mu.
func (h *Hub) removeLocked(sub *Subscriber) {
	subs, ok := h.subscribers[sub.PlanID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscribers, sub.PlanID)
	}
	close(sub.Done)
}
