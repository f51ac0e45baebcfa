package hub

import (
	"testing"

	"github.com/tripflow/tripflow/internal/events"
)

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	h := New()
	a := h.Subscribe("trip-1")
	b := h.Subscribe("trip-1")
	other := h.Subscribe("trip-2")

	h.Broadcast(events.NewStepStartedEvent("trip-1", "s1", "weather_check", "Checking weather"))

	for _, sub := range []*Subscriber{a, b} {
		select {
		case e := <-sub.Events:
			if e.PlanID != "trip-1" || e.Type != events.EventTypeStepStarted {
				t.Errorf("unexpected event %+v", e)
			}
		default:
			t.Error("subscriber did not receive broadcast")
		}
	}

	select {
	case e := <-other.Events:
		t.Errorf("subscriber of another plan received event %+v", e)
	default:
	}
}

func TestSlowSubscriberPrunedOthersUnaffected(t *testing.T) {
	h := New()
	slow := h.Subscribe("trip-1")
	healthy := h.Subscribe("trip-1")

	// Fill the slow subscriber's buffer without draining it.
	for i := 0; i < subscriberBuffer; i++ {
		h.Broadcast(events.NewStepStartedEvent("trip-1", "s1", "weather_check", "fill"))
	}
	// Drain healthy so it keeps up.
	for i := 0; i < subscriberBuffer; i++ {
		<-healthy.Events
	}

	// This send overflows slow's buffer; slow must be pruned and
	// healthy must still get the event.
	h.Broadcast(events.NewStepCompletedEvent("trip-1", "s1", "weather_check", "done", nil))

	select {
	case <-slow.Done:
	default:
		t.Error("expected slow subscriber to be pruned")
	}
	if h.SubscriberCount("trip-1") != 1 {
		t.Errorf("expected 1 remaining subscriber, got %d", h.SubscriberCount("trip-1"))
	}

	select {
	case e := <-healthy.Events:
		if e.Type != events.EventTypeStepCompleted {
			t.Errorf("expected step_completed, got %s", e.Type)
		}
	default:
		t.Error("healthy subscriber missed the broadcast")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := New()
	sub := h.Subscribe("trip-1")

	h.Unsubscribe(sub)
	h.Unsubscribe(sub) // must not panic on double-close

	if h.SubscriberCount("trip-1") != 0 {
		t.Errorf("expected 0 subscribers, got %d", h.SubscriberCount("trip-1"))
	}
	select {
	case <-sub.Done:
	default:
		t.Error("Done not closed after unsubscribe")
	}
}

func TestBroadcastWithNoSubscribers(t *testing.T) {
	h := New()
	// Must not panic or block.
	h.Broadcast(events.NewPlanCreatedEvent("trip-1", "created"))
}
