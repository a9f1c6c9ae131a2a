package core

import (
	"testing"
	"time"
)

func recv(t *testing.T, sub Subscriber) (Event, bool) {
	t.Helper()
	select {
	case ev := <-sub:
		return ev, true
	case <-time.After(100 * time.Millisecond):
		return Event{}, false
	}
}

func TestPublishReachesSubscriber(t *testing.T) {
	eb := NewEventBus()
	sub := eb.Subscribe(HotkeyTriggeredEvent)

	eb.Publish(Event{Type: HotkeyTriggeredEvent, Payload: "ctrl+alt+e"})

	ev, ok := recv(t, sub)
	if !ok {
		t.Fatal("expected to receive the published event")
	}
	if ev.Payload != "ctrl+alt+e" {
		t.Errorf("payload = %v", ev.Payload)
	}
}

func TestSubscriptionFiltersByType(t *testing.T) {
	eb := NewEventBus()
	sub := eb.Subscribe(ActionResultEvent)

	eb.Publish(Event{Type: HotkeyTriggeredEvent})

	if _, ok := recv(t, sub); ok {
		t.Error("subscriber received an event type it never asked for")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	eb := NewEventBus()
	sub := eb.Subscribe(AdaptersChangedEvent)
	eb.Unsubscribe(sub, AdaptersChangedEvent)

	eb.Publish(Event{Type: AdaptersChangedEvent})

	if _, ok := recv(t, sub); ok {
		t.Error("unsubscribed channel still received events")
	}
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	eb := NewEventBus()
	eb.Subscribe(HookReinstalledEvent) // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			eb.Publish(Event{Type: HookReinstalledEvent, Payload: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber channel")
	}
}

func TestMultipleSubscribersEachReceive(t *testing.T) {
	eb := NewEventBus()
	a := eb.Subscribe(ActionResultEvent)
	b := eb.Subscribe(ActionResultEvent)

	eb.Publish(Event{Type: ActionResultEvent, Payload: "ok"})

	if _, ok := recv(t, a); !ok {
		t.Error("first subscriber missed the event")
	}
	if _, ok := recv(t, b); !ok {
		t.Error("second subscriber missed the event")
	}
}
