package core

import (
	"testing"
	"time"
)

func TestEventBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	if bus.SubscriberCount() != 2 {
		t.Fatalf("SubscriberCount() = %d, want 2", bus.SubscriberCount())
	}

	bus.Emit([]Model{{ID: "phi-4-mini"}})

	for i, ch := range []<-chan ModelsEvent{ch1, ch2} {
		select {
		case ev := <-ch:
			if len(ev.Models) != 1 || ev.Models[0].ID != "phi-4-mini" {
				t.Errorf("Subscriber %d received %+v", i, ev.Models)
			}
			if ev.Time.IsZero() {
				t.Errorf("Subscriber %d event has no timestamp", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("Subscriber %d never received the event", i)
		}
	}
}

func TestEventBusCopiesModelsPerSubscriber(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()

	source := []Model{{ID: "phi-4-mini", IsLoaded: true}}
	bus.Emit(source)

	ev1 := <-ch1
	ev1.Models[0].IsLoaded = false

	if source[0].IsLoaded != true {
		t.Error("Mutating a received slice leaked into the source")
	}
	ev2 := <-ch2
	if !ev2.Models[0].IsLoaded {
		t.Error("Mutating one subscriber's slice leaked into another's")
	}
}

func TestEventBusFullSubscriberIsSkipped(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	slow := bus.Subscribe()
	live := bus.Subscribe()

	// Overrun the slow subscriber's buffer without draining it.
	for i := 0; i < 15; i++ {
		bus.Emit([]Model{{ID: "m"}})
	}

	if got := len(slow); got != 10 {
		t.Errorf("Slow subscriber buffered %d events, want 10", got)
	}
	// The healthy subscriber is unaffected by the slow one.
	if got := len(live); got != 10 {
		t.Errorf("Live subscriber buffered %d events, want 10", got)
	}
}

func TestEventBusClose(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()

	bus.Close()

	if _, open := <-ch; open {
		t.Error("Subscriber channel should be closed")
	}

	// Emit and a second Close after shutdown are no-ops.
	bus.Emit([]Model{{ID: "m"}})
	bus.Close()

	if _, open := <-bus.Subscribe(); open {
		t.Error("Subscribe() after Close should return a closed channel")
	}
}
