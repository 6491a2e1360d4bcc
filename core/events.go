package core

import (
	"sync"
	"time"
)

// ModelsEvent is the single change notification fired by the registry. Each
// firing carries the full current model list; observers treat it as a
// full-state replacement, never a delta.
type ModelsEvent struct {
	Models []Model   `json:"models"`
	Time   time.Time `json:"time"`
}

// EventBus manages model-change subscriptions and emissions
type EventBus struct {
	subscribers []chan ModelsEvent
	mutex       sync.RWMutex
	closed      bool
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers an observer for model list changes
func (eb *EventBus) Subscribe() <-chan ModelsEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if eb.closed {
		// Return a closed channel if the event bus is closed
		ch := make(chan ModelsEvent)
		close(ch)
		return ch
	}

	ch := make(chan ModelsEvent, 10) // Buffered channel to prevent blocking
	eb.subscribers = append(eb.subscribers, ch)
	return ch
}

// Emit delivers the event to all subscribers. Every subscriber receives its
// own copy of the model list, so mutating a received slice cannot leak back
// into the registry or into other observers.
func (eb *EventBus) Emit(models []Model) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	if eb.closed {
		return
	}

	now := time.Now()
	for _, ch := range eb.subscribers {
		snapshot := make([]Model, len(models))
		copy(snapshot, models)
		select {
		case ch <- ModelsEvent{Models: snapshot, Time: now}:
		default:
			// Channel is full, skip this subscriber to prevent blocking
		}
	}
}

// Close closes the event bus and all subscriber channels
func (eb *EventBus) Close() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, ch := range eb.subscribers {
		close(ch)
	}
	eb.subscribers = nil
}

// SubscriberCount returns the number of registered observers
func (eb *EventBus) SubscriberCount() int {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()
	return len(eb.subscribers)
}
