package testutil

import "sync"

// Event is one call recorded by EventRecorder.
type Event struct {
	Room string
	Type string
	Data any
}

// EventRecorder is a notify.Publisher that keeps events in memory.
type EventRecorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish records the event.
func (r *EventRecorder) Publish(room, eventType string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Room: room, Type: eventType, Data: data})
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Has reports whether an event of eventType was sent to room.
func (r *EventRecorder) Has(room, eventType string) bool {
	for _, e := range r.Events() {
		if e.Room == room && e.Type == eventType {
			return true
		}
	}
	return false
}
