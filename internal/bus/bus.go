// Package bus provides an internal event bus for component communication
package bus

import (
	"sync"
)

// EventType identifies different event types
type EventType string

// Event types for the assistant pipeline
const (
	// Pipeline state events
	EventTypeStatusChanged EventType = "pipeline.status_changed"
	EventTypeTurnStarted   EventType = "pipeline.turn_started"
	EventTypeTurnCompleted EventType = "pipeline.turn_completed"
	EventTypeTurnAborted   EventType = "pipeline.turn_aborted"

	// Utterance events
	EventTypeTranscript EventType = "utterance.transcript"
	EventTypeResponse   EventType = "utterance.response"

	// Audio events
	EventTypeSpeechStart     EventType = "audio.speech_start"
	EventTypeSpeechEnd       EventType = "audio.speech_end"
	EventTypePlaybackStarted EventType = "audio.playback_started"
	EventTypePlaybackStopped EventType = "audio.playback_stopped"

	// Tool events
	EventTypeToolInvoked          EventType = "tool.invoked"
	EventTypeToolCompleted        EventType = "tool.completed"
	EventTypeConfirmationRequired EventType = "tool.confirmation_required"
	EventTypeConfirmationResolved EventType = "tool.confirmation_resolved"

	// Memory events
	EventTypeMemoryStored   EventType = "memory.stored"
	EventTypeSnapshotSaved  EventType = "memory.snapshot_saved"
	EventTypeSnapshotFailed EventType = "memory.snapshot_failed"

	// Telemetry events
	EventTypeTelemetry EventType = "telemetry.log"
)

// Event represents a bus event
type Event struct {
	Type EventType
	Data map[string]any
}

// Handler is a function that handles events
type Handler func(Event)

// EventBus is a simple pub/sub event bus
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	all      []Handler
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for an event type
func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeMultiple adds a handler for multiple event types
func (b *EventBus) SubscribeMultiple(eventTypes []EventType, handler Handler) {
	for _, et := range eventTypes {
		b.Subscribe(et, handler)
	}
}

// SubscribeAll adds a handler that receives every published event.
// The control channel uses this to mirror the pipeline to attached clients.
func (b *EventBus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, handler)
}

// Publish sends an event to all subscribed handlers
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.Type])+len(b.all))
	handlers = append(handlers, b.handlers[event.Type]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		// Call handlers in goroutines to avoid blocking
		go handler(event)
	}
}

// PublishSync sends an event and waits for all handlers to complete
func (b *EventBus) PublishSync(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.Type])+len(b.all))
	handlers = append(handlers, b.handlers[event.Type]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, handler := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			h(event)
		}(handler)
	}
	wg.Wait()
}

// Clear removes all handlers
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType][]Handler)
	b.all = nil
}
