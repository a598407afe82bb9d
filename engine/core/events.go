package core

import "sync"

// EventContext is the payload handed to listeners. Data depends on the code.
type EventContext struct {
	Data any
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode uint16

const (
	// Stops the engine loop at the end of the current frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// A scene became active.
	/* Context usage:
	 * handle := data.Data.(resources.Handle)
	 */
	EVENT_CODE_SCENE_LOADED SystemEventCode = 0x02

	// An asset could not be resolved from the pack.
	/* Context usage:
	 * handle := data.Data.(resources.Handle)
	 */
	EVENT_CODE_ASSET_UNAVAILABLE SystemEventCode = 0x03

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender any, listener any, data EventContext) bool

type registeredEvent struct {
	listener any
	callback FnOnEvent
}

// EventBus dispatches events synchronously to the listeners of a code, in
// registration order.
type EventBus struct {
	mu         sync.RWMutex
	registered map[SystemEventCode][]registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{registered: make(map[SystemEventCode][]registeredEvent)}
}

/**
 * Register to listen for when events are sent with the provided code. A
 * listener can only register once per code; duplicates return false.
 * @param listener A listener instance. Can be nil.
 */
func (b *EventBus) Register(code SystemEventCode, listener any, onEvent FnOnEvent) bool {
	if onEvent == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	b.registered[code] = append(b.registered[code], registeredEvent{listener: listener, callback: onEvent})
	return true
}

// Unregister removes the listener from code. Returns false if it was not registered.
func (b *EventBus) Unregister(code SystemEventCode, listener any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener {
			b.registered[code] = append(events[:i:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 * @returns true if handled, otherwise false.
 */
func (b *EventBus) Fire(code SystemEventCode, sender any, context EventContext) bool {
	b.mu.RLock()
	events := b.registered[code]
	b.mu.RUnlock()
	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}

// Clear drops every registration.
func (b *EventBus) Clear() {
	b.mu.Lock()
	b.registered = make(map[SystemEventCode][]registeredEvent)
	b.mu.Unlock()
}
