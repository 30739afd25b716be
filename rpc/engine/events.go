package engine

import (
	"encoding/json"
	"sync"
)

// EventKind names an observable engine event
type EventKind string

const (
	// EventRequest is emitted for every inbound request, before its handler runs
	EventRequest EventKind = "request"
	// EventResponse is emitted for every inbound response, matched or not
	EventResponse EventKind = "response"
	// EventDisconnect is emitted when an attached socket goes away
	EventDisconnect EventKind = "disconnect"
)

// Event describes one observed envelope or disconnect
type Event struct {
	Kind     EventKind
	ID       string
	Type     string
	Content  json.RawMessage
	Err      bool
	SocketID string
	Socket   any
	// Reason is set for EventDisconnect
	Reason error
}

// Listener observes engine events. Listeners are called synchronously on the
// reading goroutine of the socket and must not block.
type Listener func(Event)

type listenerEntry struct {
	fn Listener
}

// eventBus holds the passive listeners of an engine
type eventBus struct {
	mu        sync.RWMutex
	listeners map[EventKind][]*listenerEntry
}

// Subscribe registers a listener for kind and returns a function removing it
func (e *Engine) Subscribe(kind EventKind, l Listener) (unsubscribe func()) {
	entry := &listenerEntry{fn: l}

	e.events.mu.Lock()
	if e.events.listeners == nil {
		e.events.listeners = make(map[EventKind][]*listenerEntry)
	}
	e.events.listeners[kind] = append(e.events.listeners[kind], entry)
	e.events.mu.Unlock()

	return func() {
		e.events.mu.Lock()
		defer e.events.mu.Unlock()
		list := e.events.listeners[kind]
		for i, other := range list {
			if other == entry {
				// copy so that a running emit keeps its snapshot
				e.events.listeners[kind] = append(append([]*listenerEntry{}, list[:i]...), list[i+1:]...)
				return
			}
		}
	}
}

func (b *eventBus) emit(ev Event) {
	b.mu.RLock()
	list := b.listeners[ev.Kind]
	b.mu.RUnlock()

	for _, entry := range list {
		entry.fn(ev)
	}
}
