package queuedash

import (
	"sync"
)

// Emitter is a concrete EventSource with an id-keyed handler registry.
// Engine adapters publish into it and the multiplexer subscribes to it.
// Handlers run synchronously on the emitting goroutine.
type Emitter struct {
	name string

	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]EventHandler
}

// NewEmitter creates an emitter named after its queue.
func NewEmitter(name string) *Emitter {
	return &Emitter{
		name:     name,
		handlers: make(map[string]map[uint64]EventHandler),
	}
}

func (e *Emitter) Name() string {
	return e.name
}

// On registers a handler for one event name and returns its id.
func (e *Emitter) On(event string, h EventHandler) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID

	if e.handlers[event] == nil {
		e.handlers[event] = make(map[uint64]EventHandler)
	}
	e.handlers[event][id] = h

	return id
}

// Off removes exactly the registration identified by id. Removing an unknown
// id is a no-op.
func (e *Emitter) Off(event string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if hs, ok := e.handlers[event]; ok {
		delete(hs, id)
		if len(hs) == 0 {
			delete(e.handlers, event)
		}
	}
}

// Emit invokes every handler registered for the event.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.RLock()
	hs := make([]EventHandler, 0, len(e.handlers[event]))
	for _, h := range e.handlers[event] {
		hs = append(hs, h)
	}
	e.mu.RUnlock()

	for _, h := range hs {
		h(payload)
	}
}

// ListenerCount returns the number of handlers registered for one event.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[event])
}

// TotalListeners returns the number of handlers across all events.
func (e *Emitter) TotalListeners() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var n int
	for _, hs := range e.handlers {
		n += len(hs)
	}
	return n
}
