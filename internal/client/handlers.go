// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"sync"

	"github.com/ManuGH/pkclient/internal/pk/event"
)

// Handler receives every event of the bound transaction on the session's
// bridge goroutine, in receipt order. Handlers may call back into the session.
type Handler func(event.Event)

type handlerEntry struct {
	id uint64
	fn Handler
}

type handlerSet struct {
	mu      sync.Mutex
	next    uint64
	entries []handlerEntry
}

func (h *handlerSet) add(fn Handler) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.entries = append(h.entries, handlerEntry{id: h.next, fn: fn})
	return h.next
}

func (h *handlerSet) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.entries {
		if e.id == id {
			h.entries = append(h.entries[:i:i], h.entries[i+1:]...)
			return
		}
	}
}

func (h *handlerSet) snapshot() []Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Handler, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.fn
	}
	return out
}

// Subscribe registers fn for all events until the returned func is called.
func (s *Session) Subscribe(fn Handler) (unsubscribe func()) {
	id := s.handlers.add(fn)
	var once sync.Once
	return func() { once.Do(func() { s.handlers.remove(id) }) }
}

// On registers fn for events of type E only.
//
//	unsubscribe := client.On(s, func(p event.Package) { ... })
func On[E event.Event](s *Session, fn func(E)) (unsubscribe func()) {
	return s.Subscribe(func(ev event.Event) {
		if e, ok := ev.(E); ok {
			fn(e)
		}
	})
}

func dispatch(handlers []Handler, ev event.Event) {
	for _, fn := range handlers {
		fn(ev)
	}
}
