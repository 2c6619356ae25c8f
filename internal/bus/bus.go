// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus is the event transport between the daemon and its clients.
// Each transaction publishes on its own topic, named after the transaction id.
package bus

import "context"

// Message is an opaque event payload. Transaction events travel as Signal.
type Message interface{}

// Signal is one protocol event as the daemon emits it: a name and the
// ordered, typed fields of that event.
type Signal struct {
	Name string `cbor:"1,keyasint"`
	Body []any  `cbor:"2,keyasint"`
}

// Subscriber is a live subscription to one topic.
type Subscriber interface {
	// C returns a read-only message channel.
	C() <-chan Message
	// Close unsubscribes. Messages already queued may still be delivered.
	Close() error
}

// Bus is the event transport abstraction.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}
