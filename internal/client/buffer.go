// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import "github.com/ManuGH/pkclient/internal/pk/event"

// packageBuffer accumulates package events in receipt order. It is guarded by
// the session mutex.
type packageBuffer struct {
	enabled bool
	items   []event.Package
}

func (b *packageBuffer) enable() { b.enabled = true }

func (b *packageBuffer) append(p event.Package) {
	b.items = append(b.items, p)
}

// snapshot copies the contents; nil when the buffer was never enabled.
func (b *packageBuffer) snapshot() []event.Package {
	if !b.enabled || len(b.items) == 0 {
		return nil
	}
	out := make([]event.Package, len(b.items))
	copy(out, b.items)
	return out
}

func (b *packageBuffer) clear() { b.items = nil }

func (b *packageBuffer) len() int { return len(b.items) }
