// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import "sync"

// latch is released once per binding: by the finished event, or by a detach
// that abandons the transaction. Later releases are no-ops.
type latch struct {
	ch   chan struct{}
	once sync.Once
	err  error
}

func newLatch() *latch {
	return &latch{ch: make(chan struct{})}
}

// release wakes every waiter with err. It reports whether this call did it.
func (l *latch) release(err error) bool {
	released := false
	l.once.Do(func() {
		l.err = err
		close(l.ch)
		released = true
	})
	return released
}

func (l *latch) done() <-chan struct{} { return l.ch }

// result is valid once done is closed.
func (l *latch) result() error { return l.err }
