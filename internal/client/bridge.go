// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ManuGH/pkclient/internal/bus"
	"github.com/ManuGH/pkclient/internal/log"
	"github.com/ManuGH/pkclient/internal/metrics"
	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/pk/event"
	"github.com/ManuGH/pkclient/internal/transport"
)

// bridge is the per-binding event pump. A session swaps bridges on every
// bind; a stale bridge's events are dropped by identity check.
type bridge struct {
	tid   transport.TransactionID
	sub   bus.Subscriber
	local chan event.Event
	stop  chan struct{}
	once  sync.Once

	progressLog rate.Sometimes
}

func newBridge(tid transport.TransactionID, sub bus.Subscriber) *bridge {
	return &bridge{
		tid:         tid,
		sub:         sub,
		local:       make(chan event.Event, 1),
		stop:        make(chan struct{}),
		progressLog: rate.Sometimes{First: 1, Interval: time.Second},
	}
}

func (b *bridge) close() {
	b.once.Do(func() {
		close(b.stop)
		_ = b.sub.Close()
	})
}

// post queues a client-side event for dispatch on the bridge goroutine.
func (b *bridge) post(ev event.Event) {
	select {
	case b.local <- ev:
	case <-b.stop:
	default:
	}
}

func (s *Session) runBridge(b *bridge) {
	for {
		select {
		case <-b.stop:
			return
		case msg, ok := <-b.sub.C():
			if !ok {
				s.streamLost(b)
				return
			}
			s.receive(b, msg)
		case ev := <-b.local:
			s.announce(b, ev)
		}
	}
}

func (s *Session) receive(b *bridge, msg bus.Message) {
	sig, ok := msg.(bus.Signal)
	if !ok {
		s.dropMalformed(b, fmt.Errorf("unexpected message type %T", msg))
		return
	}
	ev, err := event.Decode(sig)
	if err != nil {
		s.dropMalformed(b, err)
		return
	}
	metrics.RecordEvent(ev.Name())

	s.mu.Lock()
	if s.bridge != b {
		s.mu.Unlock()
		metrics.RecordEventDropped("stale")
		return
	}
	if s.finished {
		s.mu.Unlock()
		reason := "after_finished"
		if _, dup := ev.(event.Finished); dup {
			reason = "duplicate_finished"
		}
		metrics.RecordEventDropped(reason)
		s.logger.Debug().Str(log.FieldTID, b.tid.String()).Str(log.FieldEvent, ev.Name()).Str("reason", reason).Msg("event dropped")
		return
	}
	release := s.applyLocked(b, ev)
	s.mu.Unlock()

	dispatch(s.handlers.snapshot(), ev)
	if release != nil {
		release.release(nil)
	}
}

// applyLocked folds ev into the derived state. For the finished event it
// returns the latch to release once subscribers have seen it.
func (s *Session) applyLocked(b *bridge, ev event.Event) *latch {
	switch e := ev.(type) {
	case event.StatusChanged:
		s.status = e.Status
	case event.RequireRestart:
		s.restart = enum.MaxRestart(s.restart, e.Restart)
	case event.Package:
		if s.buffer.enabled || s.synchronous {
			s.buffer.append(e)
		}
	case event.ProgressChanged:
		s.progress = e
		b.progressLog.Do(func() {
			s.logger.Debug().
				Str(log.FieldTID, b.tid.String()).
				Uint32("percentage", e.Percentage).
				Uint32("remaining", e.Remaining).
				Msg("progress")
		})
	case event.AllowCancel:
		s.allowCancel = e.Allowed
	case event.CallerActiveChanged:
		s.callerActive = e.Active
	case event.ErrorCode:
		ec := e
		s.lastError = &ec
		s.logger.Warn().Str(log.FieldTID, b.tid.String()).Str("code", e.Code.String()).Str("details", e.Details).Msg("daemon reported error")
	case event.Finished:
		s.finished = true
		s.outcome = &ExitOutcome{Exit: e.Exit, Runtime: e.Runtime}
		role := enum.RoleUnknown
		if s.invocation != nil {
			role = s.invocation.Role
		}
		metrics.ActiveTransactions.Dec()
		metrics.RecordFinished(role.String(), e.Exit.String())
		s.logger.Info().
			Str(log.FieldTID, b.tid.String()).
			Str(log.FieldRole, role.String()).
			Str(log.FieldExit, e.Exit.String()).
			Str(log.FieldRestart, s.restart.String()).
			Int64(log.FieldRuntime, e.Runtime.Milliseconds()).
			Int(log.FieldPackages, s.buffer.len()).
			Msg("transaction finished")
		return s.done
	}
	return nil
}

// announce dispatches a client-side event if the state it describes still holds.
func (s *Session) announce(b *bridge, ev event.Event) {
	s.mu.Lock()
	current := s.bridge == b && !s.finished
	if sc, ok := ev.(event.StatusChanged); ok && s.status != sc.Status {
		current = false
	}
	s.mu.Unlock()
	if current {
		dispatch(s.handlers.snapshot(), ev)
	}
}

// streamLost ends every wait on a binding whose event stream the transport
// closed before the finished event. The binding stays until Reset.
func (s *Session) streamLost(b *bridge) {
	s.mu.Lock()
	var l *latch
	if s.bridge == b && !s.finished {
		l = s.done
	}
	s.mu.Unlock()
	s.logger.Warn().Str(log.FieldTID, b.tid.String()).Bool("waiters_released", l != nil).Msg("event stream closed by transport")
	if l != nil {
		l.release(fmt.Errorf("%w: event stream closed", ErrConnection))
	}
}

func (s *Session) dropMalformed(b *bridge, err error) {
	metrics.RecordEventDropped("malformed")
	s.logger.Warn().Err(err).Str(log.FieldTID, b.tid.String()).Msg("malformed event dropped")
}
