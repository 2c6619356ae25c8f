// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package client drives one package-management transaction at a time against
// the daemon: it allocates the transaction id, issues the role call (with a
// single privilege escalation retry for mutating roles), turns the daemon's
// signals into typed events and derived state, and can block the caller
// until the transaction finishes.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/pkclient/internal/bus"
	"github.com/ManuGH/pkclient/internal/log"
	"github.com/ManuGH/pkclient/internal/metrics"
	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/pk/event"
	"github.com/ManuGH/pkclient/internal/telemetry"
	"github.com/ManuGH/pkclient/internal/transport"
)

const tracerName = "pkclient.client"

// ExitOutcome is delivered once by the finished event.
type ExitOutcome struct {
	Exit    enum.Exit
	Runtime time.Duration
}

// Session owns at most one bound transaction between bind and reset.
type Session struct {
	control   transport.ControlAuthority
	caller    transport.Caller
	privilege transport.PrivilegeAuthority
	bus       bus.Bus
	logger    zerolog.Logger
	tracer    trace.Tracer
	monitor   bool

	mu           sync.Mutex
	tid          transport.TransactionID
	binding      bool // allocation in flight, tid not yet set
	finished     bool
	status       enum.Status
	restart      enum.Restart
	progress     event.ProgressChanged
	allowCancel  bool
	callerActive bool
	lastError    *event.ErrorCode
	outcome      *ExitOutcome
	invocation   *Invocation
	synchronous  bool
	buffer       packageBuffer
	bridge       *bridge
	done         *latch

	handlers handlerSet
}

// Option configures a Session.
type Option func(*Session)

// WithPrivilegeAuthority sets the agent asked to lift policy denials. Without
// one every denial is final.
func WithPrivilegeAuthority(p transport.PrivilegeAuthority) Option {
	return func(s *Session) { s.privilege = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Session) { s.tracer = t }
}

// WithSynchronous makes role calls block until the transaction finishes.
func WithSynchronous(enabled bool) Option {
	return func(s *Session) { s.synchronous = enabled }
}

// WithBuffer enables the package buffer from the start.
func WithBuffer() Option {
	return func(s *Session) { s.buffer.enable() }
}

// New returns an unbound session.
func New(control transport.ControlAuthority, caller transport.Caller, b bus.Bus, opts ...Option) *Session {
	s := &Session{
		control: control,
		caller:  caller,
		bus:     b,
		logger:  log.WithComponent("pkclient"),
		tracer:  telemetry.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewMonitor returns a session that can only observe a transaction another
// client created. Role calls fail with ErrAlreadyBound and Cancel fails.
func NewMonitor(caller transport.Caller, b bus.Bus, opts ...Option) *Session {
	s := New(nil, caller, b, opts...)
	s.monitor = true
	return s
}

// EnableBuffer turns on package accumulation. Calling it again is a no-op.
// It only affects transactions bound afterwards.
func (s *Session) EnableBuffer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.enable()
}

// SetSynchronous switches blocking mode for subsequent role calls.
func (s *Session) SetSynchronous(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synchronous = enabled
}

func (s *Session) TID() transport.TransactionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tid
}

// Role is the role of the cached invocation, RoleUnknown before the first call.
func (s *Session) Role() enum.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invocation == nil {
		return enum.RoleUnknown
	}
	return s.invocation.Role
}

// Invocation returns a copy of the cached invocation.
func (s *Session) Invocation() (Invocation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invocation == nil {
		return Invocation{}, false
	}
	return s.invocation.clone(), true
}

func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// LastStatus is the status last reported for the bound transaction.
func (s *Session) LastStatus() enum.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// RequireRestart is the worst restart observed for the bound transaction.
func (s *Session) RequireRestart() enum.Restart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restart
}

func (s *Session) LastProgress() event.ProgressChanged {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// LastError is the last error-code event of the bound transaction.
func (s *Session) LastError() (event.ErrorCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastError == nil {
		return event.ErrorCode{}, false
	}
	return *s.lastError, true
}

// Outcome is set once the finished event has been applied.
func (s *Session) Outcome() (ExitOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return ExitOutcome{}, false
	}
	return *s.outcome, true
}

// Packages returns the buffered package events in receipt order. It is
// empty unless the buffer was enabled.
func (s *Session) Packages() []event.Package {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.snapshot()
}

func (s *Session) Synchronous() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synchronous
}

func (s *Session) BufferEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.enabled
}

func (s *Session) IsMonitor() bool { return s.monitor }

// reserve claims the session for a new binding.
func (s *Session) reserve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tid != "" || s.binding {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, s.describeBindingLocked())
	}
	s.binding = true
	return nil
}

func (s *Session) unreserve() {
	s.mu.Lock()
	s.binding = false
	s.mu.Unlock()
}

func (s *Session) describeBindingLocked() string {
	if s.tid == "" {
		return "allocation in progress"
	}
	return "bound to " + s.tid.String()
}

// Attach binds the session to an existing transaction and starts receiving
// its events.
func (s *Session) Attach(ctx context.Context, tid transport.TransactionID) error {
	if tid == "" {
		return fmt.Errorf("%w: empty transaction id", ErrInvalidArgument)
	}
	if err := s.reserve(); err != nil {
		return err
	}
	return s.bind(ctx, tid)
}

// allocateAndBind asks the control authority for a fresh id and binds it.
func (s *Session) allocateAndBind(ctx context.Context) (transport.TransactionID, error) {
	if s.monitor {
		return "", fmt.Errorf("%w: monitor sessions cannot start transactions", ErrAlreadyBound)
	}
	if err := s.reserve(); err != nil {
		return "", err
	}
	tid, err := s.control.Allocate(ctx)
	if err != nil {
		s.unreserve()
		return "", fmt.Errorf("allocate transaction id: %w", err)
	}
	if err := s.bind(ctx, tid); err != nil {
		return "", err
	}
	return tid, nil
}

// bind completes a reservation. On failure nothing stays subscribed and the
// reservation is dropped.
func (s *Session) bind(ctx context.Context, tid transport.TransactionID) error {
	sub, err := s.bus.Subscribe(ctx, tid.String())
	if err != nil {
		s.unreserve()
		return fmt.Errorf("%w: %s: %v", ErrConnection, tid, err)
	}

	b := newBridge(tid, sub)
	s.mu.Lock()
	s.binding = false
	s.tid = tid
	s.finished = false
	s.status = enum.StatusUnknown
	s.restart = enum.RestartUnknown
	s.progress = event.ProgressChanged{}
	s.allowCancel = false
	s.callerActive = false
	s.lastError = nil
	s.outcome = nil
	s.bridge = b
	s.done = newLatch()
	s.mu.Unlock()

	metrics.ActiveTransactions.Inc()
	go s.runBridge(b)

	s.logger.Debug().Str(log.FieldTID, tid.String()).Bool("monitor", s.monitor).Msg("transaction bound")
	return nil
}

// Wait blocks until the bound transaction finishes or ctx ends. A ctx error
// detaches only this waiter; the transaction and its events carry on.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	l := s.done
	s.mu.Unlock()
	if l == nil {
		return ErrNoTransactionBound
	}
	select {
	case <-l.done():
		return l.result()
	case <-ctx.Done():
		return fmt.Errorf("%w: wait for completion: %w", ErrFailed, ctx.Err())
	}
}

// Cancel asks the daemon to stop the bound transaction. Nothing to cancel
// (unbound, or already finished) is success.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	tid, finished := s.tid, s.finished
	s.mu.Unlock()
	if tid == "" || finished {
		return nil
	}
	if s.monitor {
		return fmt.Errorf("%w: monitor sessions cannot cancel %s", ErrFailed, tid)
	}

	_, err := s.caller.Call(ctx, tid, transport.MethodCancel)
	if err == nil {
		s.logger.Info().Str(log.FieldTID, tid.String()).Msg("cancel requested")
		return nil
	}
	if transport.IsAlreadyFinished(err) {
		s.logger.Debug().Str(log.FieldTID, tid.String()).Str("reply", describe(err)).Msg("cancel on a stopped transaction")
		return nil
	}
	return normalize(err)
}

// Reset returns the session to its unbound state. An unfinished transaction
// is cancelled first; if that fails the session is left untouched.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	tid, finished, binding := s.tid, s.finished, s.binding
	s.mu.Unlock()
	if binding {
		return fmt.Errorf("%w: reset during allocation", ErrFailed)
	}
	if tid != "" && !finished && !s.monitor {
		if err := s.Cancel(ctx); err != nil {
			return fmt.Errorf("reset %s: %w", tid, err)
		}
	}

	s.mu.Lock()
	b, l, done := s.detachLocked()
	s.invocation = nil
	s.mu.Unlock()
	s.closeBinding(b, l, done)

	if tid != "" {
		s.logger.Debug().Str(log.FieldTID, tid.String()).Msg("session reset")
	}
	return nil
}

// detachLocked clears per-transaction state and hands back what must be
// torn down outside the lock, and whether the transaction had finished.
func (s *Session) detachLocked() (*bridge, *latch, bool) {
	b, l, finished := s.bridge, s.done, s.finished
	if s.tid != "" && !s.finished {
		metrics.ActiveTransactions.Dec()
	}
	s.tid = ""
	s.finished = false
	s.status = enum.StatusUnknown
	s.restart = enum.RestartUnknown
	s.progress = event.ProgressChanged{}
	s.allowCancel = false
	s.callerActive = false
	s.lastError = nil
	s.outcome = nil
	s.buffer.clear()
	s.bridge = nil
	s.done = nil
	return b, l, finished
}

// closeBinding never waits for the bridge goroutine: Reset may run inside an
// event handler on that goroutine.
func (s *Session) closeBinding(b *bridge, l *latch, finished bool) {
	if l != nil {
		var err error
		if !finished {
			err = fmt.Errorf("%w: transaction detached before completion", ErrFailed)
		}
		l.release(err)
	}
	if b != nil {
		b.close()
	}
}

// Close detaches without cancelling. Use Reset to cancel.
func (s *Session) Close() error {
	s.mu.Lock()
	b, l, done := s.detachLocked()
	s.mu.Unlock()
	s.closeBinding(b, l, done)
	return nil
}
