// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ManuGH/pkclient/internal/bus"
	"github.com/ManuGH/pkclient/internal/pk/event"
	"github.com/ManuGH/pkclient/internal/telemetry"
	"github.com/ManuGH/pkclient/internal/transport"
)

type fakeCall struct {
	TID    transport.TransactionID
	Method string
	Args   []any
}

type fakeReply struct {
	values []any
	err    error
}

// fakeDaemon allocates ids, records calls, answers from per-method scripts
// and lets a hook publish events for the transaction.
type fakeDaemon struct {
	bus *bus.MemoryBus

	mu          sync.Mutex
	allocations int
	allocErr    error
	calls       []fakeCall
	replies     map[string][]fakeReply
	onCall      func(tid transport.TransactionID, method string)

	wg sync.WaitGroup
}

func newFakeDaemon(t *testing.T) *fakeDaemon {
	d := &fakeDaemon{bus: bus.NewMemoryBus(), replies: map[string][]fakeReply{}}
	t.Cleanup(d.wg.Wait)
	return d
}

func (d *fakeDaemon) Allocate(context.Context) (transport.TransactionID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.allocErr != nil {
		return "", d.allocErr
	}
	d.allocations++
	return transport.TransactionID(fmt.Sprintf("/%d_test_data", d.allocations)), nil
}

func (d *fakeDaemon) Call(_ context.Context, tid transport.TransactionID, method string, args ...any) ([]any, error) {
	d.mu.Lock()
	d.calls = append(d.calls, fakeCall{TID: tid, Method: method, Args: args})
	var r fakeReply
	if q := d.replies[method]; len(q) > 0 {
		r = q[0]
		d.replies[method] = q[1:]
	}
	hook := d.onCall
	d.mu.Unlock()

	if r.err == nil && hook != nil {
		hook(tid, method)
	}
	return r.values, r.err
}

func (d *fakeDaemon) script(method string, replies ...fakeReply) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replies[method] = append(d.replies[method], replies...)
}

func (d *fakeDaemon) callsTo(method string) []fakeCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []fakeCall
	for _, c := range d.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (d *fakeDaemon) allocated() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocations
}

func (d *fakeDaemon) emit(t *testing.T, tid transport.TransactionID, events ...event.Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, d.bus.Publish(context.Background(), tid.String(), event.Encode(ev)))
	}
}

func (d *fakeDaemon) publishRaw(t *testing.T, tid transport.TransactionID, msg bus.Message) {
	t.Helper()
	require.NoError(t, d.bus.Publish(context.Background(), tid.String(), msg))
}

// emitLater publishes events from a goroutine after the call has returned.
func (d *fakeDaemon) emitLater(tid transport.TransactionID, delay time.Duration, events ...event.Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		time.Sleep(delay)
		for _, ev := range events {
			_ = d.bus.Publish(context.Background(), tid.String(), event.Encode(ev))
		}
	}()
}

type fakeAgent struct {
	mu           sync.Mutex
	grant        bool
	descriptions []string
}

func (a *fakeAgent) Escalate(_ context.Context, description string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.descriptions = append(a.descriptions, description)
	return a.grant
}

func (a *fakeAgent) escalations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.descriptions)
}

func newTestSession(t *testing.T, d *fakeDaemon, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	s := New(d, d, d.bus, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// eventually waits for cond, failing the test after a second.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond, msg)
}

func denied() fakeReply {
	return fakeReply{err: transport.NewRemoteError(transport.ErrNameRefusedByPolicy, "org.freedesktop.packagekit.package-install auth_admin_keep")}
}

// endingSubscriber hands out a stream the test can end before Finished.
type endingSubscriber struct {
	ch   chan bus.Message
	once sync.Once
}

func (e *endingSubscriber) C() <-chan bus.Message { return e.ch }
func (e *endingSubscriber) Close() error          { return nil }
func (e *endingSubscriber) end()                  { e.once.Do(func() { close(e.ch) }) }

// endingBus serves endingSubscribers and publishes nowhere.
type endingBus struct {
	bus.Bus

	mu   sync.Mutex
	subs []*endingSubscriber
}

func (b *endingBus) Subscribe(context.Context, string) (bus.Subscriber, error) {
	sub := &endingSubscriber{ch: make(chan bus.Message)}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub, nil
}

func (b *endingBus) endAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		sub.end()
	}
}

// hookTracer calls onBind when a span records the bound transaction id,
// which happens after binding and before the invocation is cached.
type hookTracer struct {
	noop.Tracer
	onBind func()
}

func (tr hookTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, span := tr.Tracer.Start(ctx, name, opts...)
	return ctx, hookSpan{Span: span, onBind: tr.onBind}
}

type hookSpan struct {
	trace.Span
	onBind func()
}

func (sp hookSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		if string(a.Key) == telemetry.TransactionIDKey {
			sp.onBind()
		}
	}
	sp.Span.SetAttributes(kv...)
}
