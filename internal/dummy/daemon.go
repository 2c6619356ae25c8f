// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package dummy is an in-process package daemon. It allocates transaction
// ids, answers role calls and queries, and publishes scripted events for
// each transaction on the bus.
package dummy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/pkclient/internal/bus"
	"github.com/ManuGH/pkclient/internal/log"
	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/pk/event"
	"github.com/ManuGH/pkclient/internal/transport"
)

// DefaultStep is the pause between two scripted events.
const DefaultStep = 20 * time.Millisecond

// Option configures a Daemon.
type Option func(*Daemon)

// WithStep sets the pause between scripted events.
func WithStep(d time.Duration) Option {
	return func(dm *Daemon) { dm.step = d }
}

// WithRequireAuth makes every mutating call fail with a policy refusal
// unless an agent granted it beforehand.
func WithRequireAuth(required bool) Option {
	return func(dm *Daemon) { dm.requireAuth = required }
}

// WithLogger sets the daemon logger.
func WithLogger(l zerolog.Logger) Option {
	return func(dm *Daemon) { dm.logger = l }
}

// WithCatalog replaces the package catalog.
func WithCatalog(pkgs []Package) Option {
	return func(dm *Daemon) { dm.catalog = pkgs }
}

// Daemon implements transport.ControlAuthority and transport.Caller.
type Daemon struct {
	bus         bus.Bus
	logger      zerolog.Logger
	step        time.Duration
	requireAuth bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	seq      int
	txs      map[transport.TransactionID]*txn
	catalog  []Package
	repos    []Repo
	trusted  map[string]bool
	accepted map[string]bool
	grants   int
	calls    map[string]int
	history  []event.Transaction
}

type txn struct {
	tid     transport.TransactionID
	created time.Time

	role        enum.Role
	subject     string
	status      enum.Status
	progress    event.ProgressChanged
	pkg         string
	allowCancel bool
	running     bool
	finished    bool
	stop        context.CancelFunc
}

// New creates a daemon publishing on b.
func New(b bus.Bus, opts ...Option) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		bus:      b,
		logger:   log.WithComponent("dummy"),
		step:     DefaultStep,
		ctx:      ctx,
		cancel:   cancel,
		txs:      make(map[transport.TransactionID]*txn),
		catalog:  defaultCatalog(),
		repos:    defaultRepos(),
		trusted:  make(map[string]bool),
		accepted: make(map[string]bool),
		calls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Close stops running transactions and waits for their goroutines.
func (d *Daemon) Close() error {
	d.cancel()
	d.wg.Wait()
	return nil
}

// Allocate hands out a fresh transaction id.
func (d *Daemon) Allocate(ctx context.Context) (transport.TransactionID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx.Err() != nil {
		return "", fmt.Errorf("dummy daemon is shut down")
	}
	d.seq++
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	tid := transport.TransactionID(fmt.Sprintf("/%d_%s_data", d.seq, suffix))
	d.txs[tid] = &txn{tid: tid, created: time.Now(), status: enum.StatusWait}
	d.logger.Debug().Str(log.FieldTID, tid.String()).Msg("transaction allocated")
	return tid, nil
}

// Calls reports how often method was called.
func (d *Daemon) Calls(method string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[method]
}

// Installed reports whether the named package is installed.
func (d *Daemon) Installed(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.catalog {
		if p.Name == name {
			return p.Installed
		}
	}
	return false
}

// Call answers a method on the transaction object tid.
func (d *Daemon) Call(ctx context.Context, tid transport.TransactionID, method string, args ...any) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[method]++

	t, ok := d.txs[tid]
	if !ok {
		return nil, transport.NewRemoteError(transport.ErrNameNoSuchTID, "%s doesn't exist\n", tid)
	}

	switch method {
	case transport.MethodGetStatus:
		return []any{t.status.String()}, nil
	case transport.MethodGetProgress:
		p := t.progress
		return []any{p.Percentage, p.Subpercentage, p.Elapsed, p.Remaining}, nil
	case transport.MethodGetRole:
		return []any{t.role.String(), t.subject}, nil
	case transport.MethodGetPackage:
		return []any{t.pkg}, nil
	case transport.MethodGetAllowCancel:
		return []any{t.allowCancel}, nil
	case transport.MethodIsCallerActive:
		return []any{true}, nil
	case transport.MethodCancel:
		return nil, d.cancelLocked(t)
	}

	role, ok := methodRoles[method]
	if !ok {
		return nil, transport.NewRemoteError(transport.ErrNameInputInvalid, "unknown method %s", method)
	}
	if t.role != enum.RoleUnknown {
		return nil, transport.NewRemoteError(transport.ErrNameInvalidState, "transaction is already %s", t.role)
	}
	req := request{tid: tid, role: role, args: args}
	p, err := d.planLocked(req)
	if err != nil {
		return nil, err
	}
	if role.Mutating() && d.requireAuth {
		if d.grants == 0 {
			return nil, transport.NewRemoteError(transport.ErrNameRefusedByPolicy, "%s auth_admin_keep", p.action)
		}
		d.grants--
	}

	runCtx, stop := context.WithCancel(d.ctx)
	t.role = role
	t.subject = p.subject
	t.running = true
	t.allowCancel = true
	t.stop = stop
	d.wg.Add(1)
	go d.run(runCtx, t, p)
	d.logger.Info().
		Str(log.FieldTID, tid.String()).
		Str(log.FieldRole, role.String()).
		Str(log.FieldMethod, method).
		Msg("transaction started")
	return nil, nil
}

func (d *Daemon) cancelLocked(t *txn) error {
	if !t.running || t.finished {
		return transport.NewRemoteError(transport.ErrNameNotRunning, "cancelling a non-running transaction")
	}
	if !t.allowCancel {
		return transport.NewRemoteError(transport.ErrNameInvalidState, "transaction %s cannot be cancelled now", t.tid)
	}
	t.stop()
	return nil
}

// grant records a privilege escalation for the next mutating call.
func (d *Daemon) grant() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grants++
}

// run publishes the scripted events of one transaction, then Finished.
func (d *Daemon) run(ctx context.Context, t *txn, p plan) {
	defer d.wg.Done()
	defer t.stop()
	started := time.Now()

	d.publish(t, event.AllowCancel{Allowed: true})
	cancelled := false
	total := len(p.events)
	for i, ev := range p.events {
		if !d.pause(ctx) {
			cancelled = true
			break
		}
		d.publish(t, ev)
		d.publish(t, event.ProgressChanged{
			Percentage: uint32((i + 1) * 100 / total),
			Elapsed:    uint32(time.Since(started) / time.Second),
		})
	}

	exit := p.exit
	if cancelled {
		exit = enum.ExitCancelled
		d.publish(t, event.ErrorCode{Code: enum.ErrorTransactionCancelled, Details: "The task was stopped successfully"})
	} else if p.commit != nil {
		d.mu.Lock()
		p.commit()
		d.mu.Unlock()
	}
	d.publish(t, event.AllowCancel{Allowed: false})
	d.publish(t, event.StatusChanged{Status: enum.StatusFinished})

	runtime := time.Since(started)
	d.mu.Lock()
	t.running = false
	t.finished = true
	d.history = append(d.history, event.Transaction{
		TID:       t.tid.String(),
		Timestamp: t.created.UTC().Format(time.RFC3339),
		Succeeded: exit == enum.ExitSuccess,
		Role:      t.role,
		Duration:  runtime.Truncate(time.Millisecond),
		Data:      p.subject,
	})
	d.mu.Unlock()

	d.publish(t, event.Finished{Exit: exit, Runtime: runtime})
	d.logger.Info().
		Str(log.FieldTID, t.tid.String()).
		Str(log.FieldRole, t.role.String()).
		Str(log.FieldExit, exit.String()).
		Int64(log.FieldRuntime, runtime.Milliseconds()).
		Msg("transaction finished")
}

func (d *Daemon) pause(ctx context.Context) bool {
	if d.step <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d.step)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// publish tracks the state queries report, then puts ev on the bus. A shut
// down daemon stops publishing.
func (d *Daemon) publish(t *txn, ev event.Event) {
	d.mu.Lock()
	switch e := ev.(type) {
	case event.StatusChanged:
		t.status = e.Status
	case event.ProgressChanged:
		t.progress = e
	case event.AllowCancel:
		t.allowCancel = e.Allowed
	case event.Package:
		t.pkg = e.ID
	}
	d.mu.Unlock()

	if err := d.bus.Publish(d.ctx, t.tid.String(), event.Encode(ev)); err != nil {
		d.logger.Debug().Err(err).Str(log.FieldTID, t.tid.String()).Str(log.FieldEvent, ev.Name()).Msg("publish failed")
	}
}

// Agent is a privilege authority backed by the daemon's policy.
type Agent struct {
	d     *Daemon
	grant bool

	mu       sync.Mutex
	requests []string
}

// Agent returns an authority that grants, or refuses, every escalation.
func (d *Daemon) Agent(grant bool) *Agent {
	return &Agent{d: d, grant: grant}
}

// Escalate implements transport.PrivilegeAuthority.
func (a *Agent) Escalate(ctx context.Context, description string) bool {
	a.mu.Lock()
	a.requests = append(a.requests, description)
	a.mu.Unlock()
	if ctx.Err() != nil || !a.grant {
		return false
	}
	a.d.grant()
	return true
}

// Requests returns the descriptions the agent was asked to authorize.
func (a *Agent) Requests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.requests...)
}

var (
	_ transport.ControlAuthority   = (*Daemon)(nil)
	_ transport.Caller             = (*Daemon)(nil)
	_ transport.PrivilegeAuthority = (*Agent)(nil)
)
