// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/pkclient/internal/bus"
	"github.com/ManuGH/pkclient/internal/metrics"
	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/pk/event"
	"github.com/ManuGH/pkclient/internal/transport"
)

func TestSearchNameSynchronousBufferedCollectsPackages(t *testing.T) {
	d := newFakeDaemon(t)
	want := []event.Package{
		{Info: enum.InfoAvailable, ID: "gnome-power-manager;2.6.19;i386;fedora", Summary: "Power manager"},
		{Info: enum.InfoInstalled, ID: "powertop;1.8;i386;fedora", Summary: "Power consumption monitor"},
		{Info: enum.InfoAvailable, ID: "kpowersave;0.7;i386;fedora", Summary: "KDE power"},
	}
	d.onCall = func(tid transport.TransactionID, method string) {
		if method != transport.MethodSearchName {
			return
		}
		events := []event.Event{event.StatusChanged{Status: enum.StatusQuery}}
		for _, p := range want {
			events = append(events, p)
		}
		events = append(events, event.Finished{Exit: enum.ExitSuccess, Runtime: 120 * time.Millisecond})
		d.emitLater(tid, 20*time.Millisecond, events...)
	}
	s := newTestSession(t, d, WithSynchronous(true), WithBuffer())

	require.NoError(t, s.SearchName(context.Background(), enum.FilterNone, "power"))

	assert.True(t, s.Finished(), "synchronous call returns only after completion")
	if diff := cmp.Diff(want, s.Packages()); diff != "" {
		t.Fatalf("buffered packages mismatch (-want +got):\n%s", diff)
	}
	out, ok := s.Outcome()
	require.True(t, ok)
	assert.Equal(t, ExitOutcome{Exit: enum.ExitSuccess, Runtime: 120 * time.Millisecond}, out)

	calls := d.callsTo(transport.MethodSearchName)
	require.Len(t, calls, 1)
	assert.Equal(t, []any{"none", "power"}, calls[0].Args)
}

func TestSynchronousWithoutBufferExposesNoPackages(t *testing.T) {
	d := newFakeDaemon(t)
	d.onCall = func(tid transport.TransactionID, method string) {
		d.emitLater(tid, 0,
			event.Package{Info: enum.InfoAvailable, ID: "a;1;x;r", Summary: "a"},
			event.Finished{Exit: enum.ExitSuccess})
	}
	s := newTestSession(t, d, WithSynchronous(true))

	require.NoError(t, s.Resolve(context.Background(), enum.FilterInstalled, "a"))
	assert.Empty(t, s.Packages())
	assert.False(t, s.BufferEnabled())
}

func TestEnableBufferIsIdempotent(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d)
	s.EnableBuffer()
	s.EnableBuffer()
	assert.True(t, s.BufferEnabled())
	assert.Empty(t, s.Packages())
}

func TestInstallPackagesDeniedOnceThenGranted(t *testing.T) {
	d := newFakeDaemon(t)
	d.script(transport.MethodInstallPackages, denied(), fakeReply{})
	agent := &fakeAgent{grant: true}
	s := newTestSession(t, d, WithPrivilegeAuthority(agent))

	require.NoError(t, s.InstallPackages(context.Background(), []string{"foo;1.0;x86;repo"}))

	assert.Len(t, d.callsTo(transport.MethodInstallPackages), 2)
	assert.Equal(t, []string{"org.freedesktop.packagekit.package-install auth_admin_keep"}, agent.descriptions)
	assert.Equal(t, enum.StatusWait, s.LastStatus())
}

func TestInstallPackagesDeniedTwiceFailsAuth(t *testing.T) {
	d := newFakeDaemon(t)
	d.script(transport.MethodInstallPackages, denied(), denied(), fakeReply{})
	agent := &fakeAgent{grant: true}
	s := newTestSession(t, d, WithPrivilegeAuthority(agent))

	err := s.InstallPackages(context.Background(), []string{"foo;1.0;x86;repo"})

	require.ErrorIs(t, err, ErrAuthFailed)
	assert.Len(t, d.callsTo(transport.MethodInstallPackages), 2, "exactly one retry")
	assert.Equal(t, 1, agent.escalations())
}

func TestDeniedEscalationIsNotRetried(t *testing.T) {
	d := newFakeDaemon(t)
	d.script(transport.MethodRefreshCache, denied())
	agent := &fakeAgent{grant: false}
	s := newTestSession(t, d, WithPrivilegeAuthority(agent))

	err := s.RefreshCache(context.Background(), true)

	require.ErrorIs(t, err, ErrAuthFailed)
	assert.Len(t, d.callsTo(transport.MethodRefreshCache), 1)
	assert.Equal(t, 1, agent.escalations())
}

func TestNoPrivilegeAuthorityMeansDenialIsFinal(t *testing.T) {
	d := newFakeDaemon(t)
	d.script(transport.MethodRemovePackages, denied())
	s := newTestSession(t, d)

	err := s.RemovePackages(context.Background(), []string{"foo;1.0;x86;repo"}, true, false)
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.Len(t, d.callsTo(transport.MethodRemovePackages), 1)
}

func TestRetryTransportErrorIsSurfacedNormalized(t *testing.T) {
	d := newFakeDaemon(t)
	d.script(transport.MethodUpdatePackages,
		denied(),
		fakeReply{err: transport.NewRemoteError("org.freedesktop.DBus.Error.NoReply", "daemon went away")},
		fakeReply{})
	s := newTestSession(t, d, WithPrivilegeAuthority(&fakeAgent{grant: true}))

	err := s.UpdatePackages(context.Background(), []string{"foo;1.0;x86;repo"})

	require.ErrorIs(t, err, ErrFailed)
	assert.NotErrorIs(t, err, ErrAuthFailed)
	assert.Contains(t, err.Error(), "daemon went away")
	assert.NotContains(t, err.Error(), "org.freedesktop.DBus")
	var re *transport.RemoteError
	assert.False(t, errors.As(err, &re), "transport identity must not leak")
	assert.Len(t, d.callsTo(transport.MethodUpdatePackages), 2)
}

func TestReadOnlyRoleIsNotAuthWrapped(t *testing.T) {
	d := newFakeDaemon(t)
	d.script(transport.MethodGetUpdates, denied())
	agent := &fakeAgent{grant: true}
	s := newTestSession(t, d, WithPrivilegeAuthority(agent))

	err := s.GetUpdates(context.Background(), enum.FilterNone)
	require.ErrorIs(t, err, ErrFailed)
	assert.Equal(t, 0, agent.escalations())
}

func TestResetWithFailingCancelLeavesStateUnchanged(t *testing.T) {
	d := newFakeDaemon(t)
	d.script(transport.MethodCancel, fakeReply{err: transport.NewRemoteError(transport.ErrNameDenied, "cannot cancel while committing")})
	s := newTestSession(t, d)

	require.NoError(t, s.InstallPackages(context.Background(), []string{"foo;1.0;x86;repo"}))
	tid := s.TID()
	inv, ok := s.Invocation()
	require.True(t, ok)

	err := s.Reset(context.Background())
	require.ErrorIs(t, err, ErrFailed)

	assert.Equal(t, tid, s.TID())
	got, ok := s.Invocation()
	require.True(t, ok)
	assert.Equal(t, inv, got)
	assert.Equal(t, 1, d.bus.Subscribers(tid.String()))
}

func TestResetCancelsAndClears(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d, WithBuffer())

	require.NoError(t, s.GetPackages(context.Background(), enum.FilterNone))
	tid := s.TID()
	d.emit(t, tid,
		event.Package{Info: enum.InfoInstalled, ID: "a;1;x;r", Summary: "a"},
		event.RequireRestart{Restart: enum.RestartSession})
	eventually(t, func() bool { return s.RequireRestart() == enum.RestartSession }, "restart applied")

	require.NoError(t, s.Reset(context.Background()))

	assert.Len(t, d.callsTo(transport.MethodCancel), 1)
	assert.Empty(t, s.TID())
	assert.Equal(t, enum.RoleUnknown, s.Role())
	assert.Equal(t, enum.StatusUnknown, s.LastStatus())
	assert.Equal(t, enum.RestartUnknown, s.RequireRestart())
	assert.Empty(t, s.Packages())
	assert.True(t, s.BufferEnabled(), "buffering is a setting and survives reset")
	eventually(t, func() bool { return d.bus.Subscribers(tid.String()) == 0 }, "bridge unsubscribed")

	require.ErrorIs(t, s.Requeue(context.Background()), ErrRoleUnknown)
}

func TestResetOnFinishedSessionSkipsCancel(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d)
	require.NoError(t, s.GetRepoList(context.Background(), enum.FilterNone))
	d.emit(t, s.TID(), event.Finished{Exit: enum.ExitSuccess})
	require.NoError(t, s.Wait(context.Background()))

	require.NoError(t, s.Reset(context.Background()))
	assert.Empty(t, d.callsTo(transport.MethodCancel))
}

func TestCancelWithNothingToCancelSucceeds(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d)

	require.NoError(t, s.Cancel(context.Background()), "unbound")
	assert.Empty(t, s.TID())

	require.NoError(t, s.SearchFile(context.Background(), enum.FilterNone, "/usr/bin/gpk"))
	d.emit(t, s.TID(), event.Finished{Exit: enum.ExitSuccess})
	require.NoError(t, s.Wait(context.Background()))
	tid := s.TID()

	require.NoError(t, s.Cancel(context.Background()), "already finished")
	require.NoError(t, s.Cancel(context.Background()))
	assert.Empty(t, d.callsTo(transport.MethodCancel))
	assert.Equal(t, tid, s.TID())
	assert.True(t, s.Finished())
}

func TestCancelOnStoppedTransactionReplyIsSuccess(t *testing.T) {
	d := newFakeDaemon(t)
	d.script(transport.MethodCancel, fakeReply{err: &transport.RemoteError{Name: "org.freedesktop.PackageKit.Transaction.Failed", Message: "cancelling a non-running transaction"}})
	s := newTestSession(t, d)
	require.NoError(t, s.SearchDetails(context.Background(), enum.FilterNone, "power"))

	require.NoError(t, s.Cancel(context.Background()))
}

func TestCancelStillCompletesThroughFinishedEvent(t *testing.T) {
	d := newFakeDaemon(t)
	d.onCall = func(tid transport.TransactionID, method string) {
		if method == transport.MethodCancel {
			d.emitLater(tid, 10*time.Millisecond, event.Finished{Exit: enum.ExitCancelled})
		}
	}
	s := newTestSession(t, d)
	require.NoError(t, s.UpdateSystem(context.Background()))

	waitErr := make(chan error, 1)
	go func() { waitErr <- s.Wait(context.Background()) }()
	require.NoError(t, s.Cancel(context.Background()))

	select {
	case err := <-waitErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter not released by the cancelled transaction's completion")
	}
	out, _ := s.Outcome()
	assert.Equal(t, enum.ExitCancelled, out.Exit)
}

func TestValidationRejectsBeforeAllocation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		call func(s *Session) error
		err  error
	}{
		{"get-depends invalid id", func(s *Session) error { return s.GetDepends(ctx, enum.FilterNone, "not-a-valid-id", false) }, ErrInvalidIdentifier},
		{"get-details empty section", func(s *Session) error { return s.GetDetails(ctx, "a;;x;r") }, ErrInvalidIdentifier},
		{"install empty list", func(s *Session) error { return s.InstallPackages(ctx, nil) }, ErrInvalidIdentifier},
		{"remove one bad id", func(s *Session) error {
			return s.RemovePackages(ctx, []string{"a;1;x;r", "b;2;x"}, false, false)
		}, ErrInvalidIdentifier},
		{"search empty term", func(s *Session) error { return s.SearchName(ctx, enum.FilterNone, "") }, ErrInvalidArgument},
		{"unknown filter bits", func(s *Session) error { return s.GetPackages(ctx, enum.ParseFilter("installed;sparkly")) }, ErrInvalidArgument},
		{"what-provides unknown kind", func(s *Session) error { return s.WhatProvides(ctx, enum.FilterNone, enum.ProvidesUnknown, "gstreamer") }, ErrInvalidArgument},
		{"signature unknown type", func(s *Session) error { return s.InstallSignature(ctx, enum.SigTypeUnknown, "BEEF", "a;1;x;r") }, ErrInvalidArgument},
		{"signature empty key", func(s *Session) error { return s.InstallSignature(ctx, enum.SigTypeGPG, "", "a;1;x;r") }, ErrInvalidArgument},
		{"rollback empty", func(s *Session) error { return s.Rollback(ctx, "") }, ErrInvalidArgument},
		{"eula empty", func(s *Session) error { return s.AcceptEula(ctx, "") }, ErrInvalidArgument},
		{"repo enable empty", func(s *Session) error { return s.RepoEnable(ctx, "", true) }, ErrInvalidArgument},
		{"repo set data empty parameter", func(s *Session) error { return s.RepoSetData(ctx, "fedora", "", "1") }, ErrInvalidArgument},
		{"install files none", func(s *Session) error { return s.InstallFiles(ctx, false, nil) }, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDaemon(t)
			s := newTestSession(t, d)

			err := tt.call(s)

			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, 0, d.allocated(), "no transaction id may be allocated")
			assert.Empty(t, s.TID())
			assert.Equal(t, enum.RoleUnknown, s.Role())
		})
	}
}

func TestSingleItemWrappersDoNotSplit(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d)

	err := s.InstallPackage(context.Background(), "a;1;x;r|b;2;x;r")
	require.ErrorIs(t, err, ErrInvalidIdentifier, "separator stays inside the single id")
	assert.Equal(t, 0, d.allocated())

	require.NoError(t, s.UpdatePackage(context.Background(), "a;1;x;r"))
	inv, ok := s.Invocation()
	require.True(t, ok)
	assert.Equal(t, []string{"a;1;x;r"}, inv.PackageIDs)
}

func TestInstallFilesResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.rpm")
	require.NoError(t, os.WriteFile(target, []byte("rpm"), 0o600))
	link := filepath.Join(dir, "link.rpm")
	require.NoError(t, os.Symlink(target, link))
	resolvedTarget, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)

	d := newFakeDaemon(t)
	s := newTestSession(t, d)
	require.NoError(t, s.InstallFile(context.Background(), true, link))

	calls := d.callsTo(transport.MethodInstallFiles)
	require.Len(t, calls, 1)
	assert.Equal(t, []any{true, []string{resolvedTarget}}, calls[0].Args)
	inv, _ := s.Invocation()
	assert.Equal(t, []string{resolvedTarget}, inv.Files)
}

func TestSecondRoleCallWhileBoundFails(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d)
	require.NoError(t, s.GetUpdates(context.Background(), enum.FilterNone))

	err := s.GetRepoList(context.Background(), enum.FilterNone)
	require.ErrorIs(t, err, ErrAlreadyBound)
	assert.Equal(t, 1, d.allocated())
	assert.Equal(t, enum.RoleGetUpdates, s.Role())
}

func TestAllocationFailurePropagates(t *testing.T) {
	d := newFakeDaemon(t)
	boom := errors.New("control authority unavailable")
	d.allocErr = boom
	s := newTestSession(t, d)

	err := s.RefreshCache(context.Background(), false)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, s.TID())

	d.allocErr = nil
	require.NoError(t, s.RefreshCache(context.Background(), false), "reservation released after failure")
}

type failingBus struct{ bus.Bus }

func (failingBus) Subscribe(context.Context, string) (bus.Subscriber, error) {
	return nil, errors.New("bus down")
}

func TestSubscriptionFailureIsConnectionError(t *testing.T) {
	d := newFakeDaemon(t)
	s := New(d, d, failingBus{d.bus})

	err := s.GetUpdates(context.Background(), enum.FilterNone)
	require.ErrorIs(t, err, ErrConnection)
	assert.Empty(t, s.TID())
	assert.Empty(t, d.callsTo(transport.MethodGetUpdates))
}

func TestRestartLevelNeverDecreases(t *testing.T) {
	tests := []struct {
		name   string
		levels []enum.Restart
		want   enum.Restart
	}{
		{"rising", []enum.Restart{enum.RestartNone, enum.RestartSession, enum.RestartSystem}, enum.RestartSystem},
		{"falling", []enum.Restart{enum.RestartSystem, enum.RestartSession}, enum.RestartSystem},
		{"unknown token does not lower", []enum.Restart{enum.RestartApplication, enum.RestartUnknown}, enum.RestartApplication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDaemon(t)
			s := newTestSession(t, d)
			require.NoError(t, s.UpdateSystem(context.Background()))

			var seen []enum.Restart
			unsubscribe := On(s, func(event.RequireRestart) { seen = append(seen, s.RequireRestart()) })
			defer unsubscribe()

			for _, lvl := range tt.levels {
				d.emit(t, s.TID(), event.RequireRestart{Restart: lvl, Details: "kernel"})
			}
			d.emit(t, s.TID(), event.Finished{Exit: enum.ExitSuccess})
			require.NoError(t, s.Wait(context.Background()))

			assert.Equal(t, tt.want, s.RequireRestart())
			for i := 1; i < len(seen); i++ {
				assert.GreaterOrEqual(t, seen[i], seen[i-1])
			}
		})
	}
}

func TestDuplicateFinishedIsNoop(t *testing.T) {
	d := newFakeDaemon(t)
	d.onCall = func(tid transport.TransactionID, method string) {
		d.emitLater(tid, 10*time.Millisecond,
			event.Finished{Exit: enum.ExitSuccess, Runtime: time.Second},
			event.Finished{Exit: enum.ExitFailed, Runtime: 2 * time.Second},
			event.StatusChanged{Status: enum.StatusRunning})
	}
	s := newTestSession(t, d, WithSynchronous(true))
	var finishedSeen atomic.Int32
	defer On(s, func(event.Finished) { finishedSeen.Add(1) })()

	before := testutil.ToFloat64(metrics.EventsDroppedTotal.WithLabelValues("duplicate_finished"))
	require.NoError(t, s.GetUpdates(context.Background(), enum.FilterNone))
	d.wg.Wait()
	eventually(t, func() bool {
		return testutil.ToFloat64(metrics.EventsDroppedTotal.WithLabelValues("duplicate_finished")) == before+1
	}, "duplicate counted")

	assert.Equal(t, int32(1), finishedSeen.Load())
	assert.True(t, s.Finished())
	out, _ := s.Outcome()
	assert.Equal(t, ExitOutcome{Exit: enum.ExitSuccess, Runtime: time.Second}, out)
	assert.Equal(t, enum.StatusWait, s.LastStatus(), "events after completion do not mutate state")
	require.NoError(t, s.Wait(context.Background()))
}

func TestSubscribersSeeFinalStateOnFinished(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d, WithBuffer())
	require.NoError(t, s.GetPackages(context.Background(), enum.FilterNone))

	type snapshot struct {
		finished bool
		outcome  bool
		packages int
	}
	got := make(chan snapshot, 1)
	defer On(s, func(event.Finished) {
		_, ok := s.Outcome()
		got <- snapshot{finished: s.Finished(), outcome: ok, packages: len(s.Packages())}
	})()

	d.emit(t, s.TID(),
		event.Package{Info: enum.InfoInstalled, ID: "a;1;x;r", Summary: "a"},
		event.Finished{Exit: enum.ExitSuccess})

	select {
	case snap := <-got:
		assert.Equal(t, snapshot{finished: true, outcome: true, packages: 1}, snap)
	case <-time.After(time.Second):
		t.Fatal("finished handler never ran")
	}
}

func TestWaitDeadlineDetachesOnlyTheWaiter(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d, WithSynchronous(true))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := s.SearchGroup(ctx, enum.FilterNone, enum.GroupSystem.String())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, ErrFailed)

	tid := s.TID()
	require.NotEmpty(t, tid)
	assert.Equal(t, 1, d.bus.Subscribers(tid.String()), "subscription survives the detached waiter")

	d.emit(t, tid, event.Finished{Exit: enum.ExitSuccess})
	require.NoError(t, s.Wait(context.Background()))
	assert.True(t, s.Finished())
}

func TestWaitWithoutTransaction(t *testing.T) {
	s := newTestSession(t, newFakeDaemon(t))
	require.ErrorIs(t, s.Wait(context.Background()), ErrNoTransactionBound)
}

func TestMalformedEventsAreDropped(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d)
	require.NoError(t, s.GetUpdates(context.Background(), enum.FilterNone))

	before := testutil.ToFloat64(metrics.EventsDroppedTotal.WithLabelValues("malformed"))
	d.publishRaw(t, s.TID(), bus.Signal{Name: transport.SignalStatusChanged, Body: []any{"running", "extra"}})
	d.publishRaw(t, s.TID(), "not a signal")
	d.emit(t, s.TID(), event.StatusChanged{Status: enum.StatusDownload})

	eventually(t, func() bool { return s.LastStatus() == enum.StatusDownload }, "valid event after malformed ones applied")
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.EventsDroppedTotal.WithLabelValues("malformed")))
}

func TestStatusWaitIsAnnounced(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d)
	statuses := make(chan enum.Status, 4)
	defer On(s, func(e event.StatusChanged) { statuses <- e.Status })()

	require.NoError(t, s.AcceptEula(context.Background(), "eula-fedora-1"))
	assert.Equal(t, enum.StatusWait, s.LastStatus())
	select {
	case st := <-statuses:
		assert.Equal(t, enum.StatusWait, st)
	case <-time.After(time.Second):
		t.Fatal("wait status not announced")
	}
}

func TestDerivedStateFromEvents(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d)
	require.NoError(t, s.RepoEnable(context.Background(), "fedora-debuginfo", true))

	d.emit(t, s.TID(),
		event.ProgressChanged{Percentage: 40, Subpercentage: 5, Elapsed: 2, Remaining: 3},
		event.ErrorCode{Code: enum.ErrorRepoNotFound, Details: "no such repo"},
		event.Finished{Exit: enum.ExitFailed})
	require.NoError(t, s.Wait(context.Background()))

	assert.Equal(t, event.ProgressChanged{Percentage: 40, Subpercentage: 5, Elapsed: 2, Remaining: 3}, s.LastProgress())
	ec, ok := s.LastError()
	require.True(t, ok)
	assert.Equal(t, enum.ErrorRepoNotFound, ec.Code)
	out, _ := s.Outcome()
	assert.Equal(t, enum.ExitFailed, out.Exit)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d)
	var n atomic.Int32
	unsubscribe := s.Subscribe(func(event.Event) { n.Add(1) })
	unsubscribe()
	unsubscribe()

	require.NoError(t, s.GetUpdates(context.Background(), enum.FilterNone))
	d.emit(t, s.TID(), event.Finished{Exit: enum.ExitSuccess})
	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, int32(0), n.Load())
}

func TestHandlerMayResetTheSession(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d)
	reset := make(chan error, 1)
	defer On(s, func(event.Finished) { reset <- s.Reset(context.Background()) })()

	require.NoError(t, s.GetUpdates(context.Background(), enum.FilterNone))
	tid := s.TID()
	d.emit(t, tid, event.Finished{Exit: enum.ExitSuccess})

	select {
	case err := <-reset:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reset from handler deadlocked")
	}
	assert.Empty(t, s.TID())
	eventually(t, func() bool { return d.bus.Subscribers(tid.String()) == 0 }, "unsubscribed")
}

func TestMonitorSessionObservesOnly(t *testing.T) {
	d := newFakeDaemon(t)
	owner := newTestSession(t, d)
	require.NoError(t, owner.InstallPackages(context.Background(), []string{"foo;1.0;x86;repo"}))
	tid := owner.TID()

	mon := NewMonitor(d, d.bus, WithLogger(owner.logger))
	t.Cleanup(func() { _ = mon.Close() })
	require.True(t, mon.IsMonitor())
	require.NoError(t, mon.Attach(context.Background(), tid))
	require.ErrorIs(t, mon.Attach(context.Background(), tid), ErrAlreadyBound)

	require.ErrorIs(t, mon.GetUpdates(context.Background(), enum.FilterNone), ErrAlreadyBound)
	require.ErrorIs(t, mon.Cancel(context.Background()), ErrFailed)

	d.emit(t, tid, event.StatusChanged{Status: enum.StatusInstall})
	eventually(t, func() bool { return mon.LastStatus() == enum.StatusInstall }, "monitor receives events")
	eventually(t, func() bool { return owner.LastStatus() == enum.StatusInstall }, "owner still receives events")

	require.NoError(t, mon.Reset(context.Background()))
	assert.Empty(t, d.callsTo(transport.MethodCancel), "monitor reset never cancels")
	eventually(t, func() bool { return d.bus.Subscribers(tid.String()) == 1 }, "only the owner stays subscribed")
}

func TestClosedEventStreamEndsSynchronousCall(t *testing.T) {
	d := newFakeDaemon(t)
	eb := &endingBus{Bus: d.bus}
	d.onCall = func(transport.TransactionID, string) { eb.endAll() }
	s := New(d, d, eb, WithLogger(zerolog.Nop()), WithSynchronous(true))
	t.Cleanup(func() { _ = s.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.SearchName(ctx, enum.FilterNone, "vim")
	require.ErrorIs(t, err, ErrConnection)
	require.NoError(t, ctx.Err(), "returned before the caller's deadline")

	assert.False(t, s.Finished())
	assert.NotEmpty(t, s.TID(), "binding kept until reset")
	require.ErrorIs(t, s.Wait(context.Background()), ErrConnection, "later waiters see the same result")
	require.NoError(t, s.Reset(context.Background()))
	assert.Empty(t, s.TID())
}

func TestClosedEventStreamAfterFinishedKeepsOutcome(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d, WithSynchronous(true))
	d.onCall = func(tid transport.TransactionID, _ string) {
		d.emitLater(tid, 0, event.Finished{Exit: enum.ExitSuccess})
	}
	require.NoError(t, s.GetUpdates(context.Background(), enum.FilterNone))

	s.mu.Lock()
	b := s.bridge
	s.mu.Unlock()
	s.streamLost(b)
	require.NoError(t, s.Wait(context.Background()))
}

func TestResetBeforeInvocationIsCachedFailsTheCall(t *testing.T) {
	d := newFakeDaemon(t)
	var s *Session
	var resetErr error
	tr := hookTracer{onBind: func() { resetErr = s.Reset(context.Background()) }}
	s = newTestSession(t, d, WithTracer(tr))

	err := s.InstallPackages(context.Background(), []string{"foo;1.0;x86;repo"})
	require.ErrorIs(t, err, ErrFailed)
	require.NoError(t, resetErr)

	_, cached := s.Invocation()
	assert.False(t, cached, "reset invocation is not restored")
	assert.Equal(t, enum.RoleUnknown, s.Role())
	assert.Empty(t, s.TID())
	assert.Empty(t, d.callsTo(transport.MethodInstallPackages), "call never issued")
	require.ErrorIs(t, s.Requeue(context.Background()), ErrRoleUnknown)
}
