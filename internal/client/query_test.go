// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/pk/event"
	"github.com/ManuGH/pkclient/internal/transport"
)

func TestQueriesNeedABoundTransaction(t *testing.T) {
	d := newFakeDaemon(t)
	s := newTestSession(t, d)
	ctx := context.Background()

	_, err := s.Status(ctx)
	require.ErrorIs(t, err, ErrNoTransactionBound)
	_, err = s.Progress(ctx)
	require.ErrorIs(t, err, ErrNoTransactionBound)
	_, _, err = s.RoleOf(ctx)
	require.ErrorIs(t, err, ErrNoTransactionBound)
	_, err = s.AllowCancel(ctx)
	require.ErrorIs(t, err, ErrNoTransactionBound)
	_, err = s.IsCallerActive(ctx)
	require.ErrorIs(t, err, ErrNoTransactionBound)
	_, err = s.Package(ctx)
	require.ErrorIs(t, err, ErrNoTransactionBound)
	assert.Empty(t, d.calls)
}

func TestQueriesReadDaemonReplies(t *testing.T) {
	d := newFakeDaemon(t)
	d.script(transport.MethodGetStatus, fakeReply{values: []any{"download"}})
	d.script(transport.MethodGetProgress, fakeReply{values: []any{uint64(30), uint64(60), uint32(4), 12}})
	d.script(transport.MethodGetAllowCancel, fakeReply{values: []any{true}})
	d.script(transport.MethodIsCallerActive, fakeReply{values: []any{false}})
	d.script(transport.MethodGetPackage, fakeReply{values: []any{"foo;1.0;x86;repo"}})
	s := newTestSession(t, d)
	ctx := context.Background()
	require.NoError(t, s.UpdatePackages(ctx, []string{"foo;1.0;x86;repo"}))

	pkg, err := s.Package(ctx)
	require.NoError(t, err)
	assert.Equal(t, "foo;1.0;x86;repo", pkg)

	status, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, enum.StatusDownload, status)

	progress, err := s.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, event.ProgressChanged{Percentage: 30, Subpercentage: 60, Elapsed: 4, Remaining: 12}, progress)

	allow, err := s.AllowCancel(ctx)
	require.NoError(t, err)
	assert.True(t, allow)

	active, err := s.IsCallerActive(ctx)
	require.NoError(t, err)
	assert.False(t, active)

	role, subject, err := s.RoleOf(ctx)
	require.NoError(t, err)
	assert.Equal(t, enum.RoleUpdatePackages, role)
	assert.Equal(t, "foo;1.0;x86;repo", subject)
	assert.Empty(t, d.callsTo(transport.MethodGetRole), "known role answered locally")
}

func TestRoleOfAsksDaemonForAttachedTransaction(t *testing.T) {
	d := newFakeDaemon(t)
	d.script(transport.MethodGetRole, fakeReply{values: []any{"install-packages", "foo;1.0;x86;repo"}})
	mon := NewMonitor(d, d.bus)
	t.Cleanup(func() { _ = mon.Close() })
	require.NoError(t, mon.Attach(context.Background(), "/99_other_data"))

	role, subject, err := mon.RoleOf(context.Background())
	require.NoError(t, err)
	assert.Equal(t, enum.RoleInstallPackages, role)
	assert.Equal(t, "foo;1.0;x86;repo", subject)
}

func TestQueryRejectsMalformedReplies(t *testing.T) {
	d := newFakeDaemon(t)
	d.script(transport.MethodGetStatus, fakeReply{values: []any{42}})
	d.script(transport.MethodGetProgress, fakeReply{values: []any{1, 2}})
	d.script(transport.MethodGetAllowCancel, fakeReply{values: []any{"yes"}})
	d.script(transport.MethodIsCallerActive, fakeReply{err: transport.NewRemoteError(transport.ErrNameNoSuchTID, "gone")})
	d.script(transport.MethodGetPackage, fakeReply{values: []any{[]string{"foo;1.0;x86;repo"}}})
	s := newTestSession(t, d)
	ctx := context.Background()
	require.NoError(t, s.GetUpdates(ctx, enum.FilterNone))

	_, err := s.Package(ctx)
	require.ErrorIs(t, err, ErrFailed)
	_, err = s.Status(ctx)
	require.ErrorIs(t, err, ErrFailed)
	_, err = s.Progress(ctx)
	require.ErrorIs(t, err, ErrFailed)
	_, err = s.AllowCancel(ctx)
	require.ErrorIs(t, err, ErrFailed)
	_, err = s.IsCallerActive(ctx)
	require.ErrorIs(t, err, ErrFailed)
	assert.NotContains(t, err.Error(), transport.ErrNameNoSuchTID)
}

func TestInvocationSubject(t *testing.T) {
	tests := []struct {
		name string
		inv  Invocation
		want string
	}{
		{"search term", Invocation{Role: enum.RoleSearchName, Search: "vim"}, "vim"},
		{"package list", Invocation{Role: enum.RoleInstallPackages, PackageIDs: []string{"a;1;x;r", "b;1;x;r"}}, "a;1;x;r|b;1;x;r"},
		{"files", Invocation{Role: enum.RoleInstallFiles, Files: []string{"/tmp/a.rpm", "/tmp/b.rpm"}}, "/tmp/a.rpm|/tmp/b.rpm"},
		{"signing key over package", Invocation{Role: enum.RoleInstallSignature, KeyID: "BEEFCAFE", PackageID: "a;1;x;r"}, "BEEFCAFE"},
		{"repo", Invocation{Role: enum.RoleRepoEnable, RepoID: "fedora"}, "fedora"},
		{"nothing", Invocation{Role: enum.RoleUpdateSystem}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.inv.Subject())
		})
	}
}
