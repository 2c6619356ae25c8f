// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/pkclient/internal/log"
	"github.com/ManuGH/pkclient/internal/metrics"
	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/pk/event"
	"github.com/ManuGH/pkclient/internal/pk/packageid"
	"github.com/ManuGH/pkclient/internal/telemetry"
)

// splitSingle keeps the wrappers' historic split limit of one: the input is
// always a single opaque item, separators included.
func splitSingle(s string) []string {
	return strings.SplitN(s, packageid.ListSeparator, 1)
}

// invoke runs one role call: validate, allocate and bind, cache, issue, then
// block if synchronous.
func (s *Session) invoke(ctx context.Context, inv Invocation) error {
	inv = inv.clone()
	role := inv.Role
	spec, ok := roleSpecs[role]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoleUnknown, role)
	}
	if err := spec.check(inv); err != nil {
		metrics.RecordValidationReject(role.String())
		return err
	}

	synchronous := s.Synchronous()
	ctx, span := s.tracer.Start(ctx, "pkclient."+spec.method,
		trace.WithAttributes(telemetry.RoleAttributes(role.String(), spec.method, role.Mutating(), synchronous)...))
	defer span.End()

	tid, err := s.allocateAndBind(ctx)
	if err != nil {
		failSpan(span, "bind", err)
		return err
	}
	span.SetAttributes(telemetry.TransactionAttributes(tid.String())...)
	ctx = log.ContextWithTID(ctx, tid.String())
	logger := log.WithContext(ctx, s.logger).With().Str(log.FieldRole, role.String()).Logger()

	cached := inv
	s.mu.Lock()
	if s.tid != tid {
		s.mu.Unlock()
		err := fmt.Errorf("%w: %s was detached before the call was issued", ErrFailed, tid)
		failSpan(span, "bind", err)
		return err
	}
	s.invocation = &cached
	s.mu.Unlock()

	args := spec.args(inv)
	call := func(ctx context.Context) error {
		_, err := s.caller.Call(ctx, tid, spec.method, args...)
		return err
	}
	attempts := 1
	if role.Mutating() {
		attempts, err = s.authorize(ctx, tid, call)
	} else {
		err = normalize(call(ctx))
	}
	span.SetAttributes(telemetry.AttemptsAttribute(attempts))
	metrics.RecordStarted(role.String(), err)
	if err != nil {
		failSpan(span, "call", err)
		logger.Warn().Err(err).Str(log.FieldMethod, spec.method).Int(log.FieldAttempt, attempts).Msg("role call failed")
		return err
	}
	logger.Debug().Str(log.FieldMethod, spec.method).Int(log.FieldAttempt, attempts).Msg("role call accepted")

	s.mu.Lock()
	finished := s.finished
	announce := !finished && s.status == enum.StatusUnknown
	if announce {
		s.status = enum.StatusWait
	}
	b := s.bridge
	s.mu.Unlock()
	if announce && b != nil {
		b.post(event.StatusChanged{Status: enum.StatusWait})
	}

	if !synchronous || finished {
		return nil
	}
	if err := s.Wait(ctx); err != nil {
		failSpan(span, "wait", err)
		return err
	}
	if out, ok := s.Outcome(); ok {
		span.SetAttributes(telemetry.ExitAttribute(out.Exit.String()))
	}
	return nil
}

func failSpan(span trace.Span, stage string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	span.SetAttributes(telemetry.ErrorAttributes(stage)...)
}

func (s *Session) SearchName(ctx context.Context, filter enum.Filter, search string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleSearchName, Filter: filter, Search: search})
}

func (s *Session) SearchDetails(ctx context.Context, filter enum.Filter, search string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleSearchDetails, Filter: filter, Search: search})
}

// SearchGroup searches by group token, e.g. enum.GroupSystem.String().
func (s *Session) SearchGroup(ctx context.Context, filter enum.Filter, group string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleSearchGroup, Filter: filter, Search: group})
}

func (s *Session) SearchFile(ctx context.Context, filter enum.Filter, search string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleSearchFile, Filter: filter, Search: search})
}

func (s *Session) GetDepends(ctx context.Context, filter enum.Filter, packageID string, recursive bool) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleGetDepends, Filter: filter, PackageID: packageID, Recursive: recursive})
}

func (s *Session) GetRequires(ctx context.Context, filter enum.Filter, packageID string, recursive bool) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleGetRequires, Filter: filter, PackageID: packageID, Recursive: recursive})
}

func (s *Session) GetDetails(ctx context.Context, packageID string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleGetDetails, PackageID: packageID})
}

func (s *Session) GetFiles(ctx context.Context, packageID string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleGetFiles, PackageID: packageID})
}

func (s *Session) GetUpdateDetail(ctx context.Context, packageID string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleGetUpdateDetail, PackageID: packageID})
}

func (s *Session) GetPackages(ctx context.Context, filter enum.Filter) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleGetPackages, Filter: filter})
}

func (s *Session) GetUpdates(ctx context.Context, filter enum.Filter) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleGetUpdates, Filter: filter})
}

func (s *Session) GetRepoList(ctx context.Context, filter enum.Filter) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleGetRepoList, Filter: filter})
}

// GetOldTransactions asks for the last count transactions; zero means all.
func (s *Session) GetOldTransactions(ctx context.Context, count uint32) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleGetOldTransactions, Count: count})
}

// Resolve looks up packages by name.
func (s *Session) Resolve(ctx context.Context, filter enum.Filter, name string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleResolve, Filter: filter, Search: name})
}

func (s *Session) WhatProvides(ctx context.Context, filter enum.Filter, provides enum.Provides, search string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleWhatProvides, Filter: filter, Provides: provides, Search: search})
}

// Rollback reverts the system to before transaction priorTID.
func (s *Session) Rollback(ctx context.Context, priorTID string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleRollback, RollbackID: priorTID})
}

func (s *Session) InstallPackages(ctx context.Context, packageIDs []string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleInstallPackages, PackageIDs: packageIDs})
}

// InstallPackage installs a single package. The argument is never split.
func (s *Session) InstallPackage(ctx context.Context, packageID string) error {
	return s.InstallPackages(ctx, splitSingle(packageID))
}

func (s *Session) UpdatePackages(ctx context.Context, packageIDs []string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleUpdatePackages, PackageIDs: packageIDs})
}

func (s *Session) UpdatePackage(ctx context.Context, packageID string) error {
	return s.UpdatePackages(ctx, splitSingle(packageID))
}

func (s *Session) RemovePackages(ctx context.Context, packageIDs []string, allowDeps, autoremove bool) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleRemovePackages, PackageIDs: packageIDs, AllowDeps: allowDeps, Autoremove: autoremove})
}

func (s *Session) RemovePackage(ctx context.Context, packageID string, allowDeps, autoremove bool) error {
	return s.RemovePackages(ctx, splitSingle(packageID), allowDeps, autoremove)
}

// InstallFiles installs local package files. Paths are made absolute and
// symlink free before they are cached and sent.
func (s *Session) InstallFiles(ctx context.Context, trusted bool, files []string) error {
	resolved, err := resolvePaths(files)
	if err != nil {
		metrics.RecordValidationReject(enum.RoleInstallFiles.String())
		return err
	}
	return s.invoke(ctx, Invocation{Role: enum.RoleInstallFiles, Trusted: trusted, Files: resolved})
}

func (s *Session) InstallFile(ctx context.Context, trusted bool, file string) error {
	return s.InstallFiles(ctx, trusted, splitSingle(file))
}

func (s *Session) InstallSignature(ctx context.Context, sigType enum.SigType, keyID, packageID string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleInstallSignature, SigType: sigType, KeyID: keyID, PackageID: packageID})
}

func (s *Session) UpdateSystem(ctx context.Context) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleUpdateSystem})
}

func (s *Session) RefreshCache(ctx context.Context, force bool) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleRefreshCache, Force: force})
}

func (s *Session) AcceptEula(ctx context.Context, eulaID string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleAcceptEula, EulaID: eulaID})
}

func (s *Session) RepoEnable(ctx context.Context, repoID string, enabled bool) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleRepoEnable, RepoID: repoID, Enabled: enabled})
}

func (s *Session) RepoSetData(ctx context.Context, repoID, parameter, value string) error {
	return s.invoke(ctx, Invocation{Role: enum.RoleRepoSetData, RepoID: repoID, Parameter: parameter, Value: value})
}

// resolvePaths makes every path absolute and, when it exists, resolves its
// symlinks.
func resolvePaths(files []string) ([]string, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files given", ErrInvalidArgument)
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		if f == "" {
			return nil, fmt.Errorf("%w: empty file path", ErrInvalidArgument)
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve %q: %v", ErrInvalidArgument, f, err)
		}
		target, err := filepath.EvalSymlinks(abs)
		switch {
		case err == nil:
			abs = target
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("%w: resolve %q: %v", ErrInvalidArgument, f, err)
		}
		out = append(out, abs)
	}
	return out, nil
}
