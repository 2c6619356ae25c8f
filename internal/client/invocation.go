// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"fmt"
	"slices"

	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/pk/packageid"
	"github.com/ManuGH/pkclient/internal/transport"
)

// Invocation is the role and exact parameters of the call that created the
// current or most recent transaction. Only the fields the role uses are set.
// A session replaces its cached invocation wholesale and never edits it.
type Invocation struct {
	Role       enum.Role
	Filter     enum.Filter
	Search     string
	PackageID  string
	PackageIDs []string
	Files      []string
	Provides   enum.Provides
	SigType    enum.SigType
	KeyID      string
	RepoID     string
	Parameter  string
	Value      string
	RollbackID string
	EulaID     string
	Count      uint32
	Recursive  bool
	AllowDeps  bool
	Autoremove bool
	Trusted    bool
	Force      bool
	Enabled    bool
}

func (inv Invocation) clone() Invocation {
	inv.PackageIDs = slices.Clone(inv.PackageIDs)
	inv.Files = slices.Clone(inv.Files)
	return inv
}

// Subject is the text the invocation acts on, as the daemon reports it for
// GetRole and as the history journal records it. Lists are joined with
// packageid.ListSeparator.
func (inv Invocation) Subject() string {
	switch {
	case inv.Search != "":
		return inv.Search
	case inv.KeyID != "":
		return inv.KeyID
	case inv.PackageID != "":
		return inv.PackageID
	case len(inv.PackageIDs) > 0:
		return packageid.JoinList(inv.PackageIDs)
	case len(inv.Files) > 0:
		return packageid.JoinList(inv.Files)
	case inv.RepoID != "":
		return inv.RepoID
	case inv.EulaID != "":
		return inv.EulaID
	case inv.RollbackID != "":
		return inv.RollbackID
	}
	return ""
}

type roleSpec struct {
	method   string
	validate func(Invocation) error
	args     func(Invocation) []any
}

func (r roleSpec) check(inv Invocation) error {
	if r.validate == nil {
		return nil
	}
	return r.validate(inv)
}

var roleSpecs = map[enum.Role]roleSpec{
	enum.RoleSearchName:      searchSpec(transport.MethodSearchName),
	enum.RoleSearchDetails:   searchSpec(transport.MethodSearchDetails),
	enum.RoleSearchGroup:     searchSpec(transport.MethodSearchGroup),
	enum.RoleSearchFile:      searchSpec(transport.MethodSearchFile),
	enum.RoleGetDepends:      dependencySpec(transport.MethodGetDepends),
	enum.RoleGetRequires:     dependencySpec(transport.MethodGetRequires),
	enum.RoleGetDetails:      packageSpec(transport.MethodGetDetails),
	enum.RoleGetFiles:        packageSpec(transport.MethodGetFiles),
	enum.RoleGetUpdateDetail: packageSpec(transport.MethodGetUpdateDetail),
	enum.RoleGetPackages:     filterSpec(transport.MethodGetPackages),
	enum.RoleGetUpdates:      filterSpec(transport.MethodGetUpdates),
	enum.RoleGetRepoList:     filterSpec(transport.MethodGetRepoList),
	enum.RoleGetOldTransactions: {
		method: transport.MethodGetOldTransactions,
		args:   func(inv Invocation) []any { return []any{inv.Count} },
	},
	enum.RoleResolve: searchSpec(transport.MethodResolve),
	enum.RoleWhatProvides: {
		method:   transport.MethodWhatProvides,
		validate: all(checkFilter, checkProvides, checkSearch),
		args: func(inv Invocation) []any {
			return []any{inv.Filter.String(), inv.Provides.String(), inv.Search}
		},
	},
	enum.RoleRollback: {
		method:   transport.MethodRollback,
		validate: nonEmpty("rollback transaction id", func(inv Invocation) string { return inv.RollbackID }),
		args:     func(inv Invocation) []any { return []any{inv.RollbackID} },
	},
	enum.RoleInstallPackages: packageListSpec(transport.MethodInstallPackages),
	enum.RoleUpdatePackages:  packageListSpec(transport.MethodUpdatePackages),
	enum.RoleRemovePackages: {
		method:   transport.MethodRemovePackages,
		validate: checkPackageIDs,
		args: func(inv Invocation) []any {
			return []any{slices.Clone(inv.PackageIDs), inv.AllowDeps, inv.Autoremove}
		},
	},
	enum.RoleInstallFiles: {
		method:   transport.MethodInstallFiles,
		validate: checkFiles,
		args:     func(inv Invocation) []any { return []any{inv.Trusted, slices.Clone(inv.Files)} },
	},
	enum.RoleInstallSignature: {
		method:   transport.MethodInstallSignature,
		validate: all(checkSigType, nonEmpty("key id", func(inv Invocation) string { return inv.KeyID }), checkPackageID),
		args: func(inv Invocation) []any {
			return []any{inv.SigType.String(), inv.KeyID, inv.PackageID}
		},
	},
	enum.RoleUpdateSystem: {
		method: transport.MethodUpdateSystem,
		args:   func(Invocation) []any { return nil },
	},
	enum.RoleRefreshCache: {
		method: transport.MethodRefreshCache,
		args:   func(inv Invocation) []any { return []any{inv.Force} },
	},
	enum.RoleAcceptEula: {
		method:   transport.MethodAcceptEula,
		validate: nonEmpty("eula id", func(inv Invocation) string { return inv.EulaID }),
		args:     func(inv Invocation) []any { return []any{inv.EulaID} },
	},
	enum.RoleRepoEnable: {
		method:   transport.MethodRepoEnable,
		validate: nonEmpty("repo id", func(inv Invocation) string { return inv.RepoID }),
		args:     func(inv Invocation) []any { return []any{inv.RepoID, inv.Enabled} },
	},
	enum.RoleRepoSetData: {
		method: transport.MethodRepoSetData,
		validate: all(
			nonEmpty("repo id", func(inv Invocation) string { return inv.RepoID }),
			nonEmpty("parameter", func(inv Invocation) string { return inv.Parameter }),
		),
		args: func(inv Invocation) []any { return []any{inv.RepoID, inv.Parameter, inv.Value} },
	},
}

func searchSpec(method string) roleSpec {
	return roleSpec{
		method:   method,
		validate: all(checkFilter, checkSearch),
		args:     func(inv Invocation) []any { return []any{inv.Filter.String(), inv.Search} },
	}
}

func dependencySpec(method string) roleSpec {
	return roleSpec{
		method:   method,
		validate: all(checkFilter, checkPackageID),
		args: func(inv Invocation) []any {
			return []any{inv.Filter.String(), inv.PackageID, inv.Recursive}
		},
	}
}

func packageSpec(method string) roleSpec {
	return roleSpec{
		method:   method,
		validate: checkPackageID,
		args:     func(inv Invocation) []any { return []any{inv.PackageID} },
	}
}

func filterSpec(method string) roleSpec {
	return roleSpec{
		method:   method,
		validate: checkFilter,
		args:     func(inv Invocation) []any { return []any{inv.Filter.String()} },
	}
}

func packageListSpec(method string) roleSpec {
	return roleSpec{
		method:   method,
		validate: checkPackageIDs,
		args:     func(inv Invocation) []any { return []any{slices.Clone(inv.PackageIDs)} },
	}
}

func all(checks ...func(Invocation) error) func(Invocation) error {
	return func(inv Invocation) error {
		for _, c := range checks {
			if err := c(inv); err != nil {
				return err
			}
		}
		return nil
	}
}

func nonEmpty(what string, get func(Invocation) string) func(Invocation) error {
	return func(inv Invocation) error {
		if get(inv) == "" {
			return fmt.Errorf("%w: %s is empty", ErrInvalidArgument, what)
		}
		return nil
	}
}

func checkFilter(inv Invocation) error {
	if inv.Filter.Has(enum.FilterUnknown) {
		return fmt.Errorf("%w: filter %q has unknown bits", ErrInvalidArgument, inv.Filter)
	}
	return nil
}

func checkSearch(inv Invocation) error {
	if inv.Search == "" {
		return fmt.Errorf("%w: search term is empty", ErrInvalidArgument)
	}
	return nil
}

func checkProvides(inv Invocation) error {
	if inv.Provides == enum.ProvidesUnknown {
		return fmt.Errorf("%w: provides kind is unknown", ErrInvalidArgument)
	}
	return nil
}

func checkSigType(inv Invocation) error {
	if inv.SigType == enum.SigTypeUnknown {
		return fmt.Errorf("%w: signature type is unknown", ErrInvalidArgument)
	}
	return nil
}

func checkPackageID(inv Invocation) error {
	if _, err := packageid.Parse(inv.PackageID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidIdentifier, err)
	}
	return nil
}

func checkPackageIDs(inv Invocation) error {
	if err := packageid.CheckAll(inv.PackageIDs); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidIdentifier, err)
	}
	return nil
}

func checkFiles(inv Invocation) error {
	if len(inv.Files) == 0 {
		return fmt.Errorf("%w: no files given", ErrInvalidArgument)
	}
	for _, f := range inv.Files {
		if f == "" {
			return fmt.Errorf("%w: empty file path", ErrInvalidArgument)
		}
	}
	return nil
}
