// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"io"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/ManuGH/pkclient/internal/client"
	"github.com/ManuGH/pkclient/internal/pk/enum"
)

// options are the command flags. Each command registers only the ones it reads.
type options struct {
	filter     enum.Filter
	recursive  bool
	allowDeps  bool
	autoremove bool
	force      bool
	trusted    bool
}

type flagName int

const (
	flagFilter flagName = iota
	flagRecursive
	flagAllowDeps
	flagAutoremove
	flagForce
	flagTrusted
)

// call is one parsed command line ready to run.
type call struct {
	app  *app
	s    *client.Session
	opts options
	args []string
	yes  bool
}

// Command is one transaction the CLI can start.
type Command struct {
	Name    string
	Args    string
	Summary string
	MinArgs int
	// MaxArgs < 0 means unbounded.
	MaxArgs int
	Flags   []flagName
	Run     func(ctx context.Context, c call) error
}

func lookup(name string) (Command, bool) {
	for _, c := range commands {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

// parse reads the command's flags and checks its argument count.
func (cmd Command) parse(args []string) (options, []string, error) {
	var (
		o      options
		filter string
	)
	fs := pflag.NewFlagSet(cmd.Name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, f := range cmd.Flags {
		switch f {
		case flagFilter:
			fs.StringVarP(&filter, "filter", "f", "none", "package filter, e.g. installed;~devel")
		case flagRecursive:
			fs.BoolVar(&o.recursive, "recursive", false, "follow dependencies recursively")
		case flagAllowDeps:
			fs.BoolVar(&o.allowDeps, "allow-deps", false, "also remove packages that depend on these")
		case flagAutoremove:
			fs.BoolVar(&o.autoremove, "autoremove", false, "remove dependencies no longer needed")
		case flagForce:
			fs.BoolVar(&o.force, "force", false, "refresh even when the cache is fresh")
		case flagTrusted:
			fs.BoolVar(&o.trusted, "only-trusted", true, "refuse unsigned package files")
		}
	}
	if err := fs.Parse(args); err != nil {
		return o, nil, usagef("%s: %v", cmd.Name, err)
	}

	o.filter = enum.ParseFilter(filter)
	if o.filter.Has(enum.FilterUnknown) {
		return o, nil, usagef("%s: unknown filter %q", cmd.Name, filter)
	}

	rest := fs.Args()
	if len(rest) < cmd.MinArgs || (cmd.MaxArgs >= 0 && len(rest) > cmd.MaxArgs) {
		return o, nil, usagef("usage: pkclient %s %s", cmd.Name, cmd.Args)
	}
	return o, rest, nil
}

var commands = []Command{
	{
		Name: "search", Args: "name|details|group|file TERM", Summary: "search for packages",
		MinArgs: 2, MaxArgs: 2, Flags: []flagName{flagFilter},
		Run: func(ctx context.Context, c call) error {
			f, term := c.opts.filter, c.args[1]
			switch c.args[0] {
			case "name":
				return c.s.SearchName(ctx, f, term)
			case "details":
				return c.s.SearchDetails(ctx, f, term)
			case "group":
				return c.s.SearchGroup(ctx, f, term)
			case "file":
				return c.s.SearchFile(ctx, f, term)
			}
			return usagef("search: unknown kind %q", c.args[0])
		},
	},
	{
		Name: "resolve", Args: "NAME", Summary: "resolve a name to package ids",
		MinArgs: 1, MaxArgs: 1, Flags: []flagName{flagFilter},
		Run: func(ctx context.Context, c call) error {
			return c.s.Resolve(ctx, c.opts.filter, c.args[0])
		},
	},
	{
		Name: "what-provides", Args: "KIND TERM", Summary: "find packages providing a capability",
		MinArgs: 2, MaxArgs: 2, Flags: []flagName{flagFilter},
		Run: func(ctx context.Context, c call) error {
			kind := enum.ParseProvides(c.args[0])
			if kind == enum.ProvidesUnknown {
				return usagef("what-provides: unknown kind %q", c.args[0])
			}
			return c.s.WhatProvides(ctx, c.opts.filter, kind, c.args[1])
		},
	},
	{
		Name: "get-details", Args: "PACKAGE", Summary: "show package details",
		MinArgs: 1, MaxArgs: 1,
		Run: func(ctx context.Context, c call) error {
			id, err := c.resolveOne(ctx, enum.FilterNone, c.args[0])
			if err != nil {
				return err
			}
			return c.s.GetDetails(ctx, id)
		},
	},
	{
		Name: "get-files", Args: "PACKAGE", Summary: "list the files of a package",
		MinArgs: 1, MaxArgs: 1,
		Run: func(ctx context.Context, c call) error {
			id, err := c.resolveOne(ctx, enum.FilterNone, c.args[0])
			if err != nil {
				return err
			}
			return c.s.GetFiles(ctx, id)
		},
	},
	{
		Name: "get-update-detail", Args: "PACKAGE", Summary: "describe an available update",
		MinArgs: 1, MaxArgs: 1,
		Run: func(ctx context.Context, c call) error {
			return c.s.GetUpdateDetail(ctx, c.args[0])
		},
	},
	{
		Name: "get-depends", Args: "PACKAGE", Summary: "list what a package depends on",
		MinArgs: 1, MaxArgs: 1, Flags: []flagName{flagFilter, flagRecursive},
		Run: func(ctx context.Context, c call) error {
			id, err := c.resolveOne(ctx, enum.FilterNone, c.args[0])
			if err != nil {
				return err
			}
			return c.s.GetDepends(ctx, c.opts.filter, id, c.opts.recursive)
		},
	},
	{
		Name: "get-requires", Args: "PACKAGE", Summary: "list what depends on a package",
		MinArgs: 1, MaxArgs: 1, Flags: []flagName{flagFilter, flagRecursive},
		Run: func(ctx context.Context, c call) error {
			id, err := c.resolveOne(ctx, enum.FilterNone, c.args[0])
			if err != nil {
				return err
			}
			return c.s.GetRequires(ctx, c.opts.filter, id, c.opts.recursive)
		},
	},
	{
		Name: "get-packages", Summary: "list packages",
		MaxArgs: 0, Flags: []flagName{flagFilter},
		Run: func(ctx context.Context, c call) error {
			return c.s.GetPackages(ctx, c.opts.filter)
		},
	},
	{
		Name: "get-updates", Summary: "list available updates",
		MaxArgs: 0, Flags: []flagName{flagFilter},
		Run: func(ctx context.Context, c call) error {
			return c.s.GetUpdates(ctx, c.opts.filter)
		},
	},
	{
		Name: "repo-list", Summary: "list software sources",
		MaxArgs: 0, Flags: []flagName{flagFilter},
		Run: func(ctx context.Context, c call) error {
			return c.s.GetRepoList(ctx, c.opts.filter)
		},
	},
	{
		Name: "get-transactions", Args: "[COUNT]", Summary: "list past daemon transactions",
		MaxArgs: 1,
		Run: func(ctx context.Context, c call) error {
			var count uint64
			if len(c.args) == 1 {
				n, err := strconv.ParseUint(c.args[0], 10, 32)
				if err != nil {
					return usagef("get-transactions: invalid count %q", c.args[0])
				}
				count = n
			}
			return c.s.GetOldTransactions(ctx, uint32(count))
		},
	},
	{
		Name: "install", Args: "PACKAGE...", Summary: "install packages",
		MinArgs: 1, MaxArgs: -1,
		Run: func(ctx context.Context, c call) error {
			ids, err := c.resolveAll(ctx, enum.FilterNotInstalled)
			if err != nil {
				return err
			}
			return c.s.InstallPackages(ctx, ids)
		},
	},
	{
		Name: "install-local", Args: "FILE...", Summary: "install package files",
		MinArgs: 1, MaxArgs: -1, Flags: []flagName{flagTrusted},
		Run: func(ctx context.Context, c call) error {
			return c.s.InstallFiles(ctx, c.opts.trusted, c.args)
		},
	},
	{
		Name: "install-sig", Args: "KEYID PACKAGE", Summary: "trust a repository signing key",
		MinArgs: 2, MaxArgs: 2,
		Run: func(ctx context.Context, c call) error {
			return c.s.InstallSignature(ctx, enum.SigTypeGPG, c.args[0], c.args[1])
		},
	},
	{
		Name: "update", Args: "[PACKAGE...]", Summary: "update packages, or the whole system",
		MaxArgs: -1,
		Run: func(ctx context.Context, c call) error {
			if len(c.args) == 0 {
				return c.s.UpdateSystem(ctx)
			}
			ids, err := c.resolveAll(ctx, enum.FilterInstalled)
			if err != nil {
				return err
			}
			return c.s.UpdatePackages(ctx, ids)
		},
	},
	{
		Name: "remove", Args: "PACKAGE...", Summary: "remove packages",
		MinArgs: 1, MaxArgs: -1, Flags: []flagName{flagAllowDeps, flagAutoremove},
		Run: func(ctx context.Context, c call) error {
			ids, err := c.resolveAll(ctx, enum.FilterInstalled)
			if err != nil {
				return err
			}
			return c.s.RemovePackages(ctx, ids, c.opts.allowDeps, c.opts.autoremove)
		},
	},
	{
		Name: "refresh", Summary: "refresh the package metadata cache",
		MaxArgs: 0, Flags: []flagName{flagForce},
		Run: func(ctx context.Context, c call) error {
			return c.s.RefreshCache(ctx, c.opts.force)
		},
	},
	{
		Name: "accept-eula", Args: "EULA", Summary: "accept a license agreement",
		MinArgs: 1, MaxArgs: 1,
		Run: func(ctx context.Context, c call) error {
			return c.s.AcceptEula(ctx, c.args[0])
		},
	},
	{
		Name: "repo-enable", Args: "REPO", Summary: "enable a software source",
		MinArgs: 1, MaxArgs: 1,
		Run: func(ctx context.Context, c call) error {
			return c.s.RepoEnable(ctx, c.args[0], true)
		},
	},
	{
		Name: "repo-disable", Args: "REPO", Summary: "disable a software source",
		MinArgs: 1, MaxArgs: 1,
		Run: func(ctx context.Context, c call) error {
			return c.s.RepoEnable(ctx, c.args[0], false)
		},
	},
	{
		Name: "repo-set-data", Args: "REPO PARAMETER VALUE", Summary: "set a software source option",
		MinArgs: 3, MaxArgs: 3,
		Run: func(ctx context.Context, c call) error {
			return c.s.RepoSetData(ctx, c.args[0], c.args[1], c.args[2])
		},
	},
	{
		Name: "rollback", Args: "TRANSACTION", Summary: "roll back to an earlier transaction",
		MinArgs: 1, MaxArgs: 1,
		Run: func(ctx context.Context, c call) error {
			return c.s.Rollback(ctx, c.args[0])
		},
	},
}
