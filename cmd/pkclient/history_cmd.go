// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/ManuGH/pkclient/internal/config"
	"github.com/ManuGH/pkclient/internal/history"
	"github.com/ManuGH/pkclient/internal/persistence/sqlite"
)

func runHistory(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usagef("usage: pkclient history list|show|prune|verify")
	}
	fs := pflag.NewFlagSet("history "+args[0], pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	switch args[0] {
	case "list":
		limit := fs.IntP("limit", "n", 20, "show at most this many entries; 0 shows all")
		if err := fs.Parse(args[1:]); err != nil {
			return usagef("history list: %v", err)
		}
		return withJournal(cfg, func(store *history.Store) error {
			entries, err := store.List(ctx, *limit)
			if err != nil {
				return err
			}
			return printEntries(out, entries)
		})

	case "show":
		if err := fs.Parse(args[1:]); err != nil || fs.NArg() != 1 {
			return usagef("usage: pkclient history show TRANSACTION")
		}
		return withJournal(cfg, func(store *history.Store) error {
			e, err := store.Get(ctx, fs.Arg(0))
			if errors.Is(err, history.ErrNotFound) {
				return fmt.Errorf("no journal entry for %s", fs.Arg(0))
			}
			if err != nil {
				return err
			}
			return printEntries(out, []history.Entry{e})
		})

	case "prune":
		keep := fs.Int("keep", cfg.History.Keep, "entries to keep")
		if err := fs.Parse(args[1:]); err != nil {
			return usagef("history prune: %v", err)
		}
		if *keep < 0 {
			return usagef("history prune: --keep cannot be negative")
		}
		return withJournal(cfg, func(store *history.Store) error {
			n, err := store.Prune(ctx, *keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d entries\n", n)
			return nil
		})

	case "verify":
		full := fs.Bool("full", false, "run a full integrity check instead of a quick one")
		if err := fs.Parse(args[1:]); err != nil {
			return usagef("history verify: %v", err)
		}
		mode := sqlite.VerifyQuick
		if *full {
			mode = sqlite.VerifyFull
		}
		issues, err := sqlite.Verify(ctx, cfg.History.Path, mode)
		if err != nil {
			return err
		}
		if len(issues) > 0 {
			for _, issue := range issues {
				fmt.Fprintf(out, "  %s\n", issue)
			}
			return fmt.Errorf("%s: %d integrity problems", cfg.History.Path, len(issues))
		}
		fmt.Fprintf(out, "✓ %s is intact\n", cfg.History.Path)
		return nil
	}
	return usagef("unknown history command: %s", args[0])
}

func withJournal(cfg config.Config, fn func(*history.Store) error) error {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func printEntries(out io.Writer, entries []history.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No transactions recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tTRANSACTION\tROLE\tEXIT\tRUNTIME\tRESTART\tPACKAGES\tSUBJECT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.FinishedAt.Local().Format(time.DateTime),
			e.TID, e.Role, e.Exit,
			e.Runtime.Truncate(time.Millisecond),
			e.Restart, e.Packages, e.Subject)
	}
	return tw.Flush()
}
