// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/pkclient/internal/client"
	"github.com/ManuGH/pkclient/internal/config"
	"github.com/ManuGH/pkclient/internal/log"
	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/pk/event"
	"github.com/ManuGH/pkclient/internal/pk/packageid"
)

const (
	// maxRecoveries bounds the accept-and-requeue loop.
	maxRecoveries = 3
	cancelTimeout = 10 * time.Second
)

func runCommand(ctx context.Context, cfg config.Config, g globals, cmd Command, args []string, stdout, stderr io.Writer) (err error) {
	opts, rest, err := cmd.parse(args)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.Background()); cerr != nil {
			a.logger.Warn().Err(cerr).Msg("shutdown incomplete")
		}
	}()

	p := newPrinter(stdout, stderr, g.verbose)
	c := call{app: a, opts: opts, args: rest, yes: g.assumeYes}
	return serve(ctx, a, func(ctx context.Context) error {
		return a.transact(ctx, cmd, c, p)
	})
}

// transact runs cmd on a fresh session, accepting what the daemon asks for
// when allowed and replaying the transaction afterwards.
func (a *app) transact(ctx context.Context, cmd Command, c call, p *printer) error {
	if a.cfg.Client.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Client.Timeout)
		defer cancel()
	}

	s := a.newSession()
	defer func() { _ = s.Close() }()
	s.Subscribe(p.handle)
	asked := watchPrompts(s)
	c.s = s

	if err := a.complete(ctx, s, func(ctx context.Context) error { return cmd.Run(ctx, c) }); err != nil {
		a.abandon(ctx, s)
		return err
	}

	for attempt := 0; c.yes && attempt < maxRecoveries; attempt++ {
		out, _ := s.Outcome()
		if out.Exit != enum.ExitEulaRequired && out.Exit != enum.ExitKeyRequired {
			break
		}
		if err := a.satisfy(ctx, asked.take()); err != nil {
			return err
		}
		a.logger.Info().Str(log.FieldTID, s.TID().String()).Str(log.FieldExit, out.Exit.String()).Msg("requeueing after prompt")
		if err := a.complete(ctx, s, s.Requeue); err != nil {
			a.abandon(ctx, s)
			return err
		}
	}
	return p.summary(s)
}

// complete runs fn and, for an asynchronous session, waits for the
// transaction it started.
func (a *app) complete(ctx context.Context, s *client.Session, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	if s.Synchronous() {
		return nil
	}
	return s.Wait(ctx)
}

// abandon cancels the session's transaction when ctx ended under it.
func (a *app) abandon(ctx context.Context, s *client.Session) {
	if ctx.Err() == nil || s.TID() == "" || s.Finished() {
		return
	}
	cctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
	defer cancel()
	if err := s.Cancel(cctx); err != nil {
		a.logger.Warn().Err(err).Str(log.FieldTID, s.TID().String()).Msg("cancel failed")
		return
	}
	if err := s.Wait(cctx); err != nil {
		a.logger.Warn().Err(err).Str(log.FieldTID, s.TID().String()).Msg("transaction did not stop")
	}
}

// aside runs fn on a synchronous, buffered helper session and requires it
// to succeed. The caller closes the returned session.
func (a *app) aside(ctx context.Context, fn func(*client.Session) error) (*client.Session, error) {
	s := a.newSession(client.WithSynchronous(true), client.WithBuffer())
	if err := fn(s); err != nil {
		_ = s.Close()
		return nil, err
	}
	out, _ := s.Outcome()
	if out.Exit != enum.ExitSuccess {
		reason := out.Exit.String()
		if code, ok := s.LastError(); ok {
			reason = fmt.Sprintf("%s: %s", code.Code, strings.TrimSpace(code.Details))
		}
		_ = s.Close()
		return nil, fmt.Errorf("%s failed: %s", s.Role(), reason)
	}
	return s, nil
}

// satisfy accepts the agreements and trusts the keys the daemon asked for.
func (a *app) satisfy(ctx context.Context, pr prompts) error {
	if len(pr.eulas) == 0 && len(pr.sigs) == 0 {
		return errors.New("daemon asked for confirmation without saying what to confirm")
	}
	for _, e := range pr.eulas {
		s, err := a.aside(ctx, func(s *client.Session) error { return s.AcceptEula(ctx, e.EulaID) })
		if err != nil {
			return fmt.Errorf("accept %s: %w", e.EulaID, err)
		}
		_ = s.Close()
	}
	for _, sig := range pr.sigs {
		s, err := a.aside(ctx, func(s *client.Session) error { return s.InstallSignature(ctx, sig.SigType, sig.KeyID, sig.ID) })
		if err != nil {
			return fmt.Errorf("trust key %s: %w", sig.KeyID, err)
		}
		_ = s.Close()
	}
	return nil
}

// prompts are the confirmations requested during one transaction.
type prompts struct {
	eulas []event.EulaRequired
	sigs  []event.RepoSignatureRequired
}

type promptWatch struct {
	mu      sync.Mutex
	pending prompts
}

func watchPrompts(s *client.Session) *promptWatch {
	w := &promptWatch{}
	client.On(s, func(e event.EulaRequired) {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.pending.eulas = append(w.pending.eulas, e)
	})
	client.On(s, func(e event.RepoSignatureRequired) {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.pending.sigs = append(w.pending.sigs, e)
	})
	return w
}

func (w *promptWatch) take() prompts {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.pending
	w.pending = prompts{}
	return p
}

// resolveOne turns a package name into a package id. Ids pass through.
func (c call) resolveOne(ctx context.Context, filter enum.Filter, arg string) (string, error) {
	if _, err := packageid.Parse(arg); err == nil {
		return arg, nil
	}
	s, err := c.app.aside(ctx, func(s *client.Session) error { return s.Resolve(ctx, filter, arg) })
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", arg, err)
	}
	defer func() { _ = s.Close() }()

	pkgs := s.Packages()
	switch {
	case len(pkgs) == 0:
		return "", fmt.Errorf("no package found for %q", arg)
	case len(pkgs) > 1 && !c.yes:
		ids := make([]string, len(pkgs))
		for i, pkg := range pkgs {
			ids[i] = pkg.ID
		}
		return "", fmt.Errorf("more than one package matches %q: %s", arg, strings.Join(ids, ", "))
	}
	return pkgs[0].ID, nil
}

func (c call) resolveAll(ctx context.Context, filter enum.Filter) ([]string, error) {
	ids := make([]string, 0, len(c.args))
	for _, arg := range c.args {
		id, err := c.resolveOne(ctx, filter, arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
