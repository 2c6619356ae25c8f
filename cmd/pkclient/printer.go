// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/ManuGH/pkclient/internal/client"
	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/pk/event"
)

// printer renders session events as text. Results go to out, problems to errOut.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	verbose bool
	lastPct uint32
}

func newPrinter(out, errOut io.Writer, verbose bool) *printer {
	return &printer{out: out, errOut: errOut, verbose: verbose}
}

func (p *printer) handle(ev event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e := ev.(type) {
	case event.Package:
		fmt.Fprintf(p.out, "%-12s %s\t%s\n", e.Info, e.ID, e.Summary)
	case event.Details:
		p.block("Package description",
			"package", e.ID,
			"license", e.License,
			"group", e.Group.String(),
			"description", e.Description,
			"size", fmt.Sprintf("%d bytes", e.Size),
			"url", e.URL)
	case event.Files:
		fmt.Fprintln(p.out, "Package files")
		for _, f := range e.Files {
			fmt.Fprintf(p.out, "  %s\n", f)
		}
	case event.UpdateDetail:
		p.block("Details about the update",
			"package", e.ID,
			"updates", e.Updates,
			"obsoletes", e.Obsoletes,
			"vendor", e.VendorURL,
			"bugzilla", e.BugURL,
			"cve", e.CVEURL,
			"restart", e.Restart.String(),
			"update text", e.Text)
	case event.RepoDetail:
		state := "disabled"
		if e.Enabled {
			state = "enabled"
		}
		fmt.Fprintf(p.out, "%-9s %s\t%s\n", state, e.ID, e.Description)
	case event.Transaction:
		p.block("Transaction",
			"id", e.TID,
			"system time", e.Timestamp,
			"succeeded", fmt.Sprint(e.Succeeded),
			"role", e.Role.String(),
			"duration", e.Duration.String(),
			"data", e.Data)
	case event.EulaRequired:
		p.block("End user license agreement required",
			"eula", e.EulaID,
			"package", e.PackageID,
			"vendor", e.Vendor,
			"agreement", e.Agreement)
	case event.RepoSignatureRequired:
		p.block("Repository signature required",
			"package", e.ID,
			"repository", e.RepoName,
			"key url", e.KeyURL,
			"key user", e.KeyUserID,
			"key id", e.KeyID,
			"fingerprint", e.Fingerprint,
			"timestamp", e.Timestamp)
	case event.Message:
		fmt.Fprintf(p.errOut, "Message: %s: %s\n", e.Kind, e.Details)
	case event.ErrorCode:
		fmt.Fprintf(p.errOut, "Fatal error: %s: %s\n", e.Code, strings.TrimSpace(e.Details))
	case event.StatusChanged:
		if p.verbose {
			fmt.Fprintf(p.errOut, "Status:\t%s\n", e.Status)
		}
	case event.ProgressChanged:
		if p.verbose && e.Percentage != p.lastPct {
			p.lastPct = e.Percentage
			fmt.Fprintf(p.errOut, "Percentage:\t%d\n", e.Percentage)
		}
	}
}

// block prints a titled list of key/value pairs, skipping empty values.
func (p *printer) block(title string, kv ...string) {
	fmt.Fprintln(p.out, title)
	tw := tabwriter.NewWriter(p.out, 0, 0, 1, ' ', 0)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		fmt.Fprintf(tw, "  %s:\t%s\n", kv[i], kv[i+1])
	}
	_ = tw.Flush()
}

// summary reports how the session's transaction ended. A non-success exit
// is errTransactionFailed.
func (p *printer) summary(s *client.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	out, ok := s.Outcome()
	if !ok {
		return nil
	}
	if p.verbose {
		fmt.Fprintf(p.errOut, "Transaction %s finished: %s after %s\n", s.TID(), out.Exit, out.Runtime)
	}
	if r := s.RequireRestart(); r > enum.RestartNone {
		fmt.Fprintf(p.out, "A restart is required: %s\n", r)
	}
	if out.Exit == enum.ExitSuccess {
		return nil
	}
	switch out.Exit {
	case enum.ExitEulaRequired:
		fmt.Fprintln(p.errOut, "The transaction needs a license agreement accepted; rerun with --assume-yes to accept it.")
	case enum.ExitKeyRequired:
		fmt.Fprintln(p.errOut, "The transaction needs a signing key trusted; rerun with --assume-yes to trust it.")
	default:
		fmt.Fprintf(p.errOut, "Transaction %s: %s\n", s.Role(), out.Exit)
	}
	return errTransactionFailed
}
