// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package event holds the typed transaction events and their decoding from
// bus signals. Every text-valued enum is decoded through the enum tables so
// handlers never see raw tokens.
package event

import (
	"time"

	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/transport"
)

// Event is one decoded transaction event. The concrete types below are the
// only implementations.
type Event interface {
	// Name is the signal name the event travels under.
	Name() string
	isEvent()
}

type Package struct {
	Info    enum.Info
	ID      string
	Summary string
}

type StatusChanged struct {
	Status enum.Status
}

type ProgressChanged struct {
	Percentage    uint32
	Subpercentage uint32
	Elapsed       uint32
	Remaining     uint32
}

// Finished ends a transaction. Runtime travels in milliseconds.
type Finished struct {
	Exit    enum.Exit
	Runtime time.Duration
}

type ErrorCode struct {
	Code    enum.ErrorCode
	Details string
}

type RequireRestart struct {
	Restart enum.Restart
	Details string
}

type Message struct {
	Kind    enum.Message
	Details string
}

type Details struct {
	ID          string
	License     string
	Group       enum.Group
	Description string
	URL         string
	Size        uint64
}

// Files lists the files owned by a package. On the wire the list is a single
// ';' separated string.
type Files struct {
	ID    string
	Files []string
}

type UpdateDetail struct {
	ID        string
	Updates   string
	Obsoletes string
	VendorURL string
	BugURL    string
	CVEURL    string
	Restart   enum.Restart
	Text      string
}

type RepoDetail struct {
	ID          string
	Description string
	Enabled     bool
}

type RepoSignatureRequired struct {
	ID          string
	RepoName    string
	KeyURL      string
	KeyUserID   string
	KeyID       string
	Fingerprint string
	Timestamp   string
	SigType     enum.SigType
}

type EulaRequired struct {
	EulaID    string
	PackageID string
	Vendor    string
	Agreement string
}

type AllowCancel struct {
	Allowed bool
}

type CallerActiveChanged struct {
	Active bool
}

// Transaction describes one past transaction, emitted by get-old-transactions.
// Duration travels in milliseconds.
type Transaction struct {
	TID       string
	Timestamp string
	Succeeded bool
	Role      enum.Role
	Duration  time.Duration
	Data      string
}

func (Package) Name() string               { return transport.SignalPackage }
func (StatusChanged) Name() string         { return transport.SignalStatusChanged }
func (ProgressChanged) Name() string       { return transport.SignalProgressChanged }
func (Finished) Name() string              { return transport.SignalFinished }
func (ErrorCode) Name() string             { return transport.SignalErrorCode }
func (RequireRestart) Name() string        { return transport.SignalRequireRestart }
func (Message) Name() string               { return transport.SignalMessage }
func (Details) Name() string               { return transport.SignalDetails }
func (Files) Name() string                 { return transport.SignalFiles }
func (UpdateDetail) Name() string          { return transport.SignalUpdateDetail }
func (RepoDetail) Name() string            { return transport.SignalRepoDetail }
func (RepoSignatureRequired) Name() string { return transport.SignalRepoSignatureRequired }
func (EulaRequired) Name() string          { return transport.SignalEulaRequired }
func (AllowCancel) Name() string           { return transport.SignalAllowCancel }
func (CallerActiveChanged) Name() string   { return transport.SignalCallerActiveChanged }
func (Transaction) Name() string           { return transport.SignalTransaction }

func (Package) isEvent()               {}
func (StatusChanged) isEvent()         {}
func (ProgressChanged) isEvent()       {}
func (Finished) isEvent()              {}
func (ErrorCode) isEvent()             {}
func (RequireRestart) isEvent()        {}
func (Message) isEvent()               {}
func (Details) isEvent()               {}
func (Files) isEvent()                 {}
func (UpdateDetail) isEvent()          {}
func (RepoDetail) isEvent()            {}
func (RepoSignatureRequired) isEvent() {}
func (EulaRequired) isEvent()          {}
func (AllowCancel) isEvent()           {}
func (CallerActiveChanged) isEvent()   {}
func (Transaction) isEvent()           {}
