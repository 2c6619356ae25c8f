// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package transport defines the boundary between the transaction client and
// the privileged daemon: id allocation, method calls on a transaction and
// privilege escalation. Implementations live outside the client package.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TransactionID names one transaction on the bus. It is also the topic its
// events are published on.
type TransactionID string

func (t TransactionID) String() string { return string(t) }

// ControlAuthority hands out fresh transaction ids.
type ControlAuthority interface {
	Allocate(ctx context.Context) (TransactionID, error)
}

// Caller issues a method call against one transaction. The reply carries the
// method's out arguments in order.
type Caller interface {
	Call(ctx context.Context, tid TransactionID, method string, args ...any) ([]any, error)
}

// PrivilegeAuthority asks the user or agent to grant the privilege a denied
// call was missing. It reports whether the grant succeeded.
type PrivilegeAuthority interface {
	Escalate(ctx context.Context, description string) bool
}

// Daemon error names.
const (
	ErrNameRefusedByPolicy = "org.freedesktop.PackageKit.Transaction.RefusedByPolicy"
	ErrNameNoSuchTID       = "org.freedesktop.PackageKit.Transaction.NoSuchTransaction"
	ErrNameNotRunning      = "org.freedesktop.PackageKit.Transaction.NotRunning"
	ErrNameInvalidState    = "org.freedesktop.PackageKit.Transaction.InvalidState"
	ErrNameInputInvalid    = "org.freedesktop.PackageKit.Transaction.InputInvalid"
	ErrNameDenied          = "org.freedesktop.PackageKit.Transaction.Denied"
)

// RemoteError is an error reply from the daemon. Name is the transport
// identity, Message the human readable description.
type RemoteError struct {
	Name    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// NewRemoteError builds a daemon error reply.
func NewRemoteError(name, format string, args ...any) *RemoteError {
	return &RemoteError{Name: name, Message: fmt.Sprintf(format, args...)}
}

// IsRefusedByPolicy reports whether err is a policy denial that a privilege
// escalation could lift.
func IsRefusedByPolicy(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Name == ErrNameRefusedByPolicy
}

// IsAlreadyFinished reports whether err is the daemon's reply to cancelling a
// transaction that has already stopped running or no longer exists.
func IsAlreadyFinished(err error) bool {
	var re *RemoteError
	if !errors.As(err, &re) {
		return false
	}
	switch re.Name {
	case ErrNameNoSuchTID, ErrNameNotRunning:
		return true
	}
	return re.Message == "cancelling a non-running transaction" ||
		strings.HasSuffix(re.Message, " doesn't exist\n")
}
