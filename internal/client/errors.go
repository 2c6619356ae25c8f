// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/pkclient/internal/transport"
)

var (
	ErrInvalidIdentifier  = errors.New("invalid package identifier")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNoTransactionBound = errors.New("no transaction bound")
	ErrAlreadyBound       = errors.New("transaction already bound")
	ErrRoleUnknown        = errors.New("role unknown")
	ErrNotFinished        = errors.New("transaction not finished")
	ErrAuthFailed         = errors.New("authorization failed")
	ErrFailed             = errors.New("transaction call failed")
	ErrConnection         = errors.New("event subscription failed")
)

var own = []error{
	ErrInvalidIdentifier,
	ErrInvalidArgument,
	ErrNoTransactionBound,
	ErrAlreadyBound,
	ErrRoleUnknown,
	ErrNotFinished,
	ErrAuthFailed,
	ErrFailed,
	ErrConnection,
}

func isOwn(err error) bool {
	for _, e := range own {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// normalize maps a call error into the session taxonomy. Daemon error names
// are dropped; only the human readable text survives.
func normalize(err error) error {
	if err == nil {
		return nil
	}
	if isOwn(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrFailed, err)
	}
	return fmt.Errorf("%w: %s", ErrFailed, describe(err))
}

// describe returns the text shown to the privilege agent or the caller.
func describe(err error) string {
	var re *transport.RemoteError
	if errors.As(err, &re) {
		if re.Message != "" {
			return re.Message
		}
		return "daemon rejected the call"
	}
	return err.Error()
}
