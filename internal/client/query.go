// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"context"
	"fmt"
	"math"

	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/pk/event"
	"github.com/ManuGH/pkclient/internal/transport"
)

// Queries read live state of the bound transaction from the daemon.

func (s *Session) boundTID() (transport.TransactionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tid == "" {
		return "", ErrNoTransactionBound
	}
	return s.tid, nil
}

func (s *Session) query(ctx context.Context, method string, want int) ([]any, error) {
	tid, err := s.boundTID()
	if err != nil {
		return nil, err
	}
	reply, err := s.caller.Call(ctx, tid, method)
	if err != nil {
		return nil, normalize(err)
	}
	if len(reply) != want {
		return nil, fmt.Errorf("%w: %s replied with %d values, want %d", ErrFailed, method, len(reply), want)
	}
	return reply, nil
}

// Status asks the daemon for the current status.
func (s *Session) Status(ctx context.Context) (enum.Status, error) {
	reply, err := s.query(ctx, transport.MethodGetStatus, 1)
	if err != nil {
		return enum.StatusUnknown, err
	}
	text, err := replyString(transport.MethodGetStatus, reply[0])
	if err != nil {
		return enum.StatusUnknown, err
	}
	return enum.ParseStatus(text), nil
}

// Progress asks the daemon for the current progress.
func (s *Session) Progress(ctx context.Context) (event.ProgressChanged, error) {
	reply, err := s.query(ctx, transport.MethodGetProgress, 4)
	if err != nil {
		return event.ProgressChanged{}, err
	}
	var v [4]uint32
	for i := range v {
		n, ok := event.AsUint64(reply[i])
		if !ok || n > math.MaxUint32 {
			return event.ProgressChanged{}, fmt.Errorf("%w: %s value %d is %T", ErrFailed, transport.MethodGetProgress, i, reply[i])
		}
		v[i] = uint32(n)
	}
	return event.ProgressChanged{Percentage: v[0], Subpercentage: v[1], Elapsed: v[2], Remaining: v[3]}, nil
}

// RoleOf reports the role of the bound transaction and the text it acts on.
// A role known locally is answered without a daemon round trip.
func (s *Session) RoleOf(ctx context.Context) (enum.Role, string, error) {
	s.mu.Lock()
	tid := s.tid
	inv := s.invocation
	s.mu.Unlock()
	if tid == "" {
		return enum.RoleUnknown, "", ErrNoTransactionBound
	}
	if inv != nil {
		return inv.Role, inv.Subject(), nil
	}

	reply, err := s.query(ctx, transport.MethodGetRole, 2)
	if err != nil {
		return enum.RoleUnknown, "", err
	}
	roleText, err := replyString(transport.MethodGetRole, reply[0])
	if err != nil {
		return enum.RoleUnknown, "", err
	}
	subject, err := replyString(transport.MethodGetRole, reply[1])
	if err != nil {
		return enum.RoleUnknown, "", err
	}
	return enum.ParseRole(roleText), subject, nil
}

// Package asks the daemon for the id of the package being worked on. It is
// empty until the transaction reports one.
func (s *Session) Package(ctx context.Context) (string, error) {
	reply, err := s.query(ctx, transport.MethodGetPackage, 1)
	if err != nil {
		return "", err
	}
	return replyString(transport.MethodGetPackage, reply[0])
}

// AllowCancel asks the daemon whether the transaction may still be cancelled.
func (s *Session) AllowCancel(ctx context.Context) (bool, error) {
	return s.queryBool(ctx, transport.MethodGetAllowCancel)
}

// IsCallerActive asks the daemon whether the calling process is still alive.
func (s *Session) IsCallerActive(ctx context.Context) (bool, error) {
	return s.queryBool(ctx, transport.MethodIsCallerActive)
}

func (s *Session) queryBool(ctx context.Context, method string) (bool, error) {
	reply, err := s.query(ctx, method, 1)
	if err != nil {
		return false, err
	}
	v, ok := reply[0].(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s replied with %T", ErrFailed, method, reply[0])
	}
	return v, nil
}

func replyString(method string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s replied with %T", ErrFailed, method, v)
	}
	return s, nil
}
