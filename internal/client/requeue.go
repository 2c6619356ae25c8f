// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"context"
	"fmt"

	"github.com/ManuGH/pkclient/internal/log"
	"github.com/ManuGH/pkclient/internal/metrics"
)

// Requeue replays the cached invocation under a fresh transaction id. The
// previous transaction must have finished; it is not cancelled.
func (s *Session) Requeue(ctx context.Context) error {
	s.mu.Lock()
	if s.invocation == nil {
		s.mu.Unlock()
		return ErrRoleUnknown
	}
	if s.binding || (s.tid != "" && !s.finished) {
		tid := s.tid
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFinished, tid)
	}
	inv := s.invocation.clone()
	prev := s.tid
	b, l, done := s.detachLocked()
	s.mu.Unlock()
	s.closeBinding(b, l, done)

	err := s.invoke(ctx, inv)
	metrics.RecordRequeue(inv.Role.String(), err)
	s.logger.Info().
		Err(err).
		Str(log.FieldRole, inv.Role.String()).
		Str("previous_tid", prev.String()).
		Str(log.FieldTID, s.TID().String()).
		Msg("transaction requeued")
	return err
}
