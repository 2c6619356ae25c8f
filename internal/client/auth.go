// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"context"
	"fmt"

	"github.com/ManuGH/pkclient/internal/log"
	"github.com/ManuGH/pkclient/internal/metrics"
	"github.com/ManuGH/pkclient/internal/transport"
)

// authorize runs action, and on a policy denial asks the privilege authority
// once and retries once. A second denial is ErrAuthFailed. Any other error of
// the retry is returned normalized, never retried.
func (s *Session) authorize(ctx context.Context, tid transport.TransactionID, action func(context.Context) error) (attempts int, err error) {
	err = action(ctx)
	attempts = 1
	if !transport.IsRefusedByPolicy(err) {
		return attempts, normalize(err)
	}

	description := describe(err)
	granted := false
	if s.privilege != nil {
		granted = s.privilege.Escalate(ctx, description)
	}
	if granted {
		metrics.RecordEscalation("granted")
		s.logger.Info().Str(log.FieldTID, tid.String()).Msg("privilege granted, retrying")
		err = action(ctx)
		attempts++
	} else {
		metrics.RecordEscalation("denied")
	}

	if transport.IsRefusedByPolicy(err) {
		s.logger.Warn().Str(log.FieldTID, tid.String()).Int(log.FieldAttempt, attempts).Msg("refused by policy")
		return attempts, fmt.Errorf("%w: %s", ErrAuthFailed, describe(err))
	}
	return attempts, normalize(err)
}
