// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package history

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/pkclient/internal/client"
	"github.com/ManuGH/pkclient/internal/log"
	"github.com/ManuGH/pkclient/internal/metrics"
	"github.com/ManuGH/pkclient/internal/pk/event"
)

const recordTimeout = 5 * time.Second

// Recorder journals every transaction a tracked session finishes.
type Recorder struct {
	store  *Store
	logger zerolog.Logger
}

// NewRecorder writes to store.
func NewRecorder(store *Store, logger zerolog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Track records the session's finished transactions until unsubscribed.
func (r *Recorder) Track(s *client.Session) (unsubscribe func()) {
	return client.On(s, func(ev event.Finished) {
		r.record(s, ev)
	})
}

func (r *Recorder) record(s *client.Session, ev event.Finished) {
	inv, _ := s.Invocation()
	e := Entry{
		TID:      s.TID().String(),
		Role:     s.Role(),
		Exit:     ev.Exit,
		Runtime:  ev.Runtime,
		Restart:  s.RequireRestart(),
		Subject:  inv.Subject(),
		Packages: len(s.Packages()),
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	start := time.Now()
	_, err := r.store.Record(ctx, e)
	metrics.RecordJournalWrite(start, err)
	if err != nil {
		r.logger.Warn().Err(err).Str(log.FieldTID, e.TID).Msg("failed to journal transaction")
		return
	}
	r.logger.Debug().
		Str(log.FieldTID, e.TID).
		Str(log.FieldRole, e.Role.String()).
		Str(log.FieldExit, e.Exit.String()).
		Msg("transaction journaled")
}
