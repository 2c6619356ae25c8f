// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JournalWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pkclient_history_writes_total",
		Help: "Total number of transaction journal writes, by result.",
	}, []string{"result"})

	JournalWriteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pkclient_history_write_duration_seconds",
		Help:    "Latency of transaction journal writes.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
)

// RecordJournalWrite records one journal write started at start.
func RecordJournalWrite(start time.Time, err error) {
	JournalWritesTotal.WithLabelValues(resultLabel(err)).Inc()
	JournalWriteDuration.Observe(time.Since(start).Seconds())
}
