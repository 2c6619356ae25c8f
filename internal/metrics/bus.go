// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Topics are transaction ids, so they never appear as labels.
var (
	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pkclient_bus_dropped_total",
		Help: "Total number of bus messages dropped on publish, by reason.",
	}, []string{"reason"})

	BusDecodeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pkclient_bus_decode_failures_total",
		Help: "Total number of bus payloads that could not be decoded, by transport.",
	}, []string{"transport"})
)

// IncBusDropReason records a dropped bus message with a concrete reason.
func IncBusDropReason(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(reason).Inc()
}

// IncBusDecodeFailure records a payload the transport could not decode.
func IncBusDecodeFailure(transport string) {
	BusDecodeFailuresTotal.WithLabelValues(transport).Inc()
}
