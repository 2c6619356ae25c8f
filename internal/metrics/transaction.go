// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics provides Prometheus metrics for the transaction client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Labels are bounded enums only: role, exit, event name, result.
// Transaction ids never become labels.

var (
	// TransactionsStartedTotal counts role invocations that reached the daemon.
	TransactionsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pkclient_transactions_started_total",
		Help: "Total number of role invocations issued to the daemon, by role and result.",
	}, []string{"role", "result"})

	// TransactionsFinishedTotal counts completion events by exit kind.
	TransactionsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pkclient_transactions_finished_total",
		Help: "Total number of finished transactions, by role and exit kind.",
	}, []string{"role", "exit"})

	// ValidationRejectsTotal counts calls refused before a transaction id was allocated.
	ValidationRejectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pkclient_validation_rejects_total",
		Help: "Total number of role invocations rejected by input validation, by role.",
	}, []string{"role"})

	// AuthRetriesTotal counts privilege escalations by outcome.
	AuthRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pkclient_auth_escalations_total",
		Help: "Total number of privilege escalations after a policy denial, by result (granted/denied/failed).",
	}, []string{"result"})

	// EventsTotal counts decoded inbound events by name.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pkclient_events_total",
		Help: "Total number of transaction events received, by event name.",
	}, []string{"event"})

	// EventsDroppedTotal counts inbound events that were not applied.
	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pkclient_events_dropped_total",
		Help: "Total number of transaction events dropped, by reason (malformed/duplicate_finished/stale).",
	}, []string{"reason"})

	// RequeuesTotal counts replays of a finished transaction.
	RequeuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pkclient_requeues_total",
		Help: "Total number of requeue attempts, by role and result.",
	}, []string{"role", "result"})

	// ActiveTransactions tracks sessions currently bound to an unfinished transaction.
	ActiveTransactions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pkclient_active_transactions",
		Help: "Current number of bound, unfinished transactions in this process.",
	})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordStarted records the outcome of issuing a role call.
func RecordStarted(role string, err error) {
	TransactionsStartedTotal.WithLabelValues(role, resultLabel(err)).Inc()
}

// RecordFinished records a completion event.
func RecordFinished(role, exit string) {
	TransactionsFinishedTotal.WithLabelValues(role, exit).Inc()
}

// RecordValidationReject records a call refused before allocation.
func RecordValidationReject(role string) {
	ValidationRejectsTotal.WithLabelValues(role).Inc()
}

// RecordEscalation records a privilege escalation attempt.
func RecordEscalation(result string) {
	AuthRetriesTotal.WithLabelValues(result).Inc()
}

// RecordEvent records a decoded inbound event.
func RecordEvent(name string) {
	EventsTotal.WithLabelValues(name).Inc()
}

// RecordEventDropped records an inbound event that was not applied.
func RecordEventDropped(reason string) {
	EventsDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordRequeue records a requeue attempt.
func RecordRequeue(role string, err error) {
	RequeuesTotal.WithLabelValues(role, resultLabel(err)).Inc()
}
