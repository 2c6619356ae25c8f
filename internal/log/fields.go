// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Process fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldComponent = "component"
	FieldEvent     = "event"

	// Transaction fields
	FieldTID      = "tid"
	FieldRole     = "role"
	FieldMethod   = "method"
	FieldStatus   = "status"
	FieldExit     = "exit"
	FieldRestart  = "restart"
	FieldRuntime  = "runtime_ms"
	FieldAttempt  = "attempt"
	FieldPackages = "packages"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Correlation fields
	FieldTraceID       = "trace_id"
	FieldSpanID        = "span_id"
	FieldCorrelationID = "correlation_id"

	// Transport fields
	FieldTopic     = "topic"
	FieldTransport = "transport"
	FieldPath      = "path"
)
