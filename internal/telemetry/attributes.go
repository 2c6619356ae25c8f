// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by client spans.
const (
	TransactionIDKey   = "pk.transaction.id"
	TransactionRoleKey = "pk.transaction.role"
	TransactionExitKey = "pk.transaction.exit"
	MethodKey          = "pk.method"
	MutatingKey        = "pk.mutating"
	SynchronousKey     = "pk.synchronous"
	AttemptsKey        = "pk.attempts"
	PackageCountKey    = "pk.packages"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// RoleAttributes describes a role invocation before it is issued.
func RoleAttributes(role, method string, mutating, synchronous bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(TransactionRoleKey, role),
		attribute.String(MethodKey, method),
		attribute.Bool(MutatingKey, mutating),
		attribute.Bool(SynchronousKey, synchronous),
	}
}

// TransactionAttributes names the bound transaction.
func TransactionAttributes(tid string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(TransactionIDKey, tid)}
}

// ErrorAttributes classifies a failed span.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

// AttemptsAttribute records how often a call was issued.
func AttemptsAttribute(n int) attribute.KeyValue {
	return attribute.Int(AttemptsKey, n)
}

// ExitAttribute records how the transaction ended.
func ExitAttribute(exit string) attribute.KeyValue {
	return attribute.String(TransactionExitKey, exit)
}
