// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey uint8

const (
	correlationIDKey ctxKey = iota
	tidKey
)

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func valueOf(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// ContextWithCorrelationID tags ctx with an operation-wide correlation id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withValue(ctx, correlationIDKey, id)
}

// ContextWithTID tags ctx with the transaction id being driven.
func ContextWithTID(ctx context.Context, tid string) context.Context {
	return withValue(ctx, tidKey, tid)
}

func CorrelationIDFromContext(ctx context.Context) string { return valueOf(ctx, correlationIDKey) }

func TIDFromContext(ctx context.Context) string { return valueOf(ctx, tidKey) }

// WithContext adds the tid, correlation id and active span of ctx to logger.
// The logger is returned unchanged when ctx carries none of them.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	fields := map[string]any{}
	if v := CorrelationIDFromContext(ctx); v != "" {
		fields[FieldCorrelationID] = v
	}
	if v := TIDFromContext(ctx); v != "" {
		fields[FieldTID] = v
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields[FieldTraceID] = sc.TraceID().String()
		fields[FieldSpanID] = sc.SpanID().String()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With().Fields(fields).Logger()
}

// WithComponentFromContext is WithComponent enriched from ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
