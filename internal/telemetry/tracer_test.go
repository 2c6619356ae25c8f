// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ServiceName: "pkclient", ExporterType: "grpc"})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProviderInvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "pkclient", ExporterType: "carrier-pigeon"})
	require.EqualError(t, err, "unsupported exporter type: carrier-pigeon (supported: grpc, http)")
}

func TestNewProviderHTTPExporter(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "pkclient",
		ExporterType: "http",
		Endpoint:     "127.0.0.1:4318",
		Insecure:     true,
		SamplingRate: 0.5,
	})
	require.NoError(t, err)
	require.NotNil(t, provider.tp)
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestRoleAttributes(t *testing.T) {
	attrs := RoleAttributes("install-packages", "InstallPackages", true, false)
	require.Len(t, attrs, 4)
	assert.Equal(t, "install-packages", attrs[0].Value.AsString())
	assert.True(t, attrs[2].Value.AsBool())
	assert.False(t, attrs[3].Value.AsBool())
}

func TestRootSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), rootSampler(1.5).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), rootSampler(0).Description())
	assert.Contains(t, rootSampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestShutdownOfNilProvider(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}
