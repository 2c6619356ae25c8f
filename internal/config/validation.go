// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/rs/zerolog"

	"github.com/ManuGH/pkclient/internal/validate"
)

// Validate checks cfg and reports every problem at once.
func Validate(cfg Config) error {
	v := validate.New()

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil || cfg.Log.Level == "" {
		v.AddError("Log.Level", "must be one of trace, debug, info, warn, error", cfg.Log.Level)
	}

	v.OneOf("Backend.Kind", cfg.Backend.Kind, []string{BackendDummy})
	if cfg.Backend.Step < 0 {
		v.AddError("Backend.Step", "cannot be negative", cfg.Backend.Step)
	}

	v.OneOf("Bus.Kind", cfg.Bus.Kind, []string{BusMemory, BusRedis})
	if cfg.Bus.Kind == BusRedis {
		v.HostPort("Bus.Redis.Addr", cfg.Bus.Redis.Addr)
		v.Range("Bus.Redis.DB", cfg.Bus.Redis.DB, 0, 15)
	}

	if cfg.Client.Timeout < 0 {
		v.AddError("Client.Timeout", "cannot be negative", cfg.Client.Timeout)
	}

	if cfg.History.Enabled {
		v.ParentDir("History.Path", cfg.History.Path)
		v.NonNegative("History.Keep", cfg.History.Keep)
	}

	if cfg.Metrics.Enabled {
		v.HostPort("Metrics.Listen", cfg.Metrics.Listen)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
