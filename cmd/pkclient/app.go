// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ManuGH/pkclient/internal/bus"
	"github.com/ManuGH/pkclient/internal/bus/redisbus"
	"github.com/ManuGH/pkclient/internal/client"
	"github.com/ManuGH/pkclient/internal/config"
	"github.com/ManuGH/pkclient/internal/dummy"
	"github.com/ManuGH/pkclient/internal/health"
	"github.com/ManuGH/pkclient/internal/history"
	"github.com/ManuGH/pkclient/internal/log"
	"github.com/ManuGH/pkclient/internal/telemetry"
)

const tracerName = "github.com/ManuGH/pkclient"

// app is the wiring behind one command: bus, daemon, journal and tracing.
type app struct {
	cfg    config.Config
	logger zerolog.Logger

	bus      bus.Bus
	redis    *redisbus.Bus
	daemon   *dummy.Daemon
	agent    *dummy.Agent
	journal  *history.Store
	recorder *history.Recorder
	tracing  *telemetry.Provider
}

func newApp(ctx context.Context, cfg config.Config) (a *app, err error) {
	a = &app{cfg: cfg, logger: log.WithComponent("cli")}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.tracing, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "pkclient",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		Insecure:       cfg.Telemetry.Insecure,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return a, fmt.Errorf("telemetry: %w", err)
	}

	switch cfg.Bus.Kind {
	case config.BusRedis:
		a.redis, err = redisbus.Dial(ctx, redisbus.Config{
			Addr:     cfg.Bus.Redis.Addr,
			Password: cfg.Bus.Redis.Password,
			DB:       cfg.Bus.Redis.DB,
			Prefix:   cfg.Bus.Redis.Prefix,
		}, log.WithComponent("redisbus"))
		if err != nil {
			return a, err
		}
		a.bus = a.redis
	default:
		a.bus = bus.NewMemoryBus()
	}

	a.daemon = dummy.New(a.bus,
		dummy.WithStep(cfg.Backend.Step),
		dummy.WithRequireAuth(cfg.Backend.RequireAuth),
	)
	a.agent = a.daemon.Agent(cfg.Backend.GrantAuth)

	if cfg.History.Enabled {
		a.journal, err = history.Open(cfg.History.Path)
		if err != nil {
			return a, err
		}
		a.recorder = history.NewRecorder(a.journal, log.WithComponent("history"))
	}

	a.logger.Debug().
		Str("bus", cfg.Bus.Kind).
		Str("backend", cfg.Backend.Kind).
		Bool("history", cfg.History.Enabled).
		Bool("telemetry", cfg.Telemetry.Enabled).
		Msg("client wired")
	return a, nil
}

// newSession builds a session from the configured client options; opts
// are applied last.
func (a *app) newSession(opts ...client.Option) *client.Session {
	base := []client.Option{
		client.WithLogger(log.WithComponent("client")),
		client.WithTracer(telemetry.Tracer(tracerName)),
		client.WithSynchronous(a.cfg.Client.Synchronous),
		client.WithPrivilegeAuthority(a.agent),
	}
	if a.cfg.Client.Buffer {
		base = append(base, client.WithBuffer())
	}
	s := client.New(a.daemon, a.daemon, a.bus, append(base, opts...)...)
	if a.recorder != nil {
		a.recorder.Track(s)
	}
	return s
}

// health reports on the dependencies this app dialed.
func (a *app) health() *health.Manager {
	m := health.NewManager(a.cfg.Version)
	if a.redis != nil {
		m.Register(health.Ping("bus", a.redis.HealthCheck))
	}
	if a.journal != nil {
		m.Register(health.Ping("history", a.journal.Ping))
	}
	return m
}

// Close stops the daemon before releasing the bus it publishes on, and
// trims the journal to its configured size.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.daemon != nil {
		errs = append(errs, a.daemon.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.journal != nil {
		if keep := a.cfg.History.Keep; keep > 0 {
			if n, err := a.journal.Prune(ctx, keep); err != nil {
				errs = append(errs, err)
			} else if n > 0 {
				a.logger.Debug().Int64("removed", n).Int("keep", keep).Msg("history pruned")
			}
		}
		errs = append(errs, a.journal.Close())
	}
	if a.tracing != nil {
		errs = append(errs, a.tracing.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
