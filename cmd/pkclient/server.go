// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// newRouter exposes metrics and probes for the lifetime of a command.
// Requests that run dependency checks are traced through tp.
func newRouter(a *app, tp trace.TracerProvider) http.Handler {
	probes := a.health()
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", probes.ServeHealth)
	r.Get("/readyz", probes.ServeReady)
	return otelhttp.NewHandler(r, "pkclient.probes",
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithFilter(runsChecks),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}),
	)
}

// runsChecks selects the requests that ping the bus and the journal.
// Scrapes and plain liveness touch nothing worth a span.
func runsChecks(r *http.Request) bool {
	switch r.URL.Path {
	case "/readyz":
		return true
	case "/healthz":
		return r.URL.Query().Get("verbose") == "true"
	}
	return false
}

// serve runs work, with the metrics server alongside it when enabled. The
// server stops once work returns.
func serve(ctx context.Context, a *app, work func(context.Context) error) error {
	if !a.cfg.Metrics.Enabled {
		return work(ctx)
	}

	ln, err := net.Listen("tcp", a.cfg.Metrics.Listen)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	srv := &http.Server{
		Handler:           newRouter(a, otel.GetTracerProvider()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info().Str("addr", ln.Addr().String()).Msg("metrics server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer func() {
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				a.logger.Warn().Err(err).Msg("metrics server shutdown")
			}
		}()
		return work(gctx)
	})
	return g.Wait()
}
