// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// pkclient drives package transactions against the in-process daemon and
// prints the events each transaction emits.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ManuGH/pkclient/internal/config"
	"github.com/ManuGH/pkclient/internal/log"
	"github.com/ManuGH/pkclient/internal/version"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// globals are the flags accepted before the command name. Flags override
// environment, which overrides the config file.
type globals struct {
	configPath    string
	showVersion   bool
	logLevel      string
	console       bool
	bus           string
	redisAddr     string
	async         bool
	noBuffer      bool
	timeout       time.Duration
	step          time.Duration
	requireAuth   bool
	denyAuth      bool
	noHistory     bool
	metricsListen string
	otlpExporter  string
	otlpEndpoint  string
	verbose       bool
	assumeYes     bool
}

func (g *globals) register(fs *pflag.FlagSet) {
	fs.StringVarP(&g.configPath, "config", "c", "", "path to config file (YAML)")
	fs.BoolVar(&g.showVersion, "version", false, "print version and exit")
	fs.StringVar(&g.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	fs.BoolVar(&g.console, "console", false, "human readable logs")
	fs.StringVar(&g.bus, "bus", "", "event bus: memory or redis")
	fs.StringVar(&g.redisAddr, "redis-addr", "", "redis address for --bus=redis")
	fs.BoolVar(&g.async, "async", false, "return from role calls at once and wait for completion separately")
	fs.BoolVar(&g.noBuffer, "no-buffer", false, "do not buffer package events")
	fs.DurationVar(&g.timeout, "timeout", 0, "give up on a transaction after this long")
	fs.DurationVar(&g.step, "step", 0, "pause between events emitted by the dummy daemon")
	fs.BoolVar(&g.requireAuth, "require-auth", false, "daemon refuses mutating calls until authorized")
	fs.BoolVar(&g.denyAuth, "deny-auth", false, "the authentication agent refuses every request")
	fs.BoolVar(&g.noHistory, "no-history", false, "do not journal finished transactions")
	fs.StringVar(&g.metricsListen, "metrics-listen", "", "serve /metrics and /healthz on this address while running")
	fs.StringVar(&g.otlpExporter, "otlp-exporter", "", "export traces over OTLP: grpc or http")
	fs.StringVar(&g.otlpEndpoint, "otlp-endpoint", "", "OTLP collector endpoint")
	fs.BoolVarP(&g.verbose, "verbose", "v", false, "print status and progress changes")
	fs.BoolVarP(&g.assumeYes, "assume-yes", "y", false, "accept EULAs and trust repository keys when asked")
}

// loadConfig loads file and environment, then applies the flags that were set.
func (g *globals) loadConfig(fs *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.NewLoader(g.configPath, version.Version).Load()
	if err != nil {
		return cfg, err
	}

	if fs.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if fs.Changed("console") {
		cfg.Log.Console = g.console
	}
	if fs.Changed("bus") {
		cfg.Bus.Kind = g.bus
	}
	if fs.Changed("redis-addr") {
		cfg.Bus.Redis.Addr = g.redisAddr
		if !fs.Changed("bus") {
			cfg.Bus.Kind = config.BusRedis
		}
	}
	if fs.Changed("async") {
		cfg.Client.Synchronous = !g.async
	}
	if fs.Changed("no-buffer") {
		cfg.Client.Buffer = !g.noBuffer
	}
	if fs.Changed("timeout") {
		cfg.Client.Timeout = g.timeout
	}
	if fs.Changed("step") {
		cfg.Backend.Step = g.step
	}
	if fs.Changed("require-auth") {
		cfg.Backend.RequireAuth = g.requireAuth
	}
	if fs.Changed("deny-auth") {
		cfg.Backend.GrantAuth = !g.denyAuth
	}
	if fs.Changed("no-history") {
		cfg.History.Enabled = !g.noHistory
	}
	if fs.Changed("metrics-listen") {
		cfg.Metrics.Enabled = g.metricsListen != ""
		cfg.Metrics.Listen = g.metricsListen
	}
	if fs.Changed("otlp-exporter") {
		cfg.Telemetry.Enabled = g.otlpExporter != ""
		cfg.Telemetry.Exporter = g.otlpExporter
	}
	if fs.Changed("otlp-endpoint") {
		cfg.Telemetry.Endpoint = g.otlpEndpoint
	}

	if err := config.Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// run is main without the process exit, so tests can drive it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var g globals
	fs := pflag.NewFlagSet("pkclient", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	g.register(fs)
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if g.showVersion {
		fmt.Fprintln(stdout, version.String())
		return exitOK
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return exitUsage
	}
	if rest[0] == "version" {
		fmt.Fprintln(stdout, version.String())
		return exitOK
	}
	if rest[0] == "help" {
		printUsage(stdout, fs)
		return exitOK
	}

	cfg, err := g.loadConfig(fs)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return exitFailed
	}
	log.Reconfigure(log.Config{
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console,
		Output:  stderr,
		Version: cfg.Version,
	})

	switch rest[0] {
	case "config":
		return exitCode(stderr, runConfig(cfg, rest[1:], stdout))
	case "history":
		return exitCode(stderr, runHistory(ctx, cfg, rest[1:], stdout))
	}

	cmd, ok := lookup(rest[0])
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", rest[0])
		printUsage(stderr, fs)
		return exitUsage
	}
	return exitCode(stderr, runCommand(ctx, cfg, g, cmd, rest[1:], stdout, stderr))
}

func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: pkclient [flags] <command> [command flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-40s %s\n", c.Name+" "+c.Args, c.Summary)
	}
	fmt.Fprintf(w, "  %-40s %s\n", "history list|prune|verify", "inspect the local transaction journal")
	fmt.Fprintf(w, "  %-40s %s\n", "config validate|dump", "check or print the effective configuration")
	fmt.Fprintf(w, "  %-40s %s\n", "version", "print build information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, fs.FlagUsages())
}
