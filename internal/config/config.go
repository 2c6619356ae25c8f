// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the client configuration: defaults, then a strict
// YAML file, then PKCLIENT_* environment overrides, then validation.
package config

import (
	"time"

	"github.com/ManuGH/pkclient/internal/bus/redisbus"
	"github.com/ManuGH/pkclient/internal/dummy"
)

// Config is the effective configuration.
type Config struct {
	Version string `yaml:"-"`

	Log       LogConfig       `yaml:"log"`
	Backend   BackendConfig   `yaml:"backend"`
	Bus       BusConfig       `yaml:"bus"`
	Client    ClientConfig    `yaml:"client"`
	History   HistoryConfig   `yaml:"history"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// BackendConfig selects the daemon the client talks to.
type BackendConfig struct {
	Kind string `yaml:"kind"`
	// Step paces the dummy daemon's events.
	Step        time.Duration `yaml:"step"`
	RequireAuth bool          `yaml:"requireAuth"`
	// GrantAuth is the answer of the built-in privilege agent.
	GrantAuth bool `yaml:"grantAuth"`
}

type BusConfig struct {
	Kind  string      `yaml:"kind"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ClientConfig holds session defaults.
type ClientConfig struct {
	Synchronous bool          `yaml:"synchronous"`
	Buffer      bool          `yaml:"buffer"`
	Timeout     time.Duration `yaml:"timeout"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// Keep bounds the journal; zero keeps everything.
	Keep int `yaml:"keep"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

// Backend and bus kinds.
const (
	BackendDummy = "dummy"
	BusMemory    = "memory"
	BusRedis     = "redis"
)

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Backend: BackendConfig{
			Kind:      BackendDummy,
			Step:      dummy.DefaultStep,
			GrantAuth: true,
		},
		Bus: BusConfig{
			Kind:  BusMemory,
			Redis: RedisConfig{Addr: "localhost:6379", Prefix: redisbus.DefaultPrefix},
		},
		Client: ClientConfig{
			Synchronous: true,
			Buffer:      true,
			Timeout:     5 * time.Minute,
		},
		History: HistoryConfig{Path: "pkclient-history.sqlite", Keep: 500},
		Metrics: MetricsConfig{Listen: "127.0.0.1:9464"},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "development",
		},
	}
}
