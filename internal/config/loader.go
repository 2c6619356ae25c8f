// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownConfigField classifies strict parse failures caused by unknown keys.
var ErrUnknownConfigField = errors.New("unknown config field")

// Loader loads configuration with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
	// ConsumedEnvKeys records every variable the loader looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty configPath skips the file stage.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) key(name string) string {
	k := EnvPrefix + name
	l.ConsumedEnvKeys[k] = struct{}{}
	return k
}

func (l *Loader) envString(name, def string) string  { return ParseString(l.key(name), def) }
func (l *Loader) envBool(name string, def bool) bool { return ParseBool(l.key(name), def) }
func (l *Loader) envInt(name string, def int) int    { return ParseInt(l.key(name), def) }
func (l *Loader) envFloat(name string, def float64) float64 {
	return ParseFloat(l.key(name), def)
}
func (l *Loader) envDuration(name string, def time.Duration) time.Duration {
	return ParseDuration(l.key(name), def)
}

// Load parses the file strictly, applies the environment, then validates.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if cfg.History.Path != "" {
		if abs, err := filepath.Abs(cfg.History.Path); err == nil {
			cfg.History.Path = abs
		}
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg. Unknown keys and trailing
// documents are errors.
func (l *Loader) loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- the operator chooses the config path
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *Config) {
	cfg.Log.Level = l.envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Console = l.envBool("LOG_CONSOLE", cfg.Log.Console)

	cfg.Backend.Kind = l.envString("BACKEND", cfg.Backend.Kind)
	cfg.Backend.Step = l.envDuration("BACKEND_STEP", cfg.Backend.Step)
	cfg.Backend.RequireAuth = l.envBool("BACKEND_REQUIRE_AUTH", cfg.Backend.RequireAuth)
	cfg.Backend.GrantAuth = l.envBool("BACKEND_GRANT_AUTH", cfg.Backend.GrantAuth)

	cfg.Bus.Kind = l.envString("BUS", cfg.Bus.Kind)
	cfg.Bus.Redis.Addr = l.envString("REDIS_ADDR", cfg.Bus.Redis.Addr)
	cfg.Bus.Redis.Password = l.envString("REDIS_PASSWORD", cfg.Bus.Redis.Password)
	cfg.Bus.Redis.DB = l.envInt("REDIS_DB", cfg.Bus.Redis.DB)
	cfg.Bus.Redis.Prefix = l.envString("REDIS_PREFIX", cfg.Bus.Redis.Prefix)

	cfg.Client.Synchronous = l.envBool("SYNCHRONOUS", cfg.Client.Synchronous)
	cfg.Client.Buffer = l.envBool("BUFFER", cfg.Client.Buffer)
	cfg.Client.Timeout = l.envDuration("TIMEOUT", cfg.Client.Timeout)

	cfg.History.Enabled = l.envBool("HISTORY_ENABLED", cfg.History.Enabled)
	cfg.History.Path = l.envString("HISTORY_PATH", cfg.History.Path)
	cfg.History.Keep = l.envInt("HISTORY_KEEP", cfg.History.Keep)

	cfg.Metrics.Enabled = l.envBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Listen = l.envString("METRICS_LISTEN", cfg.Metrics.Listen)

	cfg.Telemetry.Enabled = l.envBool("TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Insecure = l.envBool("TELEMETRY_INSECURE", cfg.Telemetry.Insecure)
	cfg.Telemetry.SamplingRate = l.envFloat("TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = l.envString("TELEMETRY_ENVIRONMENT", cfg.Telemetry.Environment)
}
