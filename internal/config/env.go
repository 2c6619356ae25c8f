// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/pkclient/internal/log"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PKCLIENT_"

// ParseString reads a string from the environment or returns the default.
// The source is logged; secrets are never logged by value.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	value, ok := os.LookupEnv(key)
	switch {
	case !ok || value == "":
		logDefault(logger, key)
		return defaultValue
	case isSensitive(key):
		logger.Debug().Str("key", key).Str("source", "environment").Bool("sensitive", true).Msg("using environment variable")
	default:
		logger.Debug().Str("key", key).Str("value", value).Str("source", "environment").Msg("using environment variable")
	}
	return value
}

// ParseInt reads an integer, falling back to the default on parse errors.
func ParseInt(key string, defaultValue int) int {
	return parseWith(key, defaultValue, strconv.Atoi)
}

// ParseDuration reads a Go duration such as "5s".
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseWith(key, defaultValue, time.ParseDuration)
}

// ParseFloat reads a float64.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseWith(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// ParseBool accepts true/false, 1/0 and yes/no in any case.
func ParseBool(key string, defaultValue bool) bool {
	return parseWith(key, defaultValue, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, strconv.ErrSyntax
	})
}

func parseWith[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		logDefault(logger, key)
		return defaultValue
	}
	v, err := parse(raw)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", raw).
			Interface("default", defaultValue).
			Msg("invalid value in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Interface("value", v).
		Str("source", "environment").
		Msg("using environment variable")
	return v
}

func logDefault(logger zerolog.Logger, key string) {
	logger.Debug().Str("key", key).Str("source", "default").Msg("using default value")
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "password") || strings.Contains(lower, "token")
}
