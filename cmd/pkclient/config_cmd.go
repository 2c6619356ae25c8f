// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/pkclient/internal/config"
)

const redacted = "***"

// runConfig works on the configuration run already loaded and validated.
func runConfig(cfg config.Config, args []string, out io.Writer) error {
	if len(args) != 1 {
		return usagef("usage: pkclient config validate|dump")
	}
	switch args[0] {
	case "validate":
		fmt.Fprintln(out, "✓ configuration is valid")
		return nil
	case "dump":
		if cfg.Bus.Redis.Password != "" {
			cfg.Bus.Redis.Password = redacted
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
		return enc.Close()
	}
	return usagef("unknown config command: %s", args[0])
}
