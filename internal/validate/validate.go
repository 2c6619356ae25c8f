// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package validate accumulates configuration validation failures.
package validate

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Error is one failed check.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validator collects errors across checks.
type Validator struct {
	errors []Error
}

// ValidationError bundles every failed check.
type ValidationError struct {
	errors []Error
}

func New() *Validator {
	return &Validator{}
}

// AddError records a failed check.
func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{Field: field, Value: value, Message: message})
}

func (v *Validator) IsValid() bool { return len(v.errors) == 0 }

// Err returns nil when every check passed.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return ValidationError{errors: slices.Clone(v.errors)}
}

// Errors returns the individual failures.
func (e ValidationError) Errors() []Error { return e.errors }

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Range checks lo <= value <= hi.
func (v *Validator) Range(field string, value, lo, hi int) {
	if value < lo || value > hi {
		v.AddError(field, fmt.Sprintf("value must be between %d and %d, got %d", lo, hi, value), value)
	}
}

// FloatRange checks lo <= value <= hi.
func (v *Validator) FloatRange(field string, value, lo, hi float64) {
	if value < lo || value > hi {
		v.AddError(field, fmt.Sprintf("value must be between %g and %g, got %g", lo, hi, value), value)
	}
}

// NotEmpty rejects empty or whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

// OneOf checks value against the allowed set.
func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("value must be one of %v, got %q", allowed, value), value)
	}
}

// NonNegative rejects negative numbers.
func (v *Validator) NonNegative(field string, value int) {
	if value < 0 {
		v.AddError(field, fmt.Sprintf("value cannot be negative, got %d", value), value)
	}
}

// HostPort checks a host:port address with a valid port. An empty host
// listens on every interface.
func (v *Validator) HostPort(field, addr string) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid address: %v", err), addr)
		return
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		v.AddError(field, fmt.Sprintf("port must be between 1 and 65535, got %q", port), addr)
	}
}

// ParentDir checks that the directory holding path exists.
func (v *Validator) ParentDir(field, path string) {
	if path == "" {
		v.AddError(field, "path cannot be empty", path)
		return
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		v.AddError(field, fmt.Sprintf("directory %s does not exist", dir), path)
	case err != nil:
		v.AddError(field, fmt.Sprintf("cannot access directory: %v", err), path)
	case !info.IsDir():
		v.AddError(field, fmt.Sprintf("%s is not a directory", dir), path)
	}
}
