// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package packageid validates and decomposes package identifiers of the form
// "name;version;arch;data".
package packageid

import (
	"errors"
	"fmt"
	"strings"
)

const (
	separator = ";"
	sections  = 4

	// ListSeparator joins several identifiers, or file paths, into the one
	// text a transaction reports as its subject.
	ListSeparator = "|"
)

// ErrInvalid is returned for identifiers that do not split into exactly four
// non-empty sections.
var ErrInvalid = errors.New("invalid package id")

// ID is a decomposed package identifier.
type ID struct {
	Name    string
	Version string
	Arch    string
	Data    string
}

// Parse splits raw into its sections.
func Parse(raw string) (ID, error) {
	parts := strings.Split(raw, separator)
	if len(parts) != sections {
		return ID{}, fmt.Errorf("%w: %q has %d sections, want %d", ErrInvalid, raw, len(parts), sections)
	}
	for i, p := range parts {
		if p == "" {
			return ID{}, fmt.Errorf("%w: %q section %d is empty", ErrInvalid, raw, i+1)
		}
	}
	return ID{Name: parts[0], Version: parts[1], Arch: parts[2], Data: parts[3]}, nil
}

// Check reports whether raw is a well-formed identifier.
func Check(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

// CheckAll validates every identifier in ids. An empty list is invalid.
func CheckAll(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: empty list", ErrInvalid)
	}
	for _, id := range ids {
		if _, err := Parse(id); err != nil {
			return err
		}
	}
	return nil
}

// JoinList joins items with ListSeparator.
func JoinList(items []string) string {
	return strings.Join(items, ListSeparator)
}

func (id ID) String() string {
	return strings.Join([]string{id.Name, id.Version, id.Arch, id.Data}, separator)
}
