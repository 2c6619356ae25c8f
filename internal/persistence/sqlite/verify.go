// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// VerifyMode selects the integrity pragma.
type VerifyMode string

const (
	VerifyQuick VerifyMode = "quick"
	VerifyFull  VerifyMode = "full"
)

// Verify opens path read-only and runs an integrity check. It returns the
// diagnostic rows, or nil when the database is healthy.
func Verify(ctx context.Context, path string, mode VerifyMode) ([]string, error) {
	cfg := DefaultConfig()
	cfg.ReadOnly = true
	cfg.BusyTimeout = 2 * time.Second
	db, err := Open(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("open for verification: %w", err)
	}
	defer db.Close()

	pragma := "PRAGMA quick_check"
	if mode == VerifyFull {
		pragma = "PRAGMA integrity_check"
	}
	rows, err := db.QueryContext(ctx, pragma)
	if err != nil {
		return nil, fmt.Errorf("integrity pragma failed: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return nil, fmt.Errorf("scan integrity row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Healthy is exactly one "ok" row.
	switch {
	case len(results) == 1 && strings.EqualFold(results[0], "ok"):
		return nil, nil
	case len(results) == 0:
		return []string{"no results returned from integrity check"}, nil
	}
	return results, nil
}
