// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package history keeps a local journal of finished transactions.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/pkclient/internal/persistence/sqlite"
	"github.com/ManuGH/pkclient/internal/pk/enum"
)

const schemaVersion = 1

// ErrNotFound is returned when no entry matches.
var ErrNotFound = errors.New("history: entry not found")

// Entry is one finished transaction.
type Entry struct {
	ID         string
	TID        string
	Role       enum.Role
	Exit       enum.Exit
	Runtime    time.Duration
	Restart    enum.Restart
	Subject    string
	Packages   int
	FinishedAt time.Time
}

// Succeeded reports whether the transaction exited successfully.
func (e Entry) Succeeded() bool { return e.Exit == enum.ExitSuccess }

// Store is the SQLite journal.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal at path.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history store: migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		tid TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		exit TEXT NOT NULL,
		runtime_ms INTEGER NOT NULL,
		restart TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		packages INTEGER NOT NULL DEFAULT 0,
		finished_at_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_finished ON transactions(finished_at_ms);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Record stores e. A missing ID or FinishedAt is filled in. Recording the
// same transaction id twice keeps the latest entry.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.TID == "" {
		return Entry{}, errors.New("history: entry without transaction id")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now()
	}
	query := `
	INSERT INTO transactions (id, tid, role, exit, runtime_ms, restart, subject, packages, finished_at_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(tid) DO UPDATE SET
		role = excluded.role,
		exit = excluded.exit,
		runtime_ms = excluded.runtime_ms,
		restart = excluded.restart,
		subject = excluded.subject,
		packages = excluded.packages,
		finished_at_ms = excluded.finished_at_ms
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.TID, e.Role.String(), e.Exit.String(), e.Runtime.Milliseconds(),
		e.Restart.String(), e.Subject, e.Packages, e.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("history: record %s: %w", e.TID, err)
	}
	return e, nil
}

const selectColumns = `SELECT id, tid, role, exit, runtime_ms, restart, subject, packages, finished_at_ms FROM transactions`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                   Entry
		role, exit, restart string
		runtimeMS, finished int64
	)
	if err := row.Scan(&e.ID, &e.TID, &role, &exit, &runtimeMS, &restart, &e.Subject, &e.Packages, &finished); err != nil {
		return Entry{}, err
	}
	e.Role = enum.ParseRole(role)
	e.Exit = enum.ParseExit(exit)
	e.Restart = enum.ParseRestart(restart)
	e.Runtime = time.Duration(runtimeMS) * time.Millisecond
	e.FinishedAt = time.UnixMilli(finished)
	return e, nil
}

// Get returns the entry for a transaction id.
func (s *Store) Get(ctx context.Context, tid string) (Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, selectColumns+` WHERE tid = ?`, tid))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, tid)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("history: get %s: %w", tid, err)
	}
	return e, nil
}

// List returns up to limit entries, newest first. A limit of zero lists all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := selectColumns + ` ORDER BY finished_at_ms DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep entries and reports how many went.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
	DELETE FROM transactions WHERE id NOT IN (
		SELECT id FROM transactions ORDER BY finished_at_ms DESC, rowid DESC LIMIT ?
	)`, keep)
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
