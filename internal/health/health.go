// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package health reports liveness and readiness of the client's
// dependencies: the event bus and the transaction journal.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/pkclient/internal/log"
)

// DefaultCheckTimeout bounds a single dependency check.
const DefaultCheckTimeout = 2 * time.Second

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one dependency check.
type CheckResult struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Report is the body of both endpoints.
type Report struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker probes one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

type pingChecker struct {
	name string
	ping func(context.Context) error
}

func (c pingChecker) Name() string                    { return c.name }
func (c pingChecker) Check(ctx context.Context) error { return c.ping(ctx) }

// Ping adapts a ping function, such as a bus or database health check.
func Ping(name string, ping func(context.Context) error) Checker {
	return pingChecker{name: name, ping: ping}
}

// Manager runs the registered checkers.
type Manager struct {
	version string
	timeout time.Duration

	mu       sync.RWMutex
	checkers []Checker
}

func NewManager(version string) *Manager {
	return &Manager{version: version, timeout: DefaultCheckTimeout}
}

// Register adds a checker.
func (m *Manager) Register(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// Check runs every checker concurrently, each under its own timeout.
func (m *Manager) Check(ctx context.Context) Report {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()

	rep := Report{Status: StatusHealthy, Ready: true, Version: m.version, Timestamp: time.Now()}
	if len(checkers) == 0 {
		return rep
	}

	results := make([]CheckResult, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()
			if err := c.Check(cctx); err != nil {
				results[i] = CheckResult{Status: StatusUnhealthy, Error: err.Error()}
				return
			}
			results[i] = CheckResult{Status: StatusHealthy}
		}()
	}
	wg.Wait()

	rep.Checks = make(map[string]CheckResult, len(checkers))
	for i, c := range checkers {
		rep.Checks[c.Name()] = results[i]
		if results[i].Status == StatusUnhealthy {
			rep.Status = StatusUnhealthy
			rep.Ready = false
		}
	}
	return rep
}

// ServeHealth is the liveness probe: always 200, with component checks
// when ?verbose=true.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	rep := Report{Status: StatusHealthy, Ready: true, Version: m.version, Timestamp: time.Now()}
	if r.URL.Query().Get("verbose") == "true" {
		rep = m.Check(r.Context())
	}
	m.write(w, r, http.StatusOK, rep)
}

// ServeReady is the readiness probe: 503 while any dependency is down.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	rep := m.Check(r.Context())
	code := http.StatusOK
	if !rep.Ready {
		code = http.StatusServiceUnavailable
	}
	m.write(w, r, code, rep)
}

func (m *Manager) write(w http.ResponseWriter, r *http.Request, code int, rep Report) {
	logger := log.WithComponentFromContext(r.Context(), "health")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		logger.Error().Err(err).Msg("failed to encode health report")
		return
	}
	logger.Debug().Str("status", string(rep.Status)).Bool("ready", rep.Ready).Msg("health checked")
}
