// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func TestCheckWithoutCheckersIsReady(t *testing.T) {
	rep := NewManager("v1").Check(context.Background())
	assert.True(t, rep.Ready)
	assert.Equal(t, StatusHealthy, rep.Status)
	assert.Empty(t, rep.Checks)
}

func TestOneFailingCheckMakesUnready(t *testing.T) {
	m := NewManager("v1")
	m.Register(Ping("bus", ok))
	m.Register(Ping("history", func(context.Context) error { return errors.New("disk gone") }))

	rep := m.Check(context.Background())
	assert.False(t, rep.Ready)
	assert.Equal(t, StatusUnhealthy, rep.Status)
	assert.Equal(t, CheckResult{Status: StatusHealthy}, rep.Checks["bus"])
	assert.Equal(t, CheckResult{Status: StatusUnhealthy, Error: "disk gone"}, rep.Checks["history"])
}

func TestSlowCheckTimesOut(t *testing.T) {
	m := NewManager("v1")
	m.timeout = 10 * time.Millisecond
	m.Register(Ping("bus", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	rep := m.Check(context.Background())
	assert.False(t, rep.Ready)
	assert.Contains(t, rep.Checks["bus"].Error, "deadline exceeded")
}

func TestEndpoints(t *testing.T) {
	m := NewManager("v1")
	m.Register(Ping("bus", func(context.Context) error { return errors.New("down") }))

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var rep Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, StatusHealthy, rep.Status)
	assert.Empty(t, rep.Checks, "liveness skips checks unless verbose")

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, StatusUnhealthy, rep.Status)

	rec = httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
