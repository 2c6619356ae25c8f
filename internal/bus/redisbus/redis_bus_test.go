// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package redisbus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/pkclient/internal/bus"
	"github.com/ManuGH/pkclient/internal/client"
	"github.com/ManuGH/pkclient/internal/dummy"
	"github.com/ManuGH/pkclient/internal/metrics"
	"github.com/ManuGH/pkclient/internal/pk/enum"
	"github.com/ManuGH/pkclient/internal/pk/event"
)

// setupMiniRedis starts a test server and a bus on top of it.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *Bus) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return mr, New(rc, "", zerolog.Nop())
}

func receive(t *testing.T, sub bus.Subscriber) bus.Message {
	t.Helper()
	select {
	case msg, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestSignalsRoundTripThroughRedis(t *testing.T) {
	_, b := setupMiniRedis(t)
	ctx := context.Background()
	sub, err := b.Subscribe(ctx, "/1_abc_data")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	sent := []event.Event{
		event.Package{Info: enum.InfoInstalled, ID: "bash;5.2;x86_64;fedora", Summary: "shell"},
		event.ProgressChanged{Percentage: 40, Subpercentage: 101, Elapsed: 3, Remaining: 7},
		event.Details{ID: "bash;5.2;x86_64;fedora", License: "GPL", Group: enum.GroupSystem, Size: 1 << 40},
		event.Files{ID: "bash;5.2;x86_64;fedora", Files: []string{"/usr/bin/bash", "/usr/bin/sh"}},
		event.Finished{Exit: enum.ExitSuccess, Runtime: 1500 * time.Millisecond},
	}
	for _, ev := range sent {
		require.NoError(t, b.Publish(ctx, "/1_abc_data", event.Encode(ev)))
	}
	for _, want := range sent {
		sig, ok := receive(t, sub).(bus.Signal)
		require.True(t, ok)
		got, err := event.Decode(sig)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestChannelsArePrefixedPerTransaction(t *testing.T) {
	mr, b := setupMiniRedis(t)
	ctx := context.Background()
	sub, err := b.Subscribe(ctx, "/7_x_data")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	assert.Contains(t, mr.PubSubChannels(""), DefaultPrefix+"/7_x_data")

	require.NoError(t, b.Publish(ctx, "/8_y_data", event.Encode(event.AllowCancel{Allowed: true})))
	require.NoError(t, b.Publish(ctx, "/7_x_data", event.Encode(event.AllowCancel{Allowed: false})))
	sig := receive(t, sub).(bus.Signal)
	got, err := event.Decode(sig)
	require.NoError(t, err)
	assert.Equal(t, event.AllowCancel{Allowed: false}, got)
}

func TestUndecodablePayloadIsCountedAndSkipped(t *testing.T) {
	mr, b := setupMiniRedis(t)
	ctx := context.Background()
	sub, err := b.Subscribe(ctx, "topic")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	before := testutil.ToFloat64(metrics.BusDecodeFailuresTotal.WithLabelValues("redis"))
	mr.Publish(DefaultPrefix+"topic", "not cbor at all")
	require.NoError(t, b.Publish(ctx, "topic", bus.Signal{Name: "AllowCancel", Body: []any{true}}))

	sig := receive(t, sub).(bus.Signal)
	assert.Equal(t, "AllowCancel", sig.Name)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.BusDecodeFailuresTotal.WithLabelValues("redis")))
}

func TestPublishRejectsForeignMessages(t *testing.T) {
	_, b := setupMiniRedis(t)
	err := b.Publish(context.Background(), "topic", "plain string")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported message type")
}

func TestCloseEndsSubscription(t *testing.T) {
	_, b := setupMiniRedis(t)
	sub, err := b.Subscribe(context.Background(), "topic")
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	_, ok := <-sub.C()
	assert.False(t, ok)
}

func TestDialFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Dial(context.Background(), Config{Addr: addr}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis connection failed")
}

func TestSessionOverRedis(t *testing.T) {
	mr, _ := setupMiniRedis(t)
	b, err := Dial(context.Background(), Config{Addr: mr.Addr(), Prefix: "test:"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	d := dummy.New(b, dummy.WithStep(time.Millisecond), dummy.WithLogger(zerolog.Nop()))
	t.Cleanup(func() { _ = d.Close() })
	s := client.New(d, d, b, client.WithLogger(zerolog.Nop()), client.WithSynchronous(true), client.WithBuffer())
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.GetPackages(context.Background(), enum.FilterInstalled))

	out, ok := s.Outcome()
	require.True(t, ok)
	assert.Equal(t, enum.ExitSuccess, out.Exit)
	assert.Len(t, s.Packages(), 3)
	for _, p := range s.Packages() {
		assert.Equal(t, enum.InfoInstalled, p.Info)
	}
}
