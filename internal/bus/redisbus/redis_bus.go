// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package redisbus carries transaction signals over Redis pub/sub. Each
// transaction id maps to one channel.
package redisbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/pkclient/internal/bus"
	"github.com/ManuGH/pkclient/internal/log"
	"github.com/ManuGH/pkclient/internal/metrics"
)

// DefaultPrefix namespaces the pub/sub channels.
const DefaultPrefix = "pkclient:tx:"

const subscriberBuffer = 64

// Config holds the Redis connection settings.
type Config struct {
	Addr     string // host:port
	Password string
	DB       int
	Prefix   string
}

// Bus implements bus.Bus on Redis pub/sub.
type Bus struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
	owned  bool
}

// New wraps an existing client. The caller keeps ownership of it.
func New(client *redis.Client, prefix string, logger zerolog.Logger) *Bus {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Bus{client: client, prefix: prefix, logger: logger}
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, cfg Config, logger zerolog.Logger) (*Bus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis bus")

	b := New(client, cfg.Prefix, logger)
	b.owned = true
	return b, nil
}

// Close releases the client if Dial created it.
func (b *Bus) Close() error {
	if !b.owned {
		return nil
	}
	return b.client.Close()
}

// HealthCheck pings the server.
func (b *Bus) HealthCheck(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Bus) channel(topic string) string { return b.prefix + topic }

// Publish encodes msg and publishes it on the topic's channel.
func (b *Bus) Publish(ctx context.Context, topic string, msg bus.Message) error {
	if ctx == nil {
		return errors.New("redisbus: publish context is nil")
	}
	data, err := encode(msg)
	if err != nil {
		metrics.IncBusDropReason("unencodable")
		return err
	}
	if err := b.client.Publish(ctx, b.channel(topic), data).Err(); err != nil {
		metrics.IncBusDropReason("publish_error")
		return fmt.Errorf("redisbus: publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns once the server confirmed the subscription, so nothing
// published afterwards is missed.
func (b *Bus) Subscribe(ctx context.Context, topic string) (bus.Subscriber, error) {
	ch := b.channel(topic)
	ps := b.client.Subscribe(ctx, ch)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redisbus: subscribe %s: %w", topic, err)
	}

	s := &subscriber{
		ps:     ps,
		out:    make(chan bus.Message, subscriberBuffer),
		done:   make(chan struct{}),
		logger: b.logger.With().Str(log.FieldTopic, topic).Str(log.FieldTransport, "redis").Logger(),
	}
	s.wg.Add(1)
	go s.pump(ps.Channel())
	return s, nil
}

type subscriber struct {
	ps     *redis.PubSub
	out    chan bus.Message
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger zerolog.Logger
}

func (s *subscriber) C() <-chan bus.Message { return s.out }

// pump decodes payloads until the subscription closes. The output channel
// is closed when it returns.
func (s *subscriber) pump(in <-chan *redis.Message) {
	defer s.wg.Done()
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			sig, err := decode([]byte(m.Payload))
			if err != nil {
				metrics.IncBusDecodeFailure("redis")
				s.logger.Warn().Err(err).Msg("dropping undecodable payload")
				continue
			}
			select {
			case s.out <- sig:
			case <-s.done:
				return
			}
		}
	}
}

func (s *subscriber) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
		s.wg.Wait()
	})
	return err
}

var _ bus.Bus = (*Bus)(nil)
