// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/pkclient/internal/log"
	"github.com/ManuGH/pkclient/internal/metrics"
)

// MemoryBus is an in-process pub/sub used by the dummy daemon and the tests.
// It is not durable. Publish blocks while a subscriber's queue is full, until
// the publish context ends or the subscriber closes.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[string][]*memSub
}

const (
	dropLogEvery    = 100
	subscriberQueue = 64
)

var dropCount atomic.Uint64

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]*memSub)}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	b.mu.RLock()
	subs := append([]*memSub(nil), b.subs[topic]...)
	b.mu.RUnlock()
	for _, s := range subs {
		select {
		case s.ch <- msg:
		case <-s.done:
			// closed while we were publishing; nothing to deliver to
		case <-ctx.Done():
			reason := publishDropReason(ctx.Err())
			metrics.IncBusDropReason(reason)
			count := dropCount.Add(1)
			if count%dropLogEvery == 0 {
				logger := log.WithComponent("bus")
				logger.Warn().
					Str("topic", topic).
					Str("reason", reason).
					Uint64("dropped", count).
					Msg("memory bus failed to publish due to context cancellation")
			}
			return fmt.Errorf("publish topic %q: %w", topic, ctx.Err())
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string) (Subscriber, error) {
	s := &memSub{
		b:     b,
		topic: topic,
		ch:    make(chan Message, subscriberQueue),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()

	return s, nil
}

// Subscribers returns the number of live subscriptions on topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

type memSub struct {
	b     *MemoryBus
	topic string
	ch    chan Message
	done  chan struct{}
	once  sync.Once
}

func (s *memSub) C() <-chan Message {
	return s.ch
}

// Close detaches the subscription. The message channel is never closed so a
// concurrent Publish cannot panic; readers select on their own stop signal.
func (s *memSub) Close() error {
	s.once.Do(func() {
		s.b.mu.Lock()
		lst := s.b.subs[s.topic]
		out := lst[:0]
		for _, c := range lst {
			if c != s {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			delete(s.b.subs, s.topic)
		} else {
			s.b.subs[s.topic] = out
		}
		s.b.mu.Unlock()
		close(s.done)
	})
	return nil
}

// Ensure compliance
var _ Bus = (*MemoryBus)(nil)
