// Package mirror persists order status transitions into Redis so
// dashboards and other read-side consumers can follow the log without
// querying the engine.
package mirror

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/crosslane-xyz/crosslane/internal/engine"
)

// RedisClient abstracts the Redis operations used by the Mirror. In
// production this is backed by *redis.Client via GoRedisClient; in tests
// by a mock.
type RedisClient interface {
	HSet(ctx context.Context, key string, values ...any) error
}

// GoRedisClient adapts *redis.Client to the RedisClient interface.
type GoRedisClient struct {
	C *redis.Client
}

func (g GoRedisClient) HSet(ctx context.Context, key string, values ...any) error {
	return g.C.HSet(ctx, key, values...).Err()
}

// Mirror subscribes to the engine's order feed and writes each order's
// latest state into Redis using the schema:
//
//	Key:    order:{id}
//	Fields: status, hash, ts
//
// Writes are non-blocking: updates are buffered internally and flushed by
// a dedicated goroutine. Repeated updates with an unchanged status are
// suppressed.
type Mirror struct {
	client RedisClient
	feed   <-chan engine.OrderUpdate
	buf    chan engine.OrderUpdate
	log    *zap.Logger

	mu   sync.Mutex
	last map[uint64]string // order id → last written status
}

// New creates a Mirror reading from the engine feed.
func New(client RedisClient, feed <-chan engine.OrderUpdate, log *zap.Logger) *Mirror {
	return &Mirror{
		client: client,
		feed:   feed,
		buf:    make(chan engine.OrderUpdate, 1024),
		log:    log,
		last:   make(map[uint64]string),
	}
}

// Run starts two goroutines: one draining the feed into an internal
// buffer so the engine is never blocked, one flushing buffered updates to
// Redis. It blocks until ctx is cancelled.
func (m *Mirror) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-m.feed:
				if !ok {
					return
				}
				select {
				case m.buf <- update:
				default:
					// Buffer full — drop to keep up.
				}
			}
		}
	}()

	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-m.buf:
				if !ok {
					return
				}
				m.write(ctx, update)
			}
		}
	}()

	wg.Wait()
}

// write suppresses duplicate statuses and issues an HSET.
func (m *Mirror) write(ctx context.Context, update engine.OrderUpdate) {
	status := update.Status.String()

	m.mu.Lock()
	if m.last[update.ID] == status {
		m.mu.Unlock()
		return
	}
	m.last[update.ID] = status
	m.mu.Unlock()

	key := fmt.Sprintf("order:%d", update.ID)
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := m.client.HSet(ctx, key, "status", status, "hash", hex.EncodeToString(update.Hash), "ts", ts); err != nil {
		m.log.Warn("mirror write failed", zap.Uint64("order_id", update.ID), zap.Error(err))
	}
}
