// Package ratelimit throttles wagers per player with fixed windows.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Limiter interface {
	// Allow counts one attempt of action by playerID and reports whether it
	// is still within the window's budget.
	Allow(ctx context.Context, playerID, action string) (bool, error)
}

func key(playerID, action string) string {
	return fmt.Sprintf("ratelimit:%s:%s", playerID, action)
}

// Redis counts attempts with INCR and starts the window on the first hit.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedis connects and pings so a dead server is noticed at startup.
func NewRedis(ctx context.Context, addr, password string, db, limit int, window time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{client: client, limit: limit, window: window}, nil
}

func (r *Redis) Allow(ctx context.Context, playerID, action string) (bool, error) {
	k := key(playerID, action)
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, k, r.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count <= int64(r.limit), nil
}

// Reset clears a player's counter for action.
func (r *Redis) Reset(ctx context.Context, playerID, action string) error {
	return r.client.Del(ctx, key(playerID, action)).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Memory is the single-process fallback used when no Redis is configured.
type Memory struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	buckets map[string]bucket
}

type bucket struct {
	count   int
	resetAt time.Time
}

func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]bucket),
	}
}

func (m *Memory) Allow(_ context.Context, playerID, action string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := key(playerID, action)
	b := m.buckets[k]
	if !now.Before(b.resetAt) {
		b = bucket{resetAt: now.Add(m.window)}
	}
	b.count++
	m.buckets[k] = b

	// drop expired windows so the map tracks only recent players
	if len(m.buckets) > 10000 {
		for bk, bv := range m.buckets {
			if !now.Before(bv.resetAt) {
				delete(m.buckets, bk)
			}
		}
	}
	return b.count <= m.limit, nil
}
