// Package ratelimit bounds how often a subject may perform an action,
// with either an in-process or a Redis-backed counter.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter reports whether subject may perform another action in scope
// within the sliding window.
type Limiter interface {
	Allow(ctx context.Context, scope string, subject int, max int, window time.Duration) (bool, error)
}

// Memory is a per-process fixed-window limiter. Good enough for a
// single instance; use Redis when running more than one.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count   int
	resetAt time.Time
}

func NewMemory() *Memory {
	return &Memory{buckets: make(map[string]*bucket)}
}

func (m *Memory) Allow(ctx context.Context, scope string, subject int, max int, window time.Duration) (bool, error) {
	key := fmt.Sprintf("%s:%d", scope, subject)
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[key]
	if !ok || now.After(b.resetAt) {
		m.buckets[key] = &bucket{count: 1, resetAt: now.Add(window)}
		return true, nil
	}
	if b.count >= max {
		return false, nil
	}
	b.count++
	return true, nil
}

// Redis counts in a shared Redis key so the limit holds across
// instances.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Allow(ctx context.Context, scope string, subject int, max int, window time.Duration) (bool, error) {
	key := fmt.Sprintf("ratelimit:%s:%d", scope, subject)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(max), nil
}
