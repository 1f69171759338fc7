// Package cache stores reconstructed score distributions so repeat requests
// for the same target date skip the full historical replay. Purely a
// performance layer: every path fails open to recomputation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/optispark/tiercast/internal/domain"
)

// DistributionCache stores per-posture score samples keyed by request shape.
type DistributionCache interface {
	Get(ctx context.Context, key string) ([]float64, bool)
	Set(ctx context.Context, key string, samples []float64, ttl time.Duration)
}

// Key identifies a distribution by everything that affects its content:
// posture, model set, target date, and lookback window.
func Key(p domain.Posture, models []string, target time.Time, lookbackDays int) string {
	sorted := append([]string(nil), models...)
	sort.Strings(sorted)
	return fmt.Sprintf("dist:%s:%s:%s:%d", p, strings.Join(sorted, ","), domain.DateOnly(target), lookbackDays)
}

type memory struct {
	mu sync.Mutex
	m  map[string]entry
}

type entry struct {
	samples []float64
	exp     time.Time
}

// NewMemory returns an in-process cache, used when no Redis address is
// configured and in tests.
func NewMemory() DistributionCache {
	return &memory{m: make(map[string]entry)}
}

func (c *memory) Get(_ context.Context, key string) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		return nil, false
	}
	return e.samples, true
}

func (c *memory) Set(_ context.Context, key string, samples []float64, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{samples: append([]float64(nil), samples...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
}

// redisCache wraps a Redis client behind a circuit breaker. A flapping or
// down Redis degrades to recomputation without stalling the pipeline.
type redisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewRedis creates a Redis-backed distribution cache.
func NewRedis(addr string, log zerolog.Logger) DistributionCache {
	settings := gobreaker.Settings{
		Name:     "distribution-cache",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &redisCache{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		breaker: gobreaker.NewCircuitBreaker(settings),
		log:     log.With().Str("component", "cache").Logger(),
	}
}

// NewAuto picks Redis when an address is configured, in-process otherwise.
func NewAuto(addr string, log zerolog.Logger) DistributionCache {
	if addr != "" {
		return NewRedis(addr, log)
	}
	return NewMemory()
}

func (c *redisCache) Get(ctx context.Context, key string) ([]float64, bool) {
	raw, err := c.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return c.client.Get(ctx, key).Bytes()
	})
	if err != nil {
		if err != redis.Nil {
			c.log.Debug().Err(err).Str("key", key).Msg("cache read failed")
		}
		return nil, false
	}

	var samples []float64
	if err := json.Unmarshal(raw.([]byte), &samples); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache entry corrupt, ignoring")
		return nil, false
	}
	return samples, true
}

func (c *redisCache) Set(ctx context.Context, key string, samples []float64, ttl time.Duration) {
	payload, err := json.Marshal(samples)
	if err != nil {
		return
	}
	_, err = c.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return nil, c.client.Set(ctx, key, payload, ttl).Err()
	})
	if err != nil {
		c.log.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}
