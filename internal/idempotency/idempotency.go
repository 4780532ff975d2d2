// Package idempotency implements the Idempotency-Key response replay cache
// for POST /v1/trigger (spec.md §4.5: "repeats within a configurable window
// return the original response"), backed by the teacher's redis/go-redis/v9
// dependency — previously wired only to an SSE bus (now out of scope) and
// repurposed here per SPEC_FULL.md §2.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/lesson-pipeline/internal/logger"
)

type Cache struct {
	log    *logger.Logger
	client *redis.Client
	window time.Duration
}

func New(log *logger.Logger, redisURL string, window time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Cache{
		log:    log.With("component", "IdempotencyCache"),
		client: redis.NewClient(opts),
		window: window,
	}, nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func cacheKey(idempotencyKey string) string {
	sum := sha256.Sum256([]byte(idempotencyKey))
	return "idempotency:" + hex.EncodeToString(sum[:])
}

// Get returns the cached response body for idempotencyKey, decoded into
// dest, and true if a cached entry exists. A cache-backend error is logged
// and treated as a miss: idempotency is a best-effort convenience, never a
// hard dependency of request handling.
func (c *Cache) Get(ctx context.Context, idempotencyKey string, dest any) bool {
	if idempotencyKey == "" {
		return false
	}
	raw, err := c.client.Get(ctx, cacheKey(idempotencyKey)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("idempotency cache read failed, treating as a miss", "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Warn("idempotency cache entry could not be decoded, treating as a miss", "error", err)
		return false
	}
	return true
}

// Put stores response for later replay within the configured window.
func (c *Cache) Put(ctx context.Context, idempotencyKey string, response any) {
	if idempotencyKey == "" {
		return
	}
	raw, err := json.Marshal(response)
	if err != nil {
		c.log.Warn("failed to encode idempotency cache entry", "error", err)
		return
	}
	if err := c.client.Set(ctx, cacheKey(idempotencyKey), raw, c.window).Err(); err != nil {
		c.log.Warn("failed to write idempotency cache entry", "error", err)
	}
}
