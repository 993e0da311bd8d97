// Package cache provides a Redis-backed cache for stub view listings, so
// tree and trash displays do not hit the persistence gateway on every
// refresh. Saves invalidate it; the audit sweep bypasses it entirely.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"notarium/internal/note"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultTTL = 5 * time.Minute

// StubCache caches stub listings per view name.
type StubCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    zerolog.Logger
}

// New connects to Redis and verifies the connection.
func New(redisURL string, log zerolog.Logger) (*StubCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewWithClient(client, log), nil
}

// NewWithClient wraps an existing Redis client.
func NewWithClient(client *redis.Client, log zerolog.Logger) *StubCache {
	return &StubCache{
		client: client,
		prefix: "notarium:view:",
		ttl:    defaultTTL,
		log:    log,
	}
}

// Close releases the Redis connection.
func (c *StubCache) Close() error { return c.client.Close() }

func (c *StubCache) key(view string) string { return c.prefix + view }

// Get returns the cached stub listing for view, or ok=false on miss or any
// cache error. Cache failures are logged, never fatal.
func (c *StubCache) Get(ctx context.Context, view string) ([]*note.Document, bool) {
	payload, err := c.client.Get(ctx, c.key(view)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Str("view", view).Err(err).Msg("cache read failed")
		return nil, false
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(payload, &rows); err != nil {
		c.log.Warn().Str("view", view).Err(err).Msg("cache payload corrupt, dropping")
		c.client.Del(ctx, c.key(view))
		return nil, false
	}
	docs := make([]*note.Document, 0, len(rows))
	for _, row := range rows {
		d, err := note.DecodeWire(row)
		if err != nil {
			c.log.Warn().Str("view", view).Err(err).Msg("cache row corrupt, dropping")
			c.client.Del(ctx, c.key(view))
			return nil, false
		}
		docs = append(docs, d)
	}
	return docs, true
}

// Set stores the stub listing for view with the cache TTL.
func (c *StubCache) Set(ctx context.Context, view string, docs []*note.Document) {
	rows := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		raw, err := note.EncodeWire(d)
		if err != nil {
			c.log.Warn().Str("view", view).Str("doc", d.ID).Err(err).Msg("cache encode failed, skipping set")
			return
		}
		rows = append(rows, raw)
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		c.log.Warn().Str("view", view).Err(err).Msg("cache encode failed, skipping set")
		return
	}
	if err := c.client.Set(ctx, c.key(view), payload, c.ttl).Err(); err != nil {
		c.log.Warn().Str("view", view).Err(err).Msg("cache write failed")
	}
}

// Invalidate drops every cached view listing. Called after each save; a
// stale tree is worse than a cold one.
func (c *StubCache) Invalidate(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warn().Err(err).Msg("cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Msg("cache invalidate failed")
	}
}
