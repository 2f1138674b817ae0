// Package cache provides the Redis-backed Kids Mode session store, an
// alternative to the SQLite session table for multi-instance deployments.
package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisClient is the subset of Redis the session store needs.
// This allows for easy mocking in tests.
type RedisClient interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, values ...interface{}) error
	Del(ctx context.Context, keys ...string) error
	Close() error
}

// RedisSessionStore keeps every session field in one Redis hash. A single
// HSET writes all fields atomically.
type RedisSessionStore struct {
	client RedisClient
	prefix string
}

// NewRedisSessionStore creates a session store over client.
func NewRedisSessionStore(client RedisClient) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: "exoplanet:kids"}
}

// LoadFields implements engine.Store. A missing hash yields an empty map.
func (s *RedisSessionStore) LoadFields(ctx context.Context, sessionID string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, s.sessionKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if fields == nil {
		fields = map[string]string{}
	}
	return fields, nil
}

// SaveFields implements engine.Store.
func (s *RedisSessionStore) SaveFields(ctx context.Context, sessionID string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}
	if err := s.client.HSet(ctx, s.sessionKey(sessionID), values...); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	return nil
}

// DeleteSession removes all progress of a session.
func (s *RedisSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.sessionKey(sessionID))
}

// Close releases the underlying client.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

// sessionKey generates the Redis key for a session hash.
func (s *RedisSessionStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, sessionID)
}

// goRedisClient adapts *goredis.Client to RedisClient.
type goRedisClient struct {
	rdb *goredis.Client
}

// Dial connects to addr and checks the connection with a PING.
func Dial(ctx context.Context, addr string) (RedisClient, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &goRedisClient{rdb: rdb}, nil
}

func (c *goRedisClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, key).Result()
}

func (c *goRedisClient) HSet(ctx context.Context, key string, values ...interface{}) error {
	return c.rdb.HSet(ctx, key, values...).Err()
}

func (c *goRedisClient) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *goRedisClient) Close() error {
	return c.rdb.Close()
}
