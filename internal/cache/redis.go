package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Backend on a shared redis instance, for deployments running
// more than one replica of the service. Entry freshness still comes from
// the envelope; redis expiry only bounds physical retention.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// RedisOption configures a Redis backend.
type RedisOption func(*Redis)

// WithPrefix namespaces every key, e.g. per environment.
func WithPrefix(prefix string) RedisOption {
	return func(s *Redis) { s.prefix = strings.Trim(prefix, ":") }
}

// NewRedis wraps rdb as a cache Backend.
func NewRedis(rdb *redis.Client, opts ...RedisOption) *Redis {
	s := &Redis{rdb: rdb, prefix: "cache"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Redis) key(key string) string { return s.prefix + ":" + key }

// Get implements Backend.
func (s *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set implements Backend.
func (s *Redis) Set(ctx context.Context, key string, data []byte, retention time.Duration) error {
	return s.rdb.Set(ctx, s.key(key), data, retention).Err()
}

// Delete implements Backend.
func (s *Redis) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}
