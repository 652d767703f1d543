package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one encoded value per conversation under prefix+id.
// A zero TTL keeps keys forever; otherwise reads refresh the TTL.
type RedisStore[T any] struct {
	client *redis.Client
	codec  Codec[T]
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a redis-backed store.
func NewRedisStore[T any](client *redis.Client, codec Codec[T], prefix string, ttl time.Duration) *RedisStore[T] {
	return &RedisStore[T]{client: client, codec: codec, prefix: prefix, ttl: ttl}
}

func (s *RedisStore[T]) key(id int64) string {
	return s.prefix + strconv.FormatInt(id, 10)
}

// Get implements Store.
func (s *RedisStore[T]) Get(ctx context.Context, id int64) (T, bool, error) {
	var zero T
	key := s.key(id)
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("state: redis get %s: %w", key, err)
	}
	v, err := s.codec.Decode(val)
	if err != nil {
		return zero, false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, key, s.ttl).Err()
	}
	return v, true, nil
}

// Set implements Store.
func (s *RedisStore[T]) Set(ctx context.Context, id int64, v T) error {
	key := s.key(id)
	val, err := s.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, val, s.ttl).Err(); err != nil {
		return fmt.Errorf("state: redis set %s: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore[T]) Close() error {
	return s.client.Close()
}
