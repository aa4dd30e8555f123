package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "ipl:snapshot"

// RedisBackend shares the slot across replicas. The key expires with the
// slot TTL so a stale entry is never read after a restart.
type RedisBackend[T any] struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

func NewRedisBackend[T any](client redis.UniversalClient, key string, ttl time.Duration) *RedisBackend[T] {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend[T]{client: client, key: key, ttl: ttl}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (b *RedisBackend[T]) Load(ctx context.Context) (Entry[T], bool, error) {
	raw, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry[T]{}, false, nil
	}
	if err != nil {
		return Entry[T]{}, false, fmt.Errorf("%w: redis get %s: %v", ErrCacheUnavailable, b.key, err)
	}

	var entry Entry[T]
	if err := sonic.Unmarshal(raw, &entry); err != nil {
		return Entry[T]{}, false, fmt.Errorf("%w: decode %s: %v", ErrCacheUnavailable, b.key, err)
	}
	return entry, true, nil
}

func (b *RedisBackend[T]) Store(ctx context.Context, entry Entry[T]) error {
	raw, err := sonic.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrCacheUnavailable, b.key, err)
	}
	if err := b.client.Set(ctx, b.key, raw, b.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %v", ErrCacheUnavailable, b.key, err)
	}
	return nil
}

func (b *RedisBackend[T]) Clear(ctx context.Context) error {
	if err := b.client.Del(ctx, b.key).Err(); err != nil {
		return fmt.Errorf("%w: redis del %s: %v", ErrCacheUnavailable, b.key, err)
	}
	return nil
}

func (b *RedisBackend[T]) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %v", ErrCacheUnavailable, err)
	}
	return nil
}
