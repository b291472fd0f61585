package cache

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/langfork/warden/codec"
	werrors "github.com/langfork/warden/errors"
	"github.com/langfork/warden/merge"
)

// defaultKeyPrefix namespaces warden keys in a shared Redis.
const defaultKeyPrefix = "warden:"

// RedisStore is a Store backed by Redis. Values are encoded by the
// configured codec before transmission; expiry is delegated to Redis'
// native per-key TTL rather than computed locally. Connectivity failures
// wrap errors.ErrConnection, which is distinct from a miss.
type RedisStore[T any] struct {
	client   *redis.Client
	codec    codec.Codec
	prefix   string
	ttl      time.Duration
	strategy merge.Strategy[T]
	ins      instruments
}

// NewRedis returns a RedisStore using the provided client. The codec
// defaults to JSON.
func NewRedis[T any](client *redis.Client, opts ...Option[T]) *RedisStore[T] {
	cfg := newConfig("redis", opts)
	if cfg.codec == nil {
		cfg.codec = codec.JSON{}
	}
	if cfg.prefix == "" {
		cfg.prefix = defaultKeyPrefix
	}
	return &RedisStore[T]{
		client:   client,
		codec:    cfg.codec,
		prefix:   cfg.prefix,
		ttl:      cfg.ttl,
		strategy: cfg.strategy,
		ins:      newInstruments(cfg),
	}
}

func (s *RedisStore[T]) k(key string) string { return s.prefix + key }

func connErr(err error) error {
	return fmt.Errorf("%w: %v", werrors.ErrConnection, err)
}

// Get implements Store.Get.
func (s *RedisStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	ctx, end := s.ins.span(ctx, "cache.Get")
	data, err := s.client.Get(ctx, s.k(key)).Bytes()
	if err == redis.Nil {
		s.ins.miss()
		end(false)
		return zero, false, nil
	}
	if err != nil {
		end(false)
		return zero, false, connErr(err)
	}
	var v T
	if err := s.codec.Unmarshal(data, &v); err != nil {
		end(false)
		return zero, false, &werrors.SerializationError{Key: key, Err: err}
	}
	s.ins.hit()
	end(true)
	return v, true, nil
}

// Set implements Store.Set. A value the codec cannot encode returns a
// *SerializationError and nothing is written.
func (s *RedisStore[T]) Set(ctx context.Context, key string, value T) error {
	ctx, end := s.ins.span(ctx, "cache.Set")
	defer end(true)
	data, err := s.codec.Marshal(value)
	if err != nil {
		return &werrors.SerializationError{Key: key, Err: err}
	}
	if err := s.client.Set(ctx, s.k(key), data, s.ttl).Err(); err != nil {
		return connErr(err)
	}
	return nil
}

// Upsert implements Store.Upsert. The read-merge-write is not atomic across
// instances; callers needing cross-instance exclusion hold a keyed lock.
func (s *RedisStore[T]) Upsert(ctx context.Context, key string, value T) error {
	old, ok, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		value = s.strategy.Merge(old, value)
	}
	return s.Set(ctx, key, value)
}

// Delete implements Store.Delete.
func (s *RedisStore[T]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.k(key)).Err(); err != nil {
		return connErr(err)
	}
	return nil
}

// Clear implements Store.Clear. Only keys under the store's prefix are
// removed.
func (s *RedisStore[T]) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return connErr(err)
		}
	}
	if err := iter.Err(); err != nil {
		return connErr(err)
	}
	return nil
}

// Contains implements Store.Contains. It is a network round-trip.
func (s *RedisStore[T]) Contains(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.k(key)).Result()
	if err != nil {
		return false, connErr(err)
	}
	return n > 0, nil
}
