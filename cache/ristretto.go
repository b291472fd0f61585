package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/langfork/warden/merge"
)

// RistrettoStore is a Store backed by dgraph-io/ristretto, suited to
// high-throughput read-mostly workloads. Every entry costs 1, so
// WithMaxEntries bounds the entry count; admission is probabilistic, which
// trades strict LRU order for throughput.
type RistrettoStore[T any] struct {
	c        *ristretto.Cache
	mu       sync.Mutex // serializes Upsert's read-modify-write
	ttl      time.Duration
	strategy merge.Strategy[T]
}

// NewRistretto returns a RistrettoStore configured by opts.
func NewRistretto[T any](opts ...Option[T]) *RistrettoStore[T] {
	cfg := newConfig("ristretto", opts)
	maxCost := int64(cfg.maxEntries)
	if maxCost <= 0 {
		maxCost = 1 << 20
	}
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		panic(err)
	}
	return &RistrettoStore[T]{c: rc, ttl: cfg.ttl, strategy: cfg.strategy}
}

// Get implements Store.Get.
func (s *RistrettoStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	v, ok := s.c.Get(key)
	if !ok {
		return zero, false, nil
	}
	val, _ := v.(T)
	return val, true, nil
}

// Set implements Store.Set.
func (s *RistrettoStore[T]) Set(ctx context.Context, key string, value T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.c.SetWithTTL(key, value, 1, s.ttl)
	s.c.Wait()
	return nil
}

// Upsert implements Store.Upsert.
func (s *RistrettoStore[T]) Upsert(ctx context.Context, key string, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
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
func (s *RistrettoStore[T]) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.c.Del(key)
	s.c.Wait()
	return nil
}

// Clear implements Store.Clear.
func (s *RistrettoStore[T]) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.c.Clear()
	return nil
}

// Contains implements Store.Contains.
func (s *RistrettoStore[T]) Contains(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := s.c.Get(key)
	return ok, nil
}

// Close releases resources held by the underlying cache.
func (s *RistrettoStore[T]) Close() {
	s.c.Close()
}
