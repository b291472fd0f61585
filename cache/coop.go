package cache

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/langfork/warden/merge"
)

// CoopStore is an in-memory Store guarded by an awaitable, context-aware
// lock instead of a blocking mutex. Waiting for the lock is the only
// suspension point: acquisition respects ctx cancellation, and once held an
// operation runs to completion. The lock is not reentrant.
type CoopStore[T any] struct {
	sem      *semaphore.Weighted
	core     lruCore[T]
	strategy merge.Strategy[T]
	ins      instruments
}

// NewCoop returns a CoopStore configured by opts.
func NewCoop[T any](opts ...Option[T]) *CoopStore[T] {
	cfg := newConfig("coop", opts)
	return &CoopStore[T]{
		sem:      semaphore.NewWeighted(1),
		core:     newLRUCore[T](cfg.maxEntries, cfg.ttl),
		strategy: cfg.strategy,
		ins:      newInstruments(cfg),
	}
}

// Get implements Store.Get.
func (s *CoopStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return zero, false, err
	}
	defer s.sem.Release(1)
	v, ok := s.core.get(key, time.Now())
	if ok {
		s.ins.hit()
	} else {
		s.ins.miss()
	}
	return v, ok, nil
}

// Set implements Store.Set.
func (s *CoopStore[T]) Set(ctx context.Context, key string, value T) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	s.ins.evicted(s.core.set(key, value, time.Now()))
	return nil
}

// Upsert implements Store.Upsert.
func (s *CoopStore[T]) Upsert(ctx context.Context, key string, value T) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	now := time.Now()
	if old, ok := s.core.get(key, now); ok {
		value = s.strategy.Merge(old, value)
	}
	s.ins.evicted(s.core.set(key, value, now))
	return nil
}

// Delete implements Store.Delete.
func (s *CoopStore[T]) Delete(ctx context.Context, key string) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	s.core.delete(key)
	return nil
}

// Clear implements Store.Clear.
func (s *CoopStore[T]) Clear(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	s.core.clear()
	return nil
}

// Contains implements Store.Contains.
func (s *CoopStore[T]) Contains(ctx context.Context, key string) (bool, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer s.sem.Release(1)
	return s.core.peek(key, time.Now()), nil
}
