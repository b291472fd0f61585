package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/langfork/warden/merge"
)

// entry pairs a value with its insertion time and recency-list element.
type entry[T any] struct {
	value      T
	insertedAt time.Time
	element    *list.Element
}

// lruCore is the unlocked map+list structure shared by the in-memory
// stores. The recency list keeps the most-recently-used key at the back;
// eviction pops the front. Callers hold the store's lock.
type lruCore[T any] struct {
	items      map[string]*entry[T]
	order      *list.List
	maxEntries int
	ttl        time.Duration
}

func newLRUCore[T any](maxEntries int, ttl time.Duration) lruCore[T] {
	return lruCore[T]{
		items:      make(map[string]*entry[T]),
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

func (c *lruCore[T]) expired(e *entry[T], now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.insertedAt) >= c.ttl
}

// get returns the live value for key, promoting it to most-recently-used.
// An expired entry is purged and reported as a miss.
func (c *lruCore[T]) get(key string, now time.Time) (T, bool) {
	var zero T
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.expired(e, now) {
		c.remove(key, e)
		return zero, false
	}
	c.order.MoveToBack(e.element)
	return e.value, true
}

// peek is get without promotion, used by Contains.
func (c *lruCore[T]) peek(key string, now time.Time) bool {
	e, ok := c.items[key]
	if !ok {
		return false
	}
	if c.expired(e, now) {
		c.remove(key, e)
		return false
	}
	return true
}

// set inserts or replaces key, refreshes its insertion time, promotes it
// and reports how many entries were evicted to stay within maxEntries.
func (c *lruCore[T]) set(key string, value T, now time.Time) (evicted int) {
	if e, ok := c.items[key]; ok {
		e.value = value
		e.insertedAt = now
		c.order.MoveToBack(e.element)
		return 0
	}
	elem := c.order.PushBack(key)
	c.items[key] = &entry[T]{value: value, insertedAt: now, element: elem}
	for c.maxEntries > 0 && len(c.items) > c.maxEntries {
		front := c.order.Front()
		if front == nil {
			break
		}
		k := front.Value.(string)
		c.remove(k, c.items[k])
		evicted++
	}
	return evicted
}

func (c *lruCore[T]) remove(key string, e *entry[T]) {
	c.order.Remove(e.element)
	delete(c.items, key)
}

func (c *lruCore[T]) delete(key string) {
	if e, ok := c.items[key]; ok {
		c.remove(key, e)
	}
}

func (c *lruCore[T]) clear() {
	c.items = make(map[string]*entry[T])
	c.order.Init()
}

// MemoryStore is a thread-safe in-memory Store guarded by one coarse lock
// covering the whole structure. Callers must not hold it across unrelated
// long-running work; atomic composition with a larger critical section goes
// through Update.
type MemoryStore[T any] struct {
	mu       sync.Mutex
	core     lruCore[T]
	strategy merge.Strategy[T]
	ins      instruments
}

// NewMemory returns a MemoryStore configured by opts.
func NewMemory[T any](opts ...Option[T]) *MemoryStore[T] {
	cfg := newConfig("memory", opts)
	return &MemoryStore[T]{
		core:     newLRUCore[T](cfg.maxEntries, cfg.ttl),
		strategy: cfg.strategy,
		ins:      newInstruments(cfg),
	}
}

// Get implements Store.Get.
func (s *MemoryStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	_, end := s.ins.span(ctx, "cache.Get")
	s.mu.Lock()
	v, ok := s.core.get(key, time.Now())
	s.mu.Unlock()
	if ok {
		s.ins.hit()
	} else {
		s.ins.miss()
	}
	end(ok)
	return v, ok, nil
}

// Set implements Store.Set.
func (s *MemoryStore[T]) Set(ctx context.Context, key string, value T) error {
	_, end := s.ins.span(ctx, "cache.Set")
	defer end(true)
	s.mu.Lock()
	evicted := s.core.set(key, value, time.Now())
	s.mu.Unlock()
	s.ins.evicted(evicted)
	return nil
}

// Upsert implements Store.Upsert. The read-merge-write sequence runs under
// one lock acquisition so concurrent upserts never interleave.
func (s *MemoryStore[T]) Upsert(ctx context.Context, key string, value T) error {
	_, end := s.ins.span(ctx, "cache.Upsert")
	defer end(true)
	s.mu.Lock()
	now := time.Now()
	if old, ok := s.core.get(key, now); ok {
		value = s.strategy.Merge(old, value)
	}
	evicted := s.core.set(key, value, now)
	s.mu.Unlock()
	s.ins.evicted(evicted)
	return nil
}

// Delete implements Store.Delete.
func (s *MemoryStore[T]) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.core.delete(key)
	s.mu.Unlock()
	return nil
}

// Clear implements Store.Clear.
func (s *MemoryStore[T]) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.core.clear()
	s.mu.Unlock()
	return nil
}

// Contains implements Store.Contains.
func (s *MemoryStore[T]) Contains(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	ok := s.core.peek(key, time.Now())
	s.mu.Unlock()
	return ok, nil
}

// Len reports the current number of entries.
func (s *MemoryStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.core.items)
}

// Tx exposes the store's operations without taking the store lock. It is
// only valid inside an Update closure.
type Tx[T any] struct {
	s   *MemoryStore[T]
	now time.Time
}

// Get retrieves and promotes key.
func (tx *Tx[T]) Get(key string) (T, bool) { return tx.s.core.get(key, tx.now) }

// Set stores value under key.
func (tx *Tx[T]) Set(key string, value T) {
	tx.s.ins.evicted(tx.s.core.set(key, value, tx.now))
}

// Delete removes key.
func (tx *Tx[T]) Delete(key string) { tx.s.core.delete(key) }

// Contains reports presence without promotion.
func (tx *Tx[T]) Contains(key string) bool { return tx.s.core.peek(key, tx.now) }

// Update runs fn atomically under the store lock, letting callers compose
// several operations into one critical section. fn must not call the
// store's public methods or retain the Tx.
func (s *MemoryStore[T]) Update(ctx context.Context, fn func(tx *Tx[T]) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&Tx[T]{s: s, now: time.Now()})
}
