package lock

import "sync"

// MemoryManager hands out one mutex per key within a single process.
// Entries are created lazily on first use and live for the lifetime of the
// manager; they are never removed, so a key observes the same mutex across
// its whole history.
type MemoryManager struct {
	mu    sync.Mutex
	locks map[any]*sync.Mutex
}

// NewMemoryManager returns an empty manager.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{locks: make(map[any]*sync.Mutex)}
}

// lockFor returns the mutex for key, creating it under the manager guard so
// concurrent first-time callers never produce duplicate mutexes.
func (m *MemoryManager) lockFor(key any) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// Acquire blocks until the lock for key is held and returns the release
// function. The caller must invoke release exactly once, typically deferred.
func (m *MemoryManager) Acquire(key any) (release func()) {
	l := m.lockFor(key)
	l.Lock()
	return l.Unlock
}

// TryLock attempts to take the lock for key without blocking. When it
// returns true the caller holds the lock and must call the returned release.
func (m *MemoryManager) TryLock(key any) (release func(), ok bool) {
	l := m.lockFor(key)
	if !l.TryLock() {
		return nil, false
	}
	return l.Unlock, true
}

// WithLock runs fn while holding the lock for key. The lock is released on
// every exit path; a panic inside fn propagates after release.
func (m *MemoryManager) WithLock(key any, fn func() error) error {
	release := m.Acquire(key)
	defer release()
	return fn()
}

// Len reports the number of distinct keys seen so far.
func (m *MemoryManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
