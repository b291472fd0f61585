package lock

import (
	"sync"
	"testing"
	"time"
)

func TestMemoryManagerMutualExclusion(t *testing.T) {
	m := NewMemoryManager()
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithLock("k", func() error {
				c := counter
				time.Sleep(time.Microsecond)
				counter = c + 1
				return nil
			})
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("expected 50, got %d", counter)
	}
}

func TestMemoryManagerDistinctKeysDoNotBlock(t *testing.T) {
	m := NewMemoryManager()
	releaseA := m.Acquire("a")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		release := m.Acquire("b")
		release()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("lock on different key blocked")
	}
}

func TestMemoryManagerSameKeyBlocks(t *testing.T) {
	m := NewMemoryManager()
	release := m.Acquire("k")
	if _, ok := m.TryLock("k"); ok {
		t.Fatalf("TryLock succeeded while lock held")
	}
	release()
	r2, ok := m.TryLock("k")
	if !ok {
		t.Fatalf("TryLock failed after release")
	}
	r2()
}

func TestMemoryManagerSingleEntryPerKey(t *testing.T) {
	m := NewMemoryManager()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := m.Acquire("same")
			release()
		}()
	}
	wg.Wait()
	if m.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", m.Len())
	}
}

func TestMemoryManagerReleasesOnPanic(t *testing.T) {
	m := NewMemoryManager()
	func() {
		defer func() { _ = recover() }()
		_ = m.WithLock("k", func() error { panic("boom") })
	}()
	// the lock must be free again
	release, ok := m.TryLock("k")
	if !ok {
		t.Fatalf("lock still held after panic")
	}
	release()
}
