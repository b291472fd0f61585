package lock

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	werrors "github.com/langfork/warden/errors"
)

func newTestWorkerManager(t *testing.T) *WorkerManager {
	t.Helper()
	m, err := NewWorkerManager(WithLockDir(t.TempDir()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}

func TestWorkerManagerRejectsInvalidKeys(t *testing.T) {
	m := newTestWorkerManager(t)
	for _, key := range []string{"a/b", "a-b", "a b", "", "a.b"} {
		_, err := m.Acquire(context.Background(), key)
		if !errors.Is(err, werrors.ErrInvalidLockKey) {
			t.Fatalf("key %q: expected ErrInvalidLockKey, got %v", key, err)
		}
	}
	// validation fails before any filesystem access
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no lock files, found %d", len(entries))
	}
}

func TestWorkerManagerAcceptsValidKeys(t *testing.T) {
	m := newTestWorkerManager(t)
	for _, key := range []string{"abc", "ABC_123", "_", "0"} {
		release, err := m.Acquire(context.Background(), key)
		if err != nil {
			t.Fatalf("key %q: unexpected error: %v", key, err)
		}
		if err := release(); err != nil {
			t.Fatalf("release: %v", err)
		}
	}
}

func TestWorkerManagerExcludesSecondHolder(t *testing.T) {
	m := newTestWorkerManager(t)
	release, err := m.Acquire(context.Background(), "init")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok, err := m.TryLock("init"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else if ok {
		t.Fatalf("TryLock succeeded while lock held")
	}

	if err := release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	r2, ok, err := m.TryLock("init")
	if err != nil || !ok {
		t.Fatalf("expected lock after release, ok=%v err=%v", ok, err)
	}
	_ = r2()
}

func TestWorkerManagerAcquireHonorsContext(t *testing.T) {
	m := newTestWorkerManager(t)
	release, err := m.Acquire(context.Background(), "busy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = release() }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := m.Acquire(ctx, "busy"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
