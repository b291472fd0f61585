package lock

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"

	werrors "github.com/langfork/warden/errors"
)

// keyPattern is the charset accepted for worker-lock keys. Keys become file
// names, so anything outside it is rejected before touching the filesystem.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

const lockRetryDelay = 10 * time.Millisecond

// WorkerManager serializes work across independent OS processes that share
// a filesystem but not memory, such as multiple server workers. Each key
// maps to an advisory file lock under the manager's directory.
type WorkerManager struct {
	dir string
}

// WorkerOption configures a WorkerManager.
type WorkerOption func(*WorkerManager)

// WithLockDir overrides the directory holding the lock files.
func WithLockDir(dir string) WorkerOption {
	return func(m *WorkerManager) { m.dir = dir }
}

// NewWorkerManager returns a manager whose lock files live under the user
// cache directory by default. The directory is created if missing.
func NewWorkerManager(opts ...WorkerOption) (*WorkerManager, error) {
	m := &WorkerManager{dir: filepath.Join(xdg.CacheHome, "warden", "locks")}
	for _, opt := range opts {
		opt(m)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *WorkerManager) path(key string) string {
	return filepath.Join(m.dir, key+".lock")
}

// Acquire blocks until the file lock for key is held or ctx is done. There
// is no implicit timeout: callers needing a bounded wait pass a ctx with a
// deadline. The returned release must be called exactly once.
func (m *WorkerManager) Acquire(ctx context.Context, key string) (release func() error, err error) {
	if !keyPattern.MatchString(key) {
		return nil, werrors.ErrInvalidLockKey
	}
	fl := flock.New(m.path(key))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, err
	}
	if !locked {
		// TryLockContext only returns false together with a ctx error.
		return nil, ctx.Err()
	}
	return fl.Unlock, nil
}

// TryLock attempts to take the file lock for key without blocking.
func (m *WorkerManager) TryLock(key string) (release func() error, ok bool, err error) {
	if !keyPattern.MatchString(key) {
		return nil, false, werrors.ErrInvalidLockKey
	}
	fl := flock.New(m.path(key))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, err
	}
	if !locked {
		return nil, false, nil
	}
	return fl.Unlock, true, nil
}

// WithLock runs fn while holding the file lock for key, releasing it on
// every exit path including panics.
func (m *WorkerManager) WithLock(ctx context.Context, key string, fn func() error) error {
	release, err := m.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = release() }()
	return fn()
}
