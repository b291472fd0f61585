package maintenance

import (
	"context"
	"database/sql"
	"hash/fnv"
	"sync"

	"gorm.io/gorm"
)

// PGCoordinator coordinates via PostgreSQL's session-scoped advisory locks.
// Advisory locks belong to one database session, so the coordinator pins a
// single connection from the pool for the duration of a cycle and returns
// it on Release.
type PGCoordinator struct {
	db  *gorm.DB
	key int64

	mu   sync.Mutex
	conn *sql.Conn
}

// NewPGCoordinator returns a coordinator using the advisory-lock key
// derived from token. All cooperating instances must use the same token.
func NewPGCoordinator(db *gorm.DB, token string) *PGCoordinator {
	return &PGCoordinator{db: db, key: advisoryKey(token)}
}

// advisoryKey maps a token name onto the 64-bit integer keyspace of
// pg_try_advisory_lock.
func advisoryKey(token string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	return int64(h.Sum64())
}

// Acquire implements Coordinator.Acquire. It never blocks on the lock:
// pg_try_advisory_lock reports immediately whether this session won.
func (p *PGCoordinator) Acquire(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		// token already held by this instance
		return true, nil
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return false, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return false, err
	}
	var won bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", p.key).Scan(&won); err != nil {
		_ = conn.Close()
		return false, err
	}
	if !won {
		_ = conn.Close()
		return false, nil
	}
	p.conn = conn
	return true, nil
}

// Release implements Coordinator.Release. The pinned connection is always
// returned to the pool, even when the unlock statement fails.
func (p *PGCoordinator) Release(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	conn := p.conn
	p.conn = nil
	_, unlockErr := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", p.key)
	closeErr := conn.Close()
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
