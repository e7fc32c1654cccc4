// Package distlock serializes refresh writers across processes.
package distlock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"clientpulse/pkg/platform/sentinel"
)

// Lock is a non-blocking mutual exclusion lock.
// A Lock instance belongs to a single holder; create one per acquisition.
type Lock interface {
	// Acquire tries to take the lock. Returns false if another holder owns it.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock back if this instance still owns it.
	Release(ctx context.Context) error
}

// Extender is implemented by locks that expire unless renewed.
type Extender interface {
	// Extend pushes the expiry out to ttl. Returns false if the lock was lost.
	Extend(ctx context.Context, ttl time.Duration) (bool, error)
}

// Factory creates locks for a key.
type Factory func(key string) Lock

// NewFactory picks the best available backend: Redis when a client is given,
// PostgreSQL advisory locks when only a database is available, and a
// process-local lock otherwise.
func NewFactory(redisClient *redis.Client, db *sql.DB, ttl time.Duration) Factory {
	switch {
	case redisClient != nil:
		return func(key string) Lock { return NewRedisLock(redisClient, key, ttl) }
	case db != nil:
		return func(key string) Lock { return NewPGAdvisoryLock(db, key) }
	default:
		locals := &localLocks{held: make(map[string]bool)}
		return func(key string) Lock { return &LocalLock{set: locals, key: key} }
	}
}

// PGAdvisoryLock uses pg_try_advisory_lock on a pinned connection. Advisory
// locks are session scoped, so the same connection must be used to release.
// The lock is dropped automatically if the connection dies.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock derives a deterministic lock ID from key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("pin advisory lock connection: %w: %w", sentinel.ErrUnavailable, err)
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("try advisory lock: %w: %w", sentinel.ErrUnavailable, err)
	}
	if !acquired {
		_ = conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		_ = l.conn.Close()
		l.conn = nil
	}()
	if _, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID); err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	return nil
}

type localLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

// LocalLock is the single-process fallback used when no shared backend exists.
type LocalLock struct {
	set   *localLocks
	key   string
	owned bool
}

func (l *LocalLock) Acquire(context.Context) (bool, error) {
	l.set.mu.Lock()
	defer l.set.mu.Unlock()
	if l.set.held[l.key] {
		return false, nil
	}
	l.set.held[l.key] = true
	l.owned = true
	return true, nil
}

func (l *LocalLock) Release(context.Context) error {
	if !l.owned {
		return nil
	}
	l.set.mu.Lock()
	defer l.set.mu.Unlock()
	delete(l.set.held, l.key)
	l.owned = false
	return nil
}
