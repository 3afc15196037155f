package distlock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock without blocking. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Factory hands out a fresh lock instance for a key.
type Factory func(key string) DistLock

// NewFactory returns a Factory using the best available backend:
// Redis when a client is given, PostgreSQL advisory locks when only a
// database is given, and an in-process lock table otherwise.
func NewFactory(redisClient *redis.Client, db *sql.DB, ttl time.Duration) Factory {
	return func(key string) DistLock {
		return NewLock(redisClient, db, key, ttl)
	}
}

// NewLock creates a lock for key using the best available backend.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	if db != nil {
		return NewPGAdvisoryLock(db, key)
	}
	return NewLocalLock(key, ttl)
}

// =============================================================================
// PostgreSQL Advisory Lock (fallback when Redis is unavailable)
// =============================================================================
// pg_try_advisory_lock is session-scoped, so the lock pins one pooled
// connection from Acquire until Release. If that connection drops the
// server releases the lock.

// PGAdvisoryLock implements DistLock using PostgreSQL advisory locks.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries to acquire the advisory lock. Returns true if successful.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	if l.conn != nil {
		return false, fmt.Errorf("advisory lock %d already held by this instance", l.lockID)
	}
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("advisory lock conn: %w", err)
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("advisory lock %d: %w", l.lockID, err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release releases the advisory lock and returns its connection to the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID); err != nil {
		return fmt.Errorf("advisory unlock %d: %w", l.lockID, err)
	}
	return nil
}

// =============================================================================
// Local lock (single process, no Redis and no database configured)
// =============================================================================

type localEntry struct {
	owner   *LocalLock
	expires time.Time
}

var (
	localMu    sync.Mutex
	localTable = map[string]localEntry{}
)

// LocalLock implements DistLock with a process-wide table. It only
// coordinates goroutines inside one server process.
type LocalLock struct {
	key string
	ttl time.Duration
	now func() time.Time
}

// NewLocalLock creates an in-process lock for key.
func NewLocalLock(key string, ttl time.Duration) *LocalLock {
	return &LocalLock{key: key, ttl: ttl, now: time.Now}
}

// Acquire takes the key unless another live owner holds it.
func (l *LocalLock) Acquire(_ context.Context) (bool, error) {
	localMu.Lock()
	defer localMu.Unlock()
	now := l.now()
	if e, ok := localTable[l.key]; ok && e.owner != l && (l.ttl <= 0 || now.Before(e.expires)) {
		return false, nil
	}
	localTable[l.key] = localEntry{owner: l, expires: now.Add(l.ttl)}
	return true, nil
}

// Release frees the key if this instance still owns it.
func (l *LocalLock) Release(_ context.Context) error {
	localMu.Lock()
	defer localMu.Unlock()
	if e, ok := localTable[l.key]; ok && e.owner == l {
		delete(localTable, l.key)
	}
	return nil
}
