// Package distlock provides the two cross-process locks the service needs:
// a Redis lock that keeps concurrent settings refills from stampeding the
// settings store, and a PostgreSQL advisory lock that serializes migrations.
package distlock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
)

// Locker is a non-blocking, single-owner lock.
type Locker interface {
	// Acquire returns true if the lock was taken by this caller.
	Acquire(ctx context.Context) (bool, error)
	// Release drops the lock if this caller still owns it.
	Release(ctx context.Context) error
}

// PGAdvisoryLock implements Locker with pg_try_advisory_lock. The lock is
// session-scoped, so it must be acquired and released on the same *sql.Conn.
type PGAdvisoryLock struct {
	conn   *sql.Conn
	lockID int64
}

// NewPGAdvisoryLock derives a stable lock id from key.
func NewPGAdvisoryLock(conn *sql.Conn, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{conn: conn, lockID: int64(h.Sum64())}
}

func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	var acquired bool
	if err := l.conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		return false, fmt.Errorf("advisory lock %d: %w", l.lockID, err)
	}
	return acquired, nil
}

func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
