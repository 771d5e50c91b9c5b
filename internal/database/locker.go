package database

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// Locker hands out named, cross-process locks.
type Locker interface {
	// TryLock attempts to take the lock without waiting. When ok is true the
	// caller must call unlock once done.
	TryLock(ctx context.Context, key string) (unlock func(), ok bool, err error)
}

// NewLocker returns a PostgreSQL advisory locker, or an in-process locker for
// SQLite where only one process can write anyway.
func NewLocker(db *gorm.DB) Locker {
	if db.Dialector.Name() == DriverPostgres {
		return &advisoryLocker{db: db}
	}
	return &localLocker{}
}

type advisoryLocker struct {
	db *gorm.DB
}

// TryLock takes a session-level advisory lock on a dedicated connection, so
// the lock lives exactly as long as that connection is held.
func (l *advisoryLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	sqlDB, err := l.db.DB()
	if err != nil {
		return nil, false, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock connection: %w", err)
	}

	var ok bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", key).Scan(&ok); err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("try advisory lock %q: %w", key, err)
	}
	if !ok {
		conn.Close()
		return nil, false, nil
	}

	return func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock(hashtext($1))", key)
		_ = conn.Close()
	}, true, nil
}

type localLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *localLocker) TryLock(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, exists := l.locks[key]
	if !exists {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, false, nil
	}
	return m.Unlock, true, nil
}
