package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/coursepay/coursepay/internal/lock"
)

// locker implements lock.Locker on a shared locks table. Acquisition is a
// single compare-and-swap upsert: the row is taken over only when its previous
// expiry has passed, which keeps the at-most-one-holder guarantee across
// instances.
type locker struct {
	storage *Storage
}

// Locks returns the cluster-wide named-lock implementation.
func (s *Storage) Locks() lock.Locker {
	return &locker{storage: s}
}

func (l *locker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	const query = `INSERT INTO locks (key, expires_at) VALUES ($1, $2)
                   ON CONFLICT (key) DO UPDATE SET expires_at = EXCLUDED.expires_at
                   WHERE locks.expires_at <= NOW()
                   RETURNING key`
	var acquired string
	err := l.storage.pool.QueryRow(ctx, query, key, time.Now().Add(ttl)).Scan(&acquired)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *locker) Release(ctx context.Context, key string) error {
	const query = `DELETE FROM locks WHERE key=$1`
	_, err := l.storage.pool.Exec(ctx, query, key)
	return err
}
