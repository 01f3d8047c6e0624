// Package lock provides a named mutual-exclusion primitive with acquisition
// timeout. The checkout path uses it to serialize work on a single purchase.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLockTimeout indicates the lock could not be acquired within the timeout.
// Callers surface it as a retryable conflict.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Locker acquires and releases named locks. Acquire is non-blocking and
// reports whether the lock was taken; ttl bounds how long a crashed holder
// can keep the lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

const acquireRetryInterval = 50 * time.Millisecond

// WithLock runs fn under the named lock. The lock is released on every exit
// path and fn's error is propagated. If the lock is not acquired within
// timeout, fn is never invoked and ErrLockTimeout is returned.
func WithLock(ctx context.Context, l Locker, key string, timeout time.Duration, fn func(ctx context.Context) error) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := l.Acquire(ctx, key, timeout)
		if err != nil {
			return err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(acquireRetryInterval):
		}
	}

	defer func() {
		// Release must not inherit a canceled request context.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = l.Release(releaseCtx, key)
	}()

	return fn(ctx)
}
