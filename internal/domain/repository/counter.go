package repository

import "context"

// OrderCounterRepository hands out monotonically increasing per-day sequence
// numbers via an atomic upsert-increment, safe under concurrent issuance.
type OrderCounterRepository interface {
	NextSequence(ctx context.Context, day string) (int64, error)
}
