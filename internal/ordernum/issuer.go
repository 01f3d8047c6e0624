// Package ordernum issues unique, humanly sortable order numbers of the form
// ORD-<YYYYMMDD>-<5-digit-sequence>.
package ordernum

import (
	"context"
	"fmt"
	"time"

	"github.com/coursepay/coursepay/internal/domain/repository"
)

const dayLayout = "20060102"

// Issuer generates order numbers backed by a per-day counter. The counter is
// incremented atomically by the repository, so concurrent issuances for the
// same day never collide.
type Issuer struct {
	counters repository.OrderCounterRepository
	now      func() time.Time
}

// NewIssuer constructs an Issuer. The clock defaults to time.Now.
func NewIssuer(counters repository.OrderCounterRepository) *Issuer {
	return &Issuer{counters: counters, now: time.Now}
}

// Next returns the next order number for today.
func (i *Issuer) Next(ctx context.Context) (string, error) {
	day := i.now().UTC().Format(dayLayout)
	seq, err := i.counters.NextSequence(ctx, day)
	if err != nil {
		return "", fmt.Errorf("next order sequence: %w", err)
	}
	return fmt.Sprintf("ORD-%s-%05d", day, seq), nil
}
