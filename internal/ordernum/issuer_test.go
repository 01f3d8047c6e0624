package ordernum

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	testhelpers "github.com/coursepay/coursepay/internal/test"
)

func TestIssuerFormatsNumbers(t *testing.T) {
	counters := testhelpers.NewOrderCounterStub()
	issuer := NewIssuer(counters)
	issuer.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }

	first, err := issuer.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != "ORD-20260314-00001" {
		t.Fatalf("unexpected order number: %s", first)
	}

	second, err := issuer.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != "ORD-20260314-00002" {
		t.Fatalf("unexpected order number: %s", second)
	}
}

func TestIssuerPropagatesCounterError(t *testing.T) {
	boom := errors.New("boom")
	counters := testhelpers.NewOrderCounterStub()
	counters.Err = boom
	issuer := NewIssuer(counters)

	if _, err := issuer.Next(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped counter error, got %v", err)
	}
}

func TestIssuerConcurrentUniqueness(t *testing.T) {
	counters := testhelpers.NewOrderCounterStub()
	issuer := NewIssuer(counters)
	issuer.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }

	const n = 64
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := issuer.Next(context.Background())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			numbers[num] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(numbers) != n {
		t.Fatalf("expected %d unique order numbers, got %d", n, len(numbers))
	}
}
