package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coursepay/coursepay/internal/domain/model"
)

// CheckoutFacade exposes the subset of application functionality required by the worker.
type CheckoutFacade interface {
	StalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Purchase, error)
	ExpireSession(ctx context.Context, sessionID string) error
	DeletePurchase(ctx context.Context, purchaseID string) error
}

// CleanupProcessor sweeps abandoned pending purchases concurrently. Each
// sweep expires the gateway session, if any, and removes the purchase row.
type CleanupProcessor struct {
	facade       CheckoutFacade
	pollInterval time.Duration
	staleAfter   time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan model.Purchase
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewCleanupProcessor constructs the cleanup worker pool.
func NewCleanupProcessor(facade CheckoutFacade, pollInterval, staleAfter time.Duration, batchSize, workers int, logger *slog.Logger) *CleanupProcessor {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &CleanupProcessor{
		facade:       facade,
		pollInterval: pollInterval,
		staleAfter:   staleAfter,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		jobs:         make(chan model.Purchase, batchSize*workers),
	}
}

// Start launches background processing.
func (p *CleanupProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (p *CleanupProcessor) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *CleanupProcessor) dispatch(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.jobs)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchAndDispatch(ctx)
		}
	}
}

func (p *CleanupProcessor) fetchAndDispatch(ctx context.Context) {
	olderThan := time.Now().Add(-p.staleAfter)
	purchases, err := p.facade.StalePending(ctx, olderThan, p.batchSize)
	if err != nil {
		p.logger.Error("fetch stale purchases failed", slog.String("error", err.Error()))
		return
	}
	for _, purchase := range purchases {
		select {
		case <-ctx.Done():
			return
		case p.jobs <- purchase:
		}
	}
}

func (p *CleanupProcessor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case purchase, ok := <-p.jobs:
			if !ok {
				return
			}
			p.handlePurchase(ctx, purchase)
		}
	}
}

func (p *CleanupProcessor) handlePurchase(ctx context.Context, purchase model.Purchase) {
	if purchase.GatewaySessionID != nil {
		if err := p.facade.ExpireSession(ctx, *purchase.GatewaySessionID); err != nil {
			p.logger.Warn("expire stale session failed",
				slog.String("purchase", purchase.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := p.facade.DeletePurchase(ctx, purchase.ID); err != nil {
		p.logger.Error("delete stale purchase failed",
			slog.String("purchase", purchase.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	p.logger.Info("stale pending purchase removed",
		slog.String("purchase", purchase.ID),
		slog.String("order", purchase.OrderNumber),
	)
}
