package usecase

import (
	"context"
	"log/slog"

	"github.com/coursepay/coursepay/internal/domain/model"
	"github.com/coursepay/coursepay/internal/domain/repository"
)

// LifecycleUseCase owns the purchase state machine. Every transition is a
// conditional update against the current persisted status, so replayed or
// out-of-order gateway events degrade to no-ops instead of double-applying
// side effects. Promo consumption and recovery travel inside the repository
// transactions of the Complete and MarkRefunded transitions.
type LifecycleUseCase struct {
	purchases repository.PurchaseRepository
	logger    *slog.Logger
}

// NewLifecycleUseCase constructs LifecycleUseCase.
func NewLifecycleUseCase(purchases repository.PurchaseRepository, logger *slog.Logger) *LifecycleUseCase {
	return &LifecycleUseCase{purchases: purchases, logger: logger}
}

// Complete moves pending to completed and consumes the promo code, if any.
// Returns whether the transition was applied.
func (u *LifecycleUseCase) Complete(ctx context.Context, purchaseID, paymentIntentID string) (bool, error) {
	applied, err := u.purchases.Complete(ctx, purchaseID, paymentIntentID)
	if err != nil {
		return false, err
	}
	if !applied {
		u.logger.Info("complete skipped, purchase not pending", slog.String("purchase", purchaseID))
	}
	return applied, nil
}

// Fail moves pending to failed. No promo consumption occurs.
func (u *LifecycleUseCase) Fail(ctx context.Context, purchaseID string) (bool, error) {
	applied, err := u.purchases.Fail(ctx, purchaseID)
	if err != nil {
		return false, err
	}
	if !applied {
		u.logger.Info("fail skipped, purchase not pending", slog.String("purchase", purchaseID))
	}
	return applied, nil
}

// MarkRefundProcessing moves completed to refund_processing; the purchase
// then waits for the gateway's asynchronous refund outcome.
func (u *LifecycleUseCase) MarkRefundProcessing(ctx context.Context, purchaseID, refundID string) (bool, error) {
	return u.purchases.MarkRefundProcessing(ctx, purchaseID, refundID)
}

// MarkRefunded moves refund_processing to refunded and restores the promo
// code, if any. Only this transition recovers the code.
func (u *LifecycleUseCase) MarkRefunded(ctx context.Context, purchaseID string) (bool, error) {
	return u.purchases.MarkRefunded(ctx, purchaseID)
}

// MarkRefundFailed moves refund_processing to refund_failed and records the
// reason. The promo code stays consumed.
func (u *LifecycleUseCase) MarkRefundFailed(ctx context.Context, purchaseID, reason string) (bool, error) {
	return u.purchases.MarkRefundFailed(ctx, purchaseID, reason)
}

// RevertRefundCanceled handles the gateway aborting a refund: the purchase
// goes back to completed with the canonical cancellation reason. The promo
// code stays consumed because no money was actually returned.
func (u *LifecycleUseCase) RevertRefundCanceled(ctx context.Context, purchaseID string) (bool, error) {
	return u.purchases.RevertRefundToCompleted(ctx, purchaseID, model.RefundCanceledReason)
}
