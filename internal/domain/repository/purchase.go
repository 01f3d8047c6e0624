package repository

import (
	"context"
	"time"

	"github.com/coursepay/coursepay/internal/domain/model"
)

// PurchaseRepository describes persistence operations with purchases. Status
// transitions are conditional updates guarded by the current persisted state;
// they report whether the transition was applied so replayed webhook events
// degrade to no-ops. Transitions with promo side effects (Complete,
// MarkRefunded) apply them in the same transaction.
type PurchaseRepository interface {
	Create(ctx context.Context, p *model.Purchase) error
	GetByID(ctx context.Context, id string) (*model.Purchase, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Purchase, error)
	Delete(ctx context.Context, id string) error

	FindPending(ctx context.Context, userID int64, kind model.PurchaseKind, targetID string) (*model.Purchase, error)
	HasCompleted(ctx context.Context, userID int64, kind model.PurchaseKind, targetID string) (bool, error)
	HasCompletedForPrograms(ctx context.Context, userID int64, programIDs []string) (bool, error)

	SetGatewaySession(ctx context.Context, id, sessionID string) error

	Complete(ctx context.Context, id, paymentIntentID string) (bool, error)
	Fail(ctx context.Context, id string) (bool, error)
	MarkRefundProcessing(ctx context.Context, id, refundID string) (bool, error)
	MarkRefunded(ctx context.Context, id string) (bool, error)
	MarkRefundFailed(ctx context.Context, id, reason string) (bool, error)
	RevertRefundToCompleted(ctx context.Context, id, reason string) (bool, error)

	SelectStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Purchase, error)
}
