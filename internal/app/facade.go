package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/coursepay/coursepay/internal/adapter/gateway"
	"github.com/coursepay/coursepay/internal/domain/model"
	"github.com/coursepay/coursepay/internal/domain/repository"
	"github.com/coursepay/coursepay/internal/usecase"
)

// CheckoutPaymentFacade aggregates the use cases behind the HTTP handlers and
// the cleanup worker.
type CheckoutPaymentFacade struct {
	auth      *usecase.AuthUseCase
	checkout  *usecase.CheckoutUseCase
	lifecycle *usecase.LifecycleUseCase
	refunds   *usecase.RefundProcessor
	access    *usecase.AccessUseCase
	purchases repository.PurchaseRepository
	gw        gateway.Client
	logger    *slog.Logger
}

// NewCheckoutPaymentFacade constructs the facade.
func NewCheckoutPaymentFacade(
	auth *usecase.AuthUseCase,
	checkout *usecase.CheckoutUseCase,
	lifecycle *usecase.LifecycleUseCase,
	refunds *usecase.RefundProcessor,
	access *usecase.AccessUseCase,
	purchases repository.PurchaseRepository,
	gw gateway.Client,
	logger *slog.Logger,
) *CheckoutPaymentFacade {
	return &CheckoutPaymentFacade{
		auth:      auth,
		checkout:  checkout,
		lifecycle: lifecycle,
		refunds:   refunds,
		access:    access,
		purchases: purchases,
		gw:        gw,
		logger:    logger,
	}
}

func (f *CheckoutPaymentFacade) Register(ctx context.Context, login, password string) (string, error) {
	_, token, err := f.auth.Register(ctx, login, password)
	return token, err
}

func (f *CheckoutPaymentFacade) Authenticate(ctx context.Context, login, password string) (string, error) {
	_, token, err := f.auth.Authenticate(ctx, login, password)
	return token, err
}

func (f *CheckoutPaymentFacade) ParseToken(token string) (int64, error) {
	return f.auth.ParseToken(token)
}

func (f *CheckoutPaymentFacade) CreateCheckout(ctx context.Context, userID int64, in usecase.CheckoutInput) (*usecase.CheckoutResult, error) {
	return f.checkout.CreateCheckout(ctx, userID, in)
}

func (f *CheckoutPaymentFacade) RetryCheckout(ctx context.Context, userID int64, purchaseID string) (*usecase.CheckoutResult, error) {
	return f.checkout.RetryPending(ctx, userID, purchaseID)
}

func (f *CheckoutPaymentFacade) Purchases(ctx context.Context, userID int64) ([]model.Purchase, error) {
	return f.purchases.ListByUser(ctx, userID)
}

func (f *CheckoutPaymentFacade) RequestRefund(ctx context.Context, userID int64, purchaseID string) error {
	user, err := f.auth.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	return f.refunds.InitiateRefund(ctx, userID, purchaseID, user.IsAdmin)
}

func (f *CheckoutPaymentFacade) EventAccess(ctx context.Context, userID int64, eventID string) (*model.AccessDecision, error) {
	user, err := f.auth.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return f.access.CheckAccess(ctx, user, eventID)
}

// HandleWebhook verifies the callback signature and dispatches the event to
// the matching lifecycle transition. Events that cannot be correlated to a
// purchase are acknowledged so the gateway stops redelivering them.
func (f *CheckoutPaymentFacade) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := f.gw.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	switch ev.Type {
	case gateway.EventCheckoutCompleted:
		return f.handleCheckoutCompleted(ctx, ev)
	case gateway.EventCheckoutExpired:
		return f.handleCheckoutExpired(ev)
	case gateway.EventPaymentFailed:
		return f.handlePaymentFailed(ctx, ev)
	case gateway.EventRefundUpdated:
		return f.refunds.HandleRefundEvent(ctx, ev)
	default:
		f.logger.Info("ignoring unhandled gateway event", slog.String("session", ev.SessionID))
		return nil
	}
}

func (f *CheckoutPaymentFacade) handleCheckoutCompleted(ctx context.Context, ev *gateway.WebhookEvent) error {
	if ev.PurchaseID == "" {
		f.logger.Warn("checkout completion without purchase metadata", slog.String("session", ev.SessionID))
		return nil
	}
	applied, err := f.lifecycle.Complete(ctx, ev.PurchaseID, ev.PaymentIntentID)
	if err != nil {
		return err
	}
	if applied {
		f.logger.Info("purchase completed",
			slog.String("purchase", ev.PurchaseID),
			slog.String("order", ev.OrderNumber),
		)
	}
	return nil
}

// handleCheckoutExpired acknowledges the event without a transition. An
// expired session only means the buyer abandoned the hosted page: the
// purchase stays pending so RetryPending can mint a fresh session, and the
// cleanup worker sweeps it once stale.
func (f *CheckoutPaymentFacade) handleCheckoutExpired(ev *gateway.WebhookEvent) error {
	f.logger.Info("checkout session expired",
		slog.String("purchase", ev.PurchaseID),
		slog.String("session", ev.SessionID),
	)
	return nil
}

func (f *CheckoutPaymentFacade) handlePaymentFailed(ctx context.Context, ev *gateway.WebhookEvent) error {
	if ev.PurchaseID == "" {
		f.logger.Warn("payment failure without purchase metadata", slog.String("session", ev.SessionID))
		return nil
	}
	applied, err := f.lifecycle.Fail(ctx, ev.PurchaseID)
	if err != nil {
		return err
	}
	if applied {
		f.logger.Info("purchase failed",
			slog.String("purchase", ev.PurchaseID),
			slog.String("reason", ev.FailureReason),
		)
	}
	return nil
}

func (f *CheckoutPaymentFacade) StalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Purchase, error) {
	return f.purchases.SelectStalePending(ctx, olderThan, limit)
}

func (f *CheckoutPaymentFacade) ExpireSession(ctx context.Context, sessionID string) error {
	return f.gw.ExpireSession(ctx, sessionID)
}

func (f *CheckoutPaymentFacade) DeletePurchase(ctx context.Context, purchaseID string) error {
	return f.purchases.Delete(ctx, purchaseID)
}
