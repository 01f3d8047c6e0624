package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/coursepay/coursepay/internal/adapter/gateway"
	"github.com/coursepay/coursepay/internal/adapter/notification"
	domainErrors "github.com/coursepay/coursepay/internal/domain/errors"
	"github.com/coursepay/coursepay/internal/domain/model"
	"github.com/coursepay/coursepay/internal/domain/repository"
)

// RefundProcessor starts refunds and reconciles asynchronous refund events
// from the gateway. Notifications are best-effort and never fail a
// transition.
type RefundProcessor struct {
	purchases repository.PurchaseRepository
	lifecycle *LifecycleUseCase
	gw        gateway.Client
	notifier  notification.Notifier
	logger    *slog.Logger
}

// NewRefundProcessor constructs RefundProcessor.
func NewRefundProcessor(
	purchases repository.PurchaseRepository,
	lifecycle *LifecycleUseCase,
	gw gateway.Client,
	notifier notification.Notifier,
	logger *slog.Logger,
) *RefundProcessor {
	return &RefundProcessor{
		purchases: purchases,
		lifecycle: lifecycle,
		gw:        gw,
		notifier:  notifier,
		logger:    logger,
	}
}

// InitiateRefund requests a gateway refund for a completed purchase and moves
// it to refund_processing. The caller must own the purchase or be an admin.
func (p *RefundProcessor) InitiateRefund(ctx context.Context, userID int64, purchaseID string, isAdmin bool) error {
	purchase, err := p.purchases.GetByID(ctx, purchaseID)
	if err != nil {
		return err
	}
	if purchase.UserID != userID && !isAdmin {
		return domainErrors.ErrForbidden
	}
	if purchase.Status != model.PurchaseStatusCompleted {
		return domainErrors.ErrNotCompleted
	}
	if purchase.GatewayPaymentIntentID == nil {
		return domainErrors.ErrNotCompleted
	}

	refundID, err := p.gw.CreateRefund(ctx, *purchase.GatewayPaymentIntentID, map[string]string{
		gateway.MetadataPurchaseID:  purchase.ID,
		gateway.MetadataOrderNumber: purchase.OrderNumber,
		gateway.MetadataUserID:      strconv.FormatInt(purchase.UserID, 10),
	})
	if err != nil {
		return err
	}

	applied, err := p.lifecycle.MarkRefundProcessing(ctx, purchase.ID, refundID)
	if err != nil {
		return err
	}
	if !applied {
		p.logger.Info("refund already in progress",
			slog.String("purchase", purchase.ID),
		)
	}
	return nil
}

// HandleRefundEvent reconciles one refund_updated gateway event. Events for
// unknown or missing purchases are acknowledged and dropped so the gateway
// stops retrying them.
func (p *RefundProcessor) HandleRefundEvent(ctx context.Context, ev *gateway.WebhookEvent) error {
	if ev.PurchaseID == "" {
		p.logger.Warn("refund event without purchase metadata",
			slog.String("refund", ev.RefundID),
		)
		return nil
	}

	purchase, err := p.purchases.GetByID(ctx, ev.PurchaseID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			p.logger.Warn("refund event for unknown purchase",
				slog.String("purchase", ev.PurchaseID),
				slog.String("refund", ev.RefundID),
			)
			return nil
		}
		return err
	}

	switch ev.RefundStatus {
	case gateway.RefundStatusPending:
		return nil
	case gateway.RefundStatusSucceeded:
		return p.applyRefunded(ctx, purchase)
	case gateway.RefundStatusFailed:
		return p.applyRefundFailed(ctx, purchase, ev.FailureReason)
	case gateway.RefundStatusCanceled:
		return p.applyRefundCanceled(ctx, purchase)
	default:
		p.logger.Warn("refund event with unknown status",
			slog.String("purchase", purchase.ID),
			slog.String("status", string(ev.RefundStatus)),
		)
		return nil
	}
}

func (p *RefundProcessor) applyRefunded(ctx context.Context, purchase *model.Purchase) error {
	applied, err := p.lifecycle.MarkRefunded(ctx, purchase.ID)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	p.notifyUser(ctx, purchase.UserID, "Refund completed",
		fmt.Sprintf("Your refund for order %s has been completed.", purchase.OrderNumber))
	p.notifyAdmins(ctx, "Refund completed",
		fmt.Sprintf("Refund for order %s (purchase %s) succeeded.", purchase.OrderNumber, purchase.ID),
		notification.PriorityNormal)
	return nil
}

func (p *RefundProcessor) applyRefundFailed(ctx context.Context, purchase *model.Purchase, reason string) error {
	if reason == "" {
		reason = "refund failed at the payment gateway"
	}
	applied, err := p.lifecycle.MarkRefundFailed(ctx, purchase.ID, reason)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	p.notifyUser(ctx, purchase.UserID, "Refund failed",
		fmt.Sprintf("Your refund for order %s could not be completed. Support has been notified.", purchase.OrderNumber))
	p.notifyAdmins(ctx, "Refund failed",
		fmt.Sprintf("Refund for order %s (purchase %s) failed: %s", purchase.OrderNumber, purchase.ID, reason),
		notification.PriorityHigh)
	return nil
}

func (p *RefundProcessor) applyRefundCanceled(ctx context.Context, purchase *model.Purchase) error {
	applied, err := p.lifecycle.RevertRefundCanceled(ctx, purchase.ID)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	p.notifyUser(ctx, purchase.UserID, "Refund canceled",
		fmt.Sprintf("Your refund for order %s was canceled by the payment gateway. Your purchase remains active.", purchase.OrderNumber))
	p.notifyAdmins(ctx, "Refund canceled by gateway",
		fmt.Sprintf("Refund for order %s (purchase %s) was canceled by the gateway; purchase reverted to completed.", purchase.OrderNumber, purchase.ID),
		notification.PriorityHigh)
	return nil
}

func (p *RefundProcessor) notifyUser(ctx context.Context, userID int64, subject, message string) {
	if err := p.notifier.NotifyUser(ctx, userID, subject, message); err != nil {
		p.logger.Warn("user notification failed",
			slog.Int64("user", userID),
			slog.String("error", err.Error()),
		)
	}
}

func (p *RefundProcessor) notifyAdmins(ctx context.Context, subject, message string, priority notification.Priority) {
	if err := p.notifier.NotifyAdmins(ctx, subject, message, priority); err != nil {
		p.logger.Warn("admin notification failed",
			slog.String("error", err.Error()),
		)
	}
}
