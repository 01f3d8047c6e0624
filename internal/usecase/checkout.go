package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/coursepay/coursepay/internal/adapter/gateway"
	domainErrors "github.com/coursepay/coursepay/internal/domain/errors"
	"github.com/coursepay/coursepay/internal/domain/model"
	"github.com/coursepay/coursepay/internal/domain/repository"
	"github.com/coursepay/coursepay/internal/lock"
	"github.com/coursepay/coursepay/internal/ordernum"
	"github.com/coursepay/coursepay/internal/pricing"
)

// CheckoutInput is the buyer's checkout request after transport decoding.
type CheckoutInput struct {
	Kind      model.PurchaseKind
	TargetID  string
	PromoCode string
	ClassRep  bool
}

// CheckoutResult carries everything the buyer needs to pay.
type CheckoutResult struct {
	SessionID   string
	SessionURL  string
	PurchaseID  string
	OrderNumber string
}

// CheckoutOptions bundles the orchestrator's tunables.
type CheckoutOptions struct {
	LockTimeout time.Duration
	MinCharge   int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// CheckoutUseCase orchestrates checkout-session creation. Cheap read-only
// preconditions run before the critical section; everything that writes runs
// under the per-purchase named lock.
type CheckoutUseCase struct {
	purchases repository.PurchaseRepository
	promos    repository.PromoCodeRepository
	catalog   repository.CatalogRepository
	issuer    *ordernum.Issuer
	locker    lock.Locker
	gw        gateway.Client
	opts      CheckoutOptions
	logger    *slog.Logger
	now       func() time.Time
}

// NewCheckoutUseCase constructs CheckoutUseCase.
func NewCheckoutUseCase(
	purchases repository.PurchaseRepository,
	promos repository.PromoCodeRepository,
	catalog repository.CatalogRepository,
	issuer *ordernum.Issuer,
	locker lock.Locker,
	gw gateway.Client,
	opts CheckoutOptions,
	logger *slog.Logger,
) *CheckoutUseCase {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 30 * time.Second
	}
	return &CheckoutUseCase{
		purchases: purchases,
		promos:    promos,
		catalog:   catalog,
		issuer:    issuer,
		locker:    locker,
		gw:        gw,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

func lockKey(purchaseID string) string {
	return "purchase:complete:" + purchaseID
}

// CreateCheckout validates the request, then creates a pending purchase and a
// gateway checkout session under the per-purchase lock. A failure after the
// purchase is persisted leaves a pending record with no session id, which is
// harmless and swept by the staleness cleanup.
func (u *CheckoutUseCase) CreateCheckout(ctx context.Context, userID int64, in CheckoutInput) (*CheckoutResult, error) {
	target, err := u.loadTarget(ctx, in.Kind, in.TargetID)
	if err != nil {
		return nil, err
	}
	if target.BasePrice() <= 0 {
		return nil, domainErrors.ErrFreeItem
	}
	if event, ok := target.(*model.Event); ok && event.IsFree {
		return nil, domainErrors.ErrFreeItem
	}

	var promo *model.PromoCode
	if in.PromoCode != "" {
		promo, err = u.promos.GetByCode(ctx, in.PromoCode)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNotFound) {
				return nil, domainErrors.ErrPromoNotApplicable
			}
			return nil, err
		}
		if err := promo.CanBeUsedBy(userID, target.TargetID()); err != nil {
			return nil, err
		}
	}

	owned, err := u.purchases.HasCompleted(ctx, userID, target.Kind(), target.TargetID())
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, domainErrors.ErrAlreadyPurchased
	}

	purchaseID := uuid.NewString()

	var result *CheckoutResult
	err = lock.WithLock(ctx, u.locker, lockKey(purchaseID), u.opts.LockTimeout, func(ctx context.Context) error {
		result, err = u.createUnderLock(ctx, userID, target, promo, in.ClassRep, purchaseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (u *CheckoutUseCase) createUnderLock(ctx context.Context, userID int64, target model.PurchaseTarget, promo *model.PromoCode, classRep bool, purchaseID string) (*CheckoutResult, error) {
	// A pending purchase for the same buyer+item is replaced so pricing is
	// recomputed fresh, e.g. when the buyer changes their promo code mid-flow.
	if prior, err := u.purchases.FindPending(ctx, userID, target.Kind(), target.TargetID()); err == nil {
		if prior.GatewaySessionID != nil {
			if expireErr := u.gw.ExpireSession(ctx, *prior.GatewaySessionID); expireErr != nil {
				u.logger.Warn("expire prior session failed",
					slog.String("purchase", prior.ID),
					slog.String("error", expireErr.Error()),
				)
			}
		}
		if err := u.purchases.Delete(ctx, prior.ID); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, err
	}

	purchase := u.buildPurchase(userID, target, promo, classRep, purchaseID)
	if purchase.FinalPrice < u.opts.MinCharge {
		return nil, domainErrors.ErrPriceBelowMinimum
	}

	orderNumber, err := u.issuer.Next(ctx)
	if err != nil {
		return nil, err
	}
	purchase.OrderNumber = orderNumber

	if err := u.purchases.Create(ctx, purchase); err != nil {
		return nil, err
	}

	session, err := u.createSession(ctx, purchase, target.Title())
	if err != nil {
		return nil, err
	}

	if err := u.purchases.SetGatewaySession(ctx, purchase.ID, session.ID); err != nil {
		return nil, err
	}

	return &CheckoutResult{
		SessionID:   session.ID,
		SessionURL:  session.URL,
		PurchaseID:  purchase.ID,
		OrderNumber: orderNumber,
	}, nil
}

// RetryPending issues a fresh gateway session for an existing pending
// purchase. Price fields are reused as stored, not recomputed.
func (u *CheckoutUseCase) RetryPending(ctx context.Context, userID int64, purchaseID string) (*CheckoutResult, error) {
	purchase, err := u.purchases.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase.UserID != userID {
		return nil, domainErrors.ErrForbidden
	}
	if purchase.Status != model.PurchaseStatusPending {
		return nil, domainErrors.ErrNotPending
	}

	owned, err := u.purchases.HasCompleted(ctx, userID, purchase.Kind, purchase.TargetID())
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, domainErrors.ErrAlreadyPurchased
	}

	target, err := u.loadTarget(ctx, purchase.Kind, purchase.TargetID())
	if err != nil {
		return nil, err
	}

	var result *CheckoutResult
	err = lock.WithLock(ctx, u.locker, lockKey(purchase.ID), u.opts.LockTimeout, func(ctx context.Context) error {
		session, err := u.createSession(ctx, purchase, target.Title())
		if err != nil {
			return err
		}
		if err := u.purchases.SetGatewaySession(ctx, purchase.ID, session.ID); err != nil {
			return err
		}
		result = &CheckoutResult{
			SessionID:   session.ID,
			SessionURL:  session.URL,
			PurchaseID:  purchase.ID,
			OrderNumber: purchase.OrderNumber,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (u *CheckoutUseCase) loadTarget(ctx context.Context, kind model.PurchaseKind, targetID string) (model.PurchaseTarget, error) {
	switch kind {
	case model.PurchaseKindProgram:
		return u.catalog.GetProgram(ctx, targetID)
	case model.PurchaseKindEvent:
		return u.catalog.GetEvent(ctx, targetID)
	default:
		return nil, domainErrors.ErrValidation
	}
}

func (u *CheckoutUseCase) buildPurchase(userID int64, target model.PurchaseTarget, promo *model.PromoCode, classRep bool, purchaseID string) *model.Purchase {
	in := pricing.Input{FullPrice: target.BasePrice()}

	if program, ok := target.(*model.Program); ok {
		if classRep {
			in.ClassRepDiscount = program.ClassRepDiscount
		}
		if program.EarlyBirdActive(u.now()) {
			in.EarlyBirdDiscount = program.EarlyBirdDiscount
		}
	}

	purchase := &model.Purchase{
		ID:                purchaseID,
		UserID:            userID,
		Kind:              target.Kind(),
		FullPrice:         in.FullPrice,
		ClassRepDiscount:  in.ClassRepDiscount,
		EarlyBirdDiscount: in.EarlyBirdDiscount,
		Status:            model.PurchaseStatusPending,
	}

	targetID := target.TargetID()
	switch target.Kind() {
	case model.PurchaseKindProgram:
		purchase.ProgramID = &targetID
	case model.PurchaseKindEvent:
		purchase.EventID = &targetID
	}

	if promo != nil {
		in.PromoDiscountAmount = promo.DiscountAmount
		in.PromoDiscountPercent = promo.DiscountPercent
		purchase.PromoDiscountAmount = promo.DiscountAmount
		purchase.PromoDiscountPercent = promo.DiscountPercent
		code := promo.Code
		purchase.PromoCode = &code
	}

	purchase.FinalPrice = pricing.FinalPrice(in)
	return purchase
}

func (u *CheckoutUseCase) createSession(ctx context.Context, purchase *model.Purchase, title string) (*gateway.Session, error) {
	req := gateway.SessionRequest{
		Title:      fmt.Sprintf("%s (%s)", title, purchase.OrderNumber),
		Amount:     purchase.FinalPrice,
		Currency:   u.opts.Currency,
		SuccessURL: u.opts.SuccessURL,
		CancelURL:  u.opts.CancelURL,
		Metadata: map[string]string{
			gateway.MetadataPurchaseID:  purchase.ID,
			gateway.MetadataOrderNumber: purchase.OrderNumber,
			gateway.MetadataUserID:      strconv.FormatInt(purchase.UserID, 10),
		},
	}
	return u.gw.CreateSession(ctx, req)
}
