package handlers

import (
	"context"

	"github.com/coursepay/coursepay/internal/domain/model"
	"github.com/coursepay/coursepay/internal/usecase"
)

// AuthFacade describes authentication capabilities required by handlers.
type AuthFacade interface {
	Register(ctx context.Context, login, password string) (string, error)
	Authenticate(ctx context.Context, login, password string) (string, error)
	ParseToken(token string) (int64, error)
}

// CheckoutFacade encapsulates checkout session operations exposed via HTTP.
type CheckoutFacade interface {
	CreateCheckout(ctx context.Context, userID int64, in usecase.CheckoutInput) (*usecase.CheckoutResult, error)
	RetryCheckout(ctx context.Context, userID int64, purchaseID string) (*usecase.CheckoutResult, error)
}

// PurchaseFacade provides purchase history and refund operations.
type PurchaseFacade interface {
	Purchases(ctx context.Context, userID int64) ([]model.Purchase, error)
	RequestRefund(ctx context.Context, userID int64, purchaseID string) error
}

// AccessFacade resolves event access for authenticated users.
type AccessFacade interface {
	EventAccess(ctx context.Context, userID int64, eventID string) (*model.AccessDecision, error)
}

// WebhookFacade verifies and dispatches inbound gateway callbacks.
type WebhookFacade interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// PaymentFacade aggregates the full set of operations used across handlers.
type PaymentFacade interface {
	AuthFacade
	CheckoutFacade
	PurchaseFacade
	AccessFacade
	WebhookFacade
}
