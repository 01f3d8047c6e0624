package facade

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coursepay/coursepay/internal/domain/model"
	"github.com/coursepay/coursepay/internal/usecase"
)

// AuthFacadeStub simulates authentication facade interactions.
type AuthFacadeStub struct {
	RegisterFn     func(context.Context, string, string) (string, error)
	AuthenticateFn func(context.Context, string, string) (string, error)
	ParseFn        func(string) (int64, error)
}

// Register returns token for successful registration scenarios.
func (s AuthFacadeStub) Register(ctx context.Context, login, password string) (string, error) {
	if s.RegisterFn != nil {
		return s.RegisterFn(ctx, login, password)
	}
	return "token", nil
}

// Authenticate returns token for successful authentication scenarios.
func (s AuthFacadeStub) Authenticate(ctx context.Context, login, password string) (string, error) {
	if s.AuthenticateFn != nil {
		return s.AuthenticateFn(ctx, login, password)
	}
	return "token", nil
}

// ParseToken returns stored identifier for authenticated user.
func (s AuthFacadeStub) ParseToken(token string) (int64, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return 1, nil
}

// CheckoutFacadeStub provides controllable behaviour for checkout endpoints.
type CheckoutFacadeStub struct {
	CreateFn func(context.Context, int64, usecase.CheckoutInput) (*usecase.CheckoutResult, error)
	RetryFn  func(context.Context, int64, string) (*usecase.CheckoutResult, error)
}

// CreateCheckout delegates to provided function or returns default result.
func (s CheckoutFacadeStub) CreateCheckout(ctx context.Context, userID int64, in usecase.CheckoutInput) (*usecase.CheckoutResult, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, userID, in)
	}
	return &usecase.CheckoutResult{
		SessionID:   "cs_test_1",
		SessionURL:  "https://pay.example/cs_test_1",
		PurchaseID:  "p-1",
		OrderNumber: "ORD-20260826-00001",
	}, nil
}

// RetryCheckout delegates to provided function or returns default result.
func (s CheckoutFacadeStub) RetryCheckout(ctx context.Context, userID int64, purchaseID string) (*usecase.CheckoutResult, error) {
	if s.RetryFn != nil {
		return s.RetryFn(ctx, userID, purchaseID)
	}
	return &usecase.CheckoutResult{
		SessionID:   "cs_test_2",
		SessionURL:  "https://pay.example/cs_test_2",
		PurchaseID:  purchaseID,
		OrderNumber: "ORD-20260826-00001",
	}, nil
}

// PurchaseFacadeStub simulates purchase history and refund operations.
type PurchaseFacadeStub struct {
	PurchasesFn func(context.Context, int64) ([]model.Purchase, error)
	RefundFn    func(context.Context, int64, string) error
}

// Purchases returns predefined purchases for given user.
func (s PurchaseFacadeStub) Purchases(ctx context.Context, userID int64) ([]model.Purchase, error) {
	if s.PurchasesFn != nil {
		return s.PurchasesFn(ctx, userID)
	}
	return []model.Purchase{{ID: "p-1", OrderNumber: "ORD-20260826-00001"}}, nil
}

// RequestRefund executes configured refund handler.
func (s PurchaseFacadeStub) RequestRefund(ctx context.Context, userID int64, purchaseID string) error {
	if s.RefundFn != nil {
		return s.RefundFn(ctx, userID, purchaseID)
	}
	return nil
}

// AccessFacadeStub simulates event access resolution.
type AccessFacadeStub struct {
	AccessFn func(context.Context, int64, string) (*model.AccessDecision, error)
}

// EventAccess returns configured decision or a default grant.
func (s AccessFacadeStub) EventAccess(ctx context.Context, userID int64, eventID string) (*model.AccessDecision, error) {
	if s.AccessFn != nil {
		return s.AccessFn(ctx, userID, eventID)
	}
	return &model.AccessDecision{HasAccess: true, Reason: model.AccessReasonFreeEvent}, nil
}

// WebhookFacadeStub simulates webhook verification and dispatch.
type WebhookFacadeStub struct {
	HandleFn func(context.Context, []byte, string) error
}

// HandleWebhook delegates to provided function or acknowledges the event.
func (s WebhookFacadeStub) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.HandleFn != nil {
		return s.HandleFn(ctx, payload, signature)
	}
	return nil
}

// PaymentFacadeStub aggregates facade dependencies for HTTP layer tests.
type PaymentFacadeStub struct {
	AuthFacadeStub
	CheckoutFacadeStub
	PurchaseFacadeStub
	AccessFacadeStub
	WebhookFacadeStub
}

// CleanupFacadeStub mimics worker interactions with the checkout facade.
type CleanupFacadeStub struct {
	Batches        [][]model.Purchase
	StalePendingFn func(context.Context, time.Time, int) ([]model.Purchase, error)
	ExpireErr      error
	DeleteErr      error
	Expired        []string
	Deleted        []string
	mu             sync.Mutex
	batchCallCount int32
}

// Lock exposes internal mutex for external synchronization.
func (s *CleanupFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *CleanupFacadeStub) Unlock() { s.mu.Unlock() }

// StalePending returns batches from configured queue.
func (s *CleanupFacadeStub) StalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Purchase, error) {
	if s.StalePendingFn != nil {
		return s.StalePendingFn(ctx, olderThan, limit)
	}
	call := atomic.AddInt32(&s.batchCallCount, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// ExpireSession records the expired session id.
func (s *CleanupFacadeStub) ExpireSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Expired = append(s.Expired, sessionID)
	return s.ExpireErr
}

// DeletePurchase records the removed purchase id.
func (s *CleanupFacadeStub) DeletePurchase(ctx context.Context, purchaseID string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, purchaseID)
	return nil
}
