// Package gateway adapts the external payment provider. The rest of the
// system only sees the Client interface and the normalized WebhookEvent.
package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Metadata keys embedded in gateway sessions so asynchronous events can be
// correlated back to local purchases.
const (
	MetadataPurchaseID  = "purchase_id"
	MetadataOrderNumber = "order_number"
	MetadataUserID      = "user_id"
)

// Error wraps a failure from the payment provider with the operation that
// produced it. The underlying message is preserved, never swallowed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("gateway %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// ErrBadSignature indicates an inbound webhook failed signature verification.
var ErrBadSignature = errors.New("webhook signature verification failed")

// SessionRequest describes one hosted checkout session for a single item.
type SessionRequest struct {
	Title      string
	Amount     int64
	Currency   string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Session is the provider-hosted payment collection flow.
type Session struct {
	ID  string
	URL string
}

// EventType is the normalized inbound webhook event kind.
type EventType string

const (
	EventCheckoutCompleted EventType = "checkout_completed"
	EventCheckoutExpired   EventType = "checkout_expired"
	EventPaymentFailed     EventType = "payment_failed"
	EventRefundUpdated     EventType = "refund_updated"
	EventUnknown           EventType = "unknown"
)

// RefundStatus mirrors the provider's refund lifecycle.
type RefundStatus string

const (
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
	RefundStatusCanceled  RefundStatus = "canceled"
	RefundStatusPending   RefundStatus = "pending"
)

// WebhookEvent is a normalized gateway callback. Delivery is at-least-once
// and possibly out of order; consumers must be idempotent.
type WebhookEvent struct {
	Type            EventType
	SessionID       string
	PaymentIntentID string
	RefundID        string
	RefundStatus    RefundStatus
	Amount          int64
	FailureReason   string
	PurchaseID      string
	OrderNumber     string
	UserID          string
}

// Client exposes the payment provider operations the core needs.
type Client interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	ExpireSession(ctx context.Context, sessionID string) error
	CreateRefund(ctx context.Context, paymentIntentID string, metadata map[string]string) (string, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
