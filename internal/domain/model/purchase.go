package model

import "time"

// PurchaseStatus describes the purchase lifecycle.
type PurchaseStatus string

const (
	PurchaseStatusPending          PurchaseStatus = "pending"
	PurchaseStatusCompleted        PurchaseStatus = "completed"
	PurchaseStatusFailed           PurchaseStatus = "failed"
	PurchaseStatusRefundProcessing PurchaseStatus = "refund_processing"
	PurchaseStatusRefunded         PurchaseStatus = "refunded"
	PurchaseStatusRefundFailed     PurchaseStatus = "refund_failed"
)

// PurchaseKind tags which catalog item a purchase points at.
type PurchaseKind string

const (
	PurchaseKindProgram PurchaseKind = "program"
	PurchaseKindEvent   PurchaseKind = "event"
)

// RefundCanceledReason is the canonical failure reason recorded when the
// gateway aborts a refund and the purchase reverts to completed.
const RefundCanceledReason = "refund was canceled by the payment gateway"

// Purchase is the transactional record of one buyer's attempt to acquire one
// program or event ticket. The identifier is generated before the gateway
// session so webhooks can correlate back through session metadata.
// All monetary fields are integer minor-currency units.
type Purchase struct {
	ID     string
	UserID int64

	Kind      PurchaseKind
	ProgramID *string
	EventID   *string

	OrderNumber string

	FullPrice            int64
	ClassRepDiscount     int64
	EarlyBirdDiscount    int64
	PromoDiscountAmount  int64
	PromoDiscountPercent int64
	FinalPrice           int64
	PromoCode            *string

	Status PurchaseStatus

	GatewaySessionID       *string
	GatewayPaymentIntentID *string
	GatewayRefundID        *string

	RefundInitiatedAt   *time.Time
	RefundedAt          *time.Time
	RefundFailureReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TargetID returns the identifier of the purchased item.
func (p *Purchase) TargetID() string {
	switch p.Kind {
	case PurchaseKindProgram:
		if p.ProgramID != nil {
			return *p.ProgramID
		}
	case PurchaseKindEvent:
		if p.EventID != nil {
			return *p.EventID
		}
	}
	return ""
}
