package dto

import "time"

// PurchaseResponse represents one purchase in history listings.
type PurchaseResponse struct {
	ID                  string     `json:"id"`
	Kind                string     `json:"kind"`
	TargetID            string     `json:"target_id"`
	OrderNumber         string     `json:"order_number"`
	FullPrice           int64      `json:"full_price"`
	FinalPrice          int64      `json:"final_price"`
	PromoCode           *string    `json:"promo_code,omitempty"`
	Status              string     `json:"status"`
	RefundFailureReason *string    `json:"refund_failure_reason,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	RefundedAt          *time.Time `json:"refunded_at,omitempty"`
}
