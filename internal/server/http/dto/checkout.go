package dto

// CheckoutRequest describes a checkout session request for one item.
type CheckoutRequest struct {
	Kind      string `json:"kind"`
	TargetID  string `json:"target_id"`
	PromoCode string `json:"promo_code,omitempty"`
	ClassRep  bool   `json:"class_rep,omitempty"`
}

// CheckoutResponse carries the created session and purchase identifiers.
type CheckoutResponse struct {
	PurchaseID  string `json:"purchase_id"`
	OrderNumber string `json:"order_number"`
	SessionID   string `json:"session_id"`
	SessionURL  string `json:"session_url"`
}
