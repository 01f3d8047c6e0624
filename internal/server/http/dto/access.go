package dto

// AccessResponse describes the outcome of an event access check.
type AccessResponse struct {
	HasAccess        bool   `json:"has_access"`
	RequiresPurchase bool   `json:"requires_purchase"`
	Reason           string `json:"reason"`
}
