package model

// AccessReason names the rule that granted or denied event access. The
// resolver evaluates rules in a fixed priority order and the first match wins.
type AccessReason string

const (
	AccessReasonFreeEvent        AccessReason = "free_event"
	AccessReasonSystemAdmin      AccessReason = "system_admin"
	AccessReasonOrganizer        AccessReason = "organizer"
	AccessReasonCoOrganizer      AccessReason = "co_organizer"
	AccessReasonProgramPurchase  AccessReason = "program_purchase"
	AccessReasonEventPurchase    AccessReason = "event_purchase"
	AccessReasonPurchaseRequired AccessReason = "purchase_required"
)

// AccessDecision is the result of resolving a user's access to an event.
type AccessDecision struct {
	HasAccess        bool
	RequiresPurchase bool
	Reason           AccessReason
}
