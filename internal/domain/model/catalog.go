package model

import "time"

// PurchaseTarget abstracts over the two kinds of items a buyer can purchase,
// replacing string-tag branching in the checkout and pricing flows.
type PurchaseTarget interface {
	Kind() PurchaseKind
	TargetID() string
	Title() string
	BasePrice() int64
}

// Program is a paid course program.
type Program struct {
	ID                string
	Name              string
	Price             int64
	ClassRepDiscount  int64
	EarlyBirdDiscount int64
	EarlyBirdUntil    *time.Time
	CreatedAt         time.Time
}

func (p *Program) Kind() PurchaseKind { return PurchaseKindProgram }
func (p *Program) TargetID() string   { return p.ID }
func (p *Program) Title() string      { return p.Name }
func (p *Program) BasePrice() int64   { return p.Price }

// EarlyBirdActive reports whether the early-bird discount applies at the
// given moment.
func (p *Program) EarlyBirdActive(now time.Time) bool {
	return p.EarlyBirdDiscount > 0 && p.EarlyBirdUntil != nil && now.Before(*p.EarlyBirdUntil)
}

// Event is a single event with optional paid admission. Events may be linked
// to programs; a completed program purchase grants access to linked events.
type Event struct {
	ID             string
	Name           string
	Price          int64
	IsFree         bool
	OrganizerID    int64
	CoOrganizerIDs []int64
	ProgramIDs     []string
	StartsAt       time.Time
	CreatedAt      time.Time
}

func (e *Event) Kind() PurchaseKind { return PurchaseKindEvent }
func (e *Event) TargetID() string   { return e.ID }
func (e *Event) Title() string      { return e.Name }
func (e *Event) BasePrice() int64   { return e.Price }

// IsCoOrganizer reports whether the user is listed as event co-organizer.
func (e *Event) IsCoOrganizer(userID int64) bool {
	for _, id := range e.CoOrganizerIDs {
		if id == userID {
			return true
		}
	}
	return false
}
