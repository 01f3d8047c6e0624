package model

import (
	"time"

	domainErrors "github.com/coursepay/coursepay/internal/domain/errors"
)

// PromoCode is a discount token carrying either a fixed amount or a percent,
// never both. Consumption and recovery happen only inside purchase lifecycle
// transitions.
type PromoCode struct {
	ID              int64
	Code            string
	DiscountAmount  int64
	DiscountPercent int64
	IsGeneral       bool
	OwnerID         *int64
	AllowedTargets  []string
	IsActive        bool
	IsUsed          bool
	UsedAt          *time.Time
	UsedForPurchase *string
	CreatedAt       time.Time
}

// CanBeUsedBy reports whether the code is applicable for the given buyer and
// target item. General codes are exempt from the ownership check; a non-empty
// allowed-target list restricts the code to those items.
func (p *PromoCode) CanBeUsedBy(userID int64, targetID string) error {
	if !p.IsActive || p.IsUsed {
		return domainErrors.ErrPromoNotApplicable
	}
	if !p.IsGeneral {
		if p.OwnerID == nil || *p.OwnerID != userID {
			return domainErrors.ErrPromoNotApplicable
		}
	}
	if len(p.AllowedTargets) > 0 {
		for _, t := range p.AllowedTargets {
			if t == targetID {
				return nil
			}
		}
		return domainErrors.ErrPromoNotApplicable
	}
	return nil
}
