package usecase

import (
	"context"

	"github.com/coursepay/coursepay/internal/domain/model"
	"github.com/coursepay/coursepay/internal/domain/repository"
)

// AccessUseCase answers whether a user may attend an event. Grant sources
// are checked cheapest first; the first match wins.
type AccessUseCase struct {
	purchases repository.PurchaseRepository
	catalog   repository.CatalogRepository
}

// NewAccessUseCase constructs AccessUseCase.
func NewAccessUseCase(purchases repository.PurchaseRepository, catalog repository.CatalogRepository) *AccessUseCase {
	return &AccessUseCase{purchases: purchases, catalog: catalog}
}

// CheckAccess resolves event access for the given user.
func (u *AccessUseCase) CheckAccess(ctx context.Context, user *model.User, eventID string) (*model.AccessDecision, error) {
	event, err := u.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if event.IsFree {
		return granted(model.AccessReasonFreeEvent), nil
	}
	if user.IsAdmin {
		return granted(model.AccessReasonSystemAdmin), nil
	}
	if event.OrganizerID == user.ID {
		return granted(model.AccessReasonOrganizer), nil
	}
	if event.IsCoOrganizer(user.ID) {
		return granted(model.AccessReasonCoOrganizer), nil
	}

	if len(event.ProgramIDs) > 0 {
		ok, err := u.purchases.HasCompletedForPrograms(ctx, user.ID, event.ProgramIDs)
		if err != nil {
			return nil, err
		}
		if ok {
			return granted(model.AccessReasonProgramPurchase), nil
		}
	}

	ok, err := u.purchases.HasCompleted(ctx, user.ID, model.PurchaseKindEvent, event.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		return granted(model.AccessReasonEventPurchase), nil
	}

	return &model.AccessDecision{
		HasAccess:        false,
		RequiresPurchase: true,
		Reason:           model.AccessReasonPurchaseRequired,
	}, nil
}

func granted(reason model.AccessReason) *model.AccessDecision {
	return &model.AccessDecision{HasAccess: true, Reason: reason}
}
