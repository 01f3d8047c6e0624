package errors

import "errors"

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("invalid input")
	ErrAlreadyPurchased   = errors.New("item already purchased")
	ErrPriceBelowMinimum  = errors.New("price below gateway minimum")
	ErrFreeItem           = errors.New("item is free and needs no checkout")
	ErrPromoNotApplicable = errors.New("promo code not applicable")
	ErrNotPending         = errors.New("purchase is not pending")
	ErrNotCompleted       = errors.New("purchase is not completed")
	ErrForbidden          = errors.New("operation not permitted")
)
