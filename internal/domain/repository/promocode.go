package repository

import (
	"context"

	"github.com/coursepay/coursepay/internal/domain/model"
)

// PromoCodeRepository provides read access to promo codes. Consumption and
// recovery are purchase lifecycle side effects and happen inside the purchase
// transition transactions, never through this interface.
type PromoCodeRepository interface {
	GetByCode(ctx context.Context, code string) (*model.PromoCode, error)
}
