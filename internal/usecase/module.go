package usecase

import (
	"go.uber.org/fx"

	"github.com/coursepay/coursepay/internal/config"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newCheckoutOptions,
	NewAuthUseCase,
	NewCheckoutUseCase,
	NewLifecycleUseCase,
	NewRefundProcessor,
	NewAccessUseCase,
)

func newCheckoutOptions(cfg *config.Config) CheckoutOptions {
	return CheckoutOptions{
		LockTimeout: cfg.LockTimeout,
		MinCharge:   cfg.MinChargeAmount,
		Currency:    cfg.Currency,
		SuccessURL:  cfg.CheckoutSuccessURL,
		CancelURL:   cfg.CheckoutCancelURL,
	}
}
