package di

import (
	"github.com/coursepay/coursepay/internal/adapter/gateway"
	"github.com/coursepay/coursepay/internal/adapter/notification"
	"github.com/coursepay/coursepay/internal/app"
	"github.com/coursepay/coursepay/internal/config"
	"github.com/coursepay/coursepay/internal/logger"
	"github.com/coursepay/coursepay/internal/ordernum"
	"github.com/coursepay/coursepay/internal/pkg/auth"
	"github.com/coursepay/coursepay/internal/server/http/handlers"
	"github.com/coursepay/coursepay/internal/server/http/router"
	"github.com/coursepay/coursepay/internal/storage/postgres"
	"github.com/coursepay/coursepay/internal/usecase"
	"go.uber.org/fx"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		postgres.Module,
		gateway.Module,
		notification.Module,
		ordernum.Module,
		usecase.Module,
		fx.Provide(func(f *app.CheckoutPaymentFacade) handlers.PaymentFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
