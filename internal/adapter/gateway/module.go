package gateway

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/coursepay/coursepay/internal/config"
)

// Module exposes the payment gateway client to the fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) Client {
	return NewStripeClient(p.Config.GatewaySecretKey, p.Config.GatewayWebhookSecret, p.Config.GatewayTimeout, p.Logger)
}
