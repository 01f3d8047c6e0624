package notification

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/coursepay/coursepay/internal/config"
)

// Module exposes the notifier implementation to the fx graph.
var Module = fx.Provide(newNotifier)

type notifierParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newNotifier(p notifierParams) (Notifier, error) {
	if p.Config.NotificationAddress == "" {
		return NewLogNotifier(p.Logger), nil
	}
	return NewHTTPNotifier(p.Config.NotificationAddress, p.Logger)
}
