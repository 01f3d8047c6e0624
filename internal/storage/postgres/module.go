package postgres

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/coursepay/coursepay/internal/config"
	"github.com/coursepay/coursepay/internal/domain/repository"
	"github.com/coursepay/coursepay/internal/lock"
)

// Module wires PostgreSQL storage, repository adapters, and the shared lock.
var Module = fx.Options(
	fx.Provide(newStorage),
	fx.Provide(
		func(s *Storage) repository.UserRepository { return s.Users() },
		func(s *Storage) repository.PurchaseRepository { return s.Purchases() },
		func(s *Storage) repository.PromoCodeRepository { return s.PromoCodes() },
		func(s *Storage) repository.CatalogRepository { return s.Catalog() },
		func(s *Storage) repository.OrderCounterRepository { return s.OrderCounters() },
		func(s *Storage) lock.Locker { return s.Locks() },
	),
	fx.Invoke(registerLifecycle),
)

type storageParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newStorage(p storageParams) (*Storage, error) {
	return New(p.Ctx, p.Config.DatabaseURI, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, storage *Storage) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			storage.Close()
			return nil
		},
	})
}
