package repository

import (
	"context"

	"github.com/coursepay/coursepay/internal/domain/model"
)

// CatalogRepository exposes read-only program/event metadata. Catalog
// management lives outside the purchase subsystem.
type CatalogRepository interface {
	GetProgram(ctx context.Context, id string) (*model.Program, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
}
