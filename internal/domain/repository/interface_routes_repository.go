package repository

import (
	"context"

	"EmergencyMap-App/internal/domain/model"
)

type RoutesRepository interface {
	Upsert(ctx context.Context, route *model.OfflineRoute) error
	GetAll(ctx context.Context) ([]*model.OfflineRoute, error)
	GetByType(ctx context.Context, routeType string) ([]*model.OfflineRoute, error)
}

// RouteCatalog 事前計算済みルートの配信元
type RouteCatalog interface {
	FetchRoutes(ctx context.Context) ([]*model.OfflineRoute, error)
}
