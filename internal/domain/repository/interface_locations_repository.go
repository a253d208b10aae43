package repository

import (
	"context"

	"EmergencyMap-App/internal/domain/model"
)

type LocationsRepository interface {
	// Upsert 同じIDのレコードは丸ごと上書きする
	Upsert(ctx context.Context, location *model.EmergencyLocation) error
	GetAll(ctx context.Context) ([]*model.EmergencyLocation, error)
	GetByType(ctx context.Context, locationType string) ([]*model.EmergencyLocation, error)
}

// LocationFeed 外部の緊急施設データ配信元
type LocationFeed interface {
	FetchLocations(ctx context.Context, locationType string) ([]*model.EmergencyLocation, error)
}
