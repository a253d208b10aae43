package repository

import (
	"context"

	"EmergencyMap-App/internal/domain/model"
)

type RegionsRepository interface {
	Save(ctx context.Context, region *model.Region) error
	GetByID(ctx context.Context, id string) (*model.Region, error)
	GetAll(ctx context.Context) ([]*model.Region, error)
	Delete(ctx context.Context, id string) error
}
