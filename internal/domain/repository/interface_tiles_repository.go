package repository

import (
	"context"

	"EmergencyMap-App/internal/domain/model"
)

// TilesRepository "z_x_y" キーでタイルを保存するリポジトリ（地域IDの副インデックス付き）
type TilesRepository interface {
	Put(ctx context.Context, tile *model.Tile) error
	Delete(ctx context.Context, id string) error
	GetAll(ctx context.Context) ([]*model.Tile, error)
	GetIDsByRegion(ctx context.Context, regionID string) ([]string, error)
}
