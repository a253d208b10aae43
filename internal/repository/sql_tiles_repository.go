package repository

import (
	"context"
	"database/sql"
	"fmt"

	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/repository"
)

type SQLTilesRepository struct {
	db *sql.DB
}

func NewSQLTilesRepository(db *sql.DB) repository.TilesRepository {
	return &SQLTilesRepository{db: db}
}

func (r *SQLTilesRepository) Put(ctx context.Context, tile *model.Tile) error {
	query := `
		INSERT INTO tiles (id, region_id, z, x, y, data, size, downloaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			region_id = excluded.region_id,
			data = excluded.data,
			size = excluded.size,
			downloaded_at = excluded.downloaded_at
	`
	_, err := r.db.ExecContext(ctx, query,
		tile.ID, tile.RegionID, tile.Z, tile.X, tile.Y, tile.Data, tile.Size, toMillis(tile.DownloadedAt))
	if err != nil {
		return fmt.Errorf("タイルの保存失敗: %w", err)
	}
	return nil
}

func (r *SQLTilesRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tiles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("タイル %s の削除失敗: %w", id, err)
	}
	return nil
}

func (r *SQLTilesRepository) GetAll(ctx context.Context) ([]*model.Tile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, region_id, z, x, y, data, size, downloaded_at FROM tiles`)
	if err != nil {
		return nil, fmt.Errorf("タイル一覧の取得失敗: %w", err)
	}
	defer rows.Close()

	var tiles []*model.Tile
	for rows.Next() {
		var t model.Tile
		var downloadedAt int64
		if err := rows.Scan(&t.ID, &t.RegionID, &t.Z, &t.X, &t.Y, &t.Data, &t.Size, &downloadedAt); err != nil {
			return nil, fmt.Errorf("タイルデータスキャンエラー: %w", err)
		}
		t.DownloadedAt = fromMillis(downloadedAt)
		tiles = append(tiles, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("行イテレーション中のエラー: %w", err)
	}
	return tiles, nil
}

func (r *SQLTilesRepository) GetIDsByRegion(ctx context.Context, regionID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM tiles WHERE region_id = $1`, regionID)
	if err != nil {
		return nil, fmt.Errorf("地域 %s のタイル取得失敗: %w", regionID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("タイルIDスキャンエラー: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
