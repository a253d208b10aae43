package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/repository"
)

type SQLRegionsRepository struct {
	db *sql.DB
}

func NewSQLRegionsRepository(db *sql.DB) repository.RegionsRepository {
	return &SQLRegionsRepository{db: db}
}

// regionRow regions テーブルの1行
type regionRow struct {
	ID           string
	Name         string
	Bounds       string
	ZoomLevels   string
	TileCount    int
	SizeBytes    int64
	Progress     int
	DownloadedAt sql.NullInt64
	Priority     string
	FailedTiles  int
	CreatedAt    int64
}

// ToRegion regionRowをmodel.Regionに変換
func (rr *regionRow) ToRegion() (*model.Region, error) {
	var bounds model.Bounds
	if err := json.Unmarshal([]byte(rr.Bounds), &bounds); err != nil {
		return nil, fmt.Errorf("bounds JSONパースエラー: %w", err)
	}
	var zoomLevels []int
	if err := json.Unmarshal([]byte(rr.ZoomLevels), &zoomLevels); err != nil {
		return nil, fmt.Errorf("zoom_levels JSONパースエラー: %w", err)
	}

	return &model.Region{
		ID:           rr.ID,
		Name:         rr.Name,
		Bounds:       bounds,
		ZoomLevels:   zoomLevels,
		TileCount:    rr.TileCount,
		SizeBytes:    rr.SizeBytes,
		Progress:     rr.Progress,
		DownloadedAt: timeFromNullable(rr.DownloadedAt),
		Priority:     rr.Priority,
		FailedTiles:  rr.FailedTiles,
		CreatedAt:    fromMillis(rr.CreatedAt),
	}, nil
}

const regionColumns = `id, name, bounds, zoom_levels, tile_count, size_bytes, progress, downloaded_at, priority, failed_tiles, created_at`

func (r *SQLRegionsRepository) Save(ctx context.Context, region *model.Region) error {
	bounds, err := json.Marshal(region.Bounds)
	if err != nil {
		return fmt.Errorf("bounds JSONマーシャルエラー: %w", err)
	}
	zoomLevels, err := json.Marshal(region.ZoomLevels)
	if err != nil {
		return fmt.Errorf("zoom_levels JSONマーシャルエラー: %w", err)
	}

	query := `
		INSERT INTO regions (` + regionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			bounds = excluded.bounds,
			zoom_levels = excluded.zoom_levels,
			tile_count = excluded.tile_count,
			size_bytes = excluded.size_bytes,
			progress = excluded.progress,
			downloaded_at = excluded.downloaded_at,
			priority = excluded.priority,
			failed_tiles = excluded.failed_tiles
	`
	_, err = r.db.ExecContext(ctx, query,
		region.ID, region.Name, string(bounds), string(zoomLevels), region.TileCount, region.SizeBytes,
		region.Progress, nullableMillis(region.DownloadedAt), region.Priority, region.FailedTiles, toMillis(region.CreatedAt))
	if err != nil {
		return fmt.Errorf("地域 %s の保存失敗: %w", region.ID, err)
	}
	return nil
}

func (r *SQLRegionsRepository) GetByID(ctx context.Context, id string) (*model.Region, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+regionColumns+` FROM regions WHERE id = $1`, id)

	var rr regionRow
	err := row.Scan(&rr.ID, &rr.Name, &rr.Bounds, &rr.ZoomLevels, &rr.TileCount, &rr.SizeBytes,
		&rr.Progress, &rr.DownloadedAt, &rr.Priority, &rr.FailedTiles, &rr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", model.ErrRegionNotFound, id)
		}
		return nil, fmt.Errorf("地域データの取得失敗: %w", err)
	}
	return rr.ToRegion()
}

func (r *SQLRegionsRepository) GetAll(ctx context.Context) ([]*model.Region, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+regionColumns+` FROM regions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("地域一覧の取得失敗: %w", err)
	}
	defer rows.Close()

	var regions []*model.Region
	for rows.Next() {
		var rr regionRow
		if err := rows.Scan(&rr.ID, &rr.Name, &rr.Bounds, &rr.ZoomLevels, &rr.TileCount, &rr.SizeBytes,
			&rr.Progress, &rr.DownloadedAt, &rr.Priority, &rr.FailedTiles, &rr.CreatedAt); err != nil {
			return nil, fmt.Errorf("地域データスキャンエラー: %w", err)
		}
		region, err := rr.ToRegion()
		if err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("行イテレーション中のエラー: %w", err)
	}
	return regions, nil
}

func (r *SQLRegionsRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM regions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("地域 %s の削除失敗: %w", id, err)
	}
	return nil
}
