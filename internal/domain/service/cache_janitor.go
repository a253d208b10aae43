package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/repository"
)

// DefaultRetention キャッシュの保持期間
const DefaultRetention = 30 * 24 * time.Hour

// CleanupResult 削除結果
type CleanupResult struct {
	TilesRemoved   int   `json:"tiles_removed"`
	BytesFreed     int64 `json:"bytes_freed"`
	RegionsRemoved int   `json:"regions_removed"`
}

// CacheJanitor は保持期間を過ぎたタイルと地域を削除する
type CacheJanitor struct {
	tiles     *TileStore
	regions   repository.RegionsRepository
	bus       *EventBus
	logger    *zap.Logger
	retention time.Duration
	now       func() time.Time
}

// NewCacheJanitor は新しいCacheJanitorインスタンスを作成
func NewCacheJanitor(tiles *TileStore, regions repository.RegionsRepository, bus *EventBus, logger *zap.Logger, retention time.Duration) *CacheJanitor {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &CacheJanitor{
		tiles:     tiles,
		regions:   regions,
		bus:       bus,
		logger:    logger,
		retention: retention,
		now:       time.Now,
	}
}

// Cleanup は保持期間より古いタイルを1枚ずつ削除し、古いダウンロード済み地域を削除する
// 完了時刻のない地域（未完了・ダウンロード中）は対象外
func (j *CacheJanitor) Cleanup(ctx context.Context) (CleanupResult, error) {
	var result CleanupResult
	cutoff := j.now().Add(-j.retention)

	for _, tile := range j.tiles.All() {
		if !tile.DownloadedAt.Before(cutoff) {
			continue
		}
		freed, removed, err := j.tiles.DeleteIfOlder(ctx, tile.ID, cutoff)
		if err != nil {
			return result, err
		}
		if !removed {
			continue
		}
		result.TilesRemoved++
		result.BytesFreed += freed
	}

	regions, err := j.regions.GetAll(ctx)
	if err != nil {
		return result, fmt.Errorf("地域一覧の取得に失敗: %w", err)
	}
	for _, r := range regions {
		if r.DownloadedAt == nil || !r.DownloadedAt.Before(cutoff) {
			continue
		}
		if err := j.regions.Delete(ctx, r.ID); err != nil {
			return result, fmt.Errorf("地域 %s の削除に失敗: %w", r.ID, err)
		}
		result.RegionsRemoved++
	}

	j.bus.Publish(model.CacheCleaned{
		TilesRemoved:   result.TilesRemoved,
		BytesFreed:     result.BytesFreed,
		RegionsRemoved: result.RegionsRemoved,
	})
	j.logger.Info("🧹 Cache cleaned",
		zap.Int("tiles_removed", result.TilesRemoved),
		zap.Int64("bytes_freed", result.BytesFreed),
		zap.Int("regions_removed", result.RegionsRemoved))
	return result, nil
}

// Run は interval ごとに Cleanup を実行する
func (j *CacheJanitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Cleanup(ctx); err != nil {
				j.logger.Error("❌ Periodic cleanup failed", zap.Error(err))
			}
		}
	}
}
