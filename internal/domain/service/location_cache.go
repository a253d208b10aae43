package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"EmergencyMap-App/internal/domain/helper"
	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/repository"
)

// LocationCache 緊急施設をメモリと永続化層にキャッシュする
// メモリ上のリストは追記のみで重複を除かない（永続化層はIDでupsert）
type LocationCache struct {
	repo   repository.LocationsRepository
	bus    *EventBus
	logger *zap.Logger

	mu        sync.RWMutex
	loaded    bool
	locations []*model.EmergencyLocation
}

// NewLocationCache は新しいLocationCacheインスタンスを作成
func NewLocationCache(repo repository.LocationsRepository, bus *EventBus, logger *zap.Logger) *LocationCache {
	return &LocationCache{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

// Load は永続化済みの施設をメモリに読み込む
func (c *LocationCache) Load(ctx context.Context) error {
	if c.repo == nil {
		return model.ErrStorageUnavailable
	}
	locations, err := c.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("緊急施設の読み込みに失敗: %w", err)
	}

	c.mu.Lock()
	c.locations = locations
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Cache は施設を追記して永続化する
func (c *LocationCache) Cache(ctx context.Context, locations []*model.EmergencyLocation) error {
	if !c.isLoaded() {
		return model.ErrStorageUnavailable
	}
	for i, l := range locations {
		if err := validateLocation(l); err != nil {
			return fmt.Errorf("locations[%d]: %w", i, err)
		}
	}

	for _, l := range locations {
		c.mu.Lock()
		c.locations = append(c.locations, l)
		c.mu.Unlock()

		if err := c.repo.Upsert(ctx, l); err != nil {
			return fmt.Errorf("緊急施設 %s の保存に失敗: %w", l.ID, err)
		}
	}

	c.bus.Publish(model.LocationsCached{Count: len(locations)})
	c.logger.Info("🏥 Emergency locations cached", zap.Int("count", len(locations)))
	return nil
}

// Query は種別と半径で施設を絞り込む
// 基準地点がある場合は優先度の降順、同順位は距離の昇順で並べる
func (c *LocationCache) Query(query model.LocationQuery) []*model.EmergencyLocation {
	c.mu.RLock()
	results := make([]*model.EmergencyLocation, len(c.locations))
	copy(results, c.locations)
	c.mu.RUnlock()

	if query.Type != "" {
		results = helper.FilterLocationsByType(results, query.Type)
	}

	if query.Near != nil {
		if query.RadiusMeters > 0 {
			results = helper.FilterLocationsWithinRadius(results, *query.Near, query.RadiusMeters)
		}
		helper.SortByPriorityAndDistance(results, *query.Near)
		return results
	}

	helper.SortByPriority(results)
	return results
}

// Count はメモリ上の施設数
func (c *LocationCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.locations)
}

func (c *LocationCache) isLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func validateLocation(l *model.EmergencyLocation) error {
	if l == nil {
		return &model.ValidationError{Field: "location", Message: "施設がnilです"}
	}
	if l.ID == "" {
		return &model.ValidationError{Field: "id", Message: "IDは必須です"}
	}
	if !l.Location.Valid() {
		return &model.ValidationError{Field: "location", Message: "緯度経度が範囲外です"}
	}
	if l.Priority < model.MinLocationPriority || l.Priority > model.MaxLocationPriority {
		return &model.ValidationError{Field: "priority", Message: fmt.Sprintf("優先度は%dから%dの範囲で指定してください", model.MinLocationPriority, model.MaxLocationPriority)}
	}
	return nil
}
