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

// RouteCache 事前計算済みルートのキャッシュ
type RouteCache struct {
	repo   repository.RoutesRepository
	bus    *EventBus
	logger *zap.Logger

	mu     sync.RWMutex
	loaded bool
	routes []*model.OfflineRoute
}

// NewRouteCache は新しいRouteCacheインスタンスを作成
func NewRouteCache(repo repository.RoutesRepository, bus *EventBus, logger *zap.Logger) *RouteCache {
	return &RouteCache{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

// Load は永続化済みのルートをメモリに読み込む
func (c *RouteCache) Load(ctx context.Context) error {
	if c.repo == nil {
		return model.ErrStorageUnavailable
	}
	routes, err := c.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("ルートの読み込みに失敗: %w", err)
	}

	c.mu.Lock()
	c.routes = routes
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Cache はルートを追記して永続化する
func (c *RouteCache) Cache(ctx context.Context, routes []*model.OfflineRoute) error {
	if !c.isLoaded() {
		return model.ErrStorageUnavailable
	}
	for i, r := range routes {
		if r == nil || r.ID == "" {
			return fmt.Errorf("routes[%d]: %w", i, &model.ValidationError{Field: "id", Message: "IDは必須です"})
		}
		if len(r.Waypoints) == 0 {
			return fmt.Errorf("routes[%d]: %w", i, &model.ValidationError{Field: "waypoints", Message: "ウェイポイントが空です"})
		}
	}

	for _, r := range routes {
		c.mu.Lock()
		c.routes = append(c.routes, r)
		c.mu.Unlock()

		if err := c.repo.Upsert(ctx, r); err != nil {
			return fmt.Errorf("ルート %s の保存に失敗: %w", r.ID, err)
		}
	}

	c.bus.Publish(model.RoutesCached{Count: len(routes)})
	c.logger.Info("🗺️ Offline routes cached", zap.Int("count", len(routes)))
	return nil
}

// Find は始点・終点がどちらも許容範囲内にある最初のルートを返す
func (c *RouteCache) Find(start, end model.LatLng, routeType string) (*model.OfflineRoute, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, r := range c.routes {
		if routeType != "" && r.RouteType != routeType {
			continue
		}
		if helper.WithinTolerance(r.Start, start, helper.CoordinateTolerance) &&
			helper.WithinTolerance(r.End, end, helper.CoordinateTolerance) {
			return r, true
		}
	}
	return nil, false
}

// Get はIDでルートを取得する
func (c *RouteCache) Get(id string) (*model.OfflineRoute, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.routes {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// Count はメモリ上のルート数
func (c *RouteCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.routes)
}

func (c *RouteCache) isLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}
