package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"EmergencyMap-App/internal/domain/helper"
	"EmergencyMap-App/internal/domain/model"
)

// PositionSource は位置情報の継続的な監視を提供する
// 返される cancel は何度呼んでも安全でなければならない
type PositionSource interface {
	StartWatch(opts model.WatchOptions, onUpdate func(model.Position), onError func(error)) (cancel func(), err error)
}

// RouteLookup はIDでキャッシュ済みルートを引く
type RouteLookup interface {
	Get(id string) (*model.OfflineRoute, bool)
}

// DefaultWatchOptions 高精度・10秒タイムアウト・1秒以内の位置のみ
var DefaultWatchOptions = model.WatchOptions{
	HighAccuracy: true,
	Timeout:      10 * time.Second,
	MaximumAge:   time.Second,
}

// NavigationTracker は位置更新をルートのウェイポイントに照合して進捗を配信する
// 最寄りウェイポイント方式のため、GPS のノイズで走行距離が減ることがある
type NavigationTracker struct {
	routes RouteLookup
	source PositionSource
	bus    *EventBus
	logger *zap.Logger
	now    func() time.Time

	// lifecycle は Start/Stop を直列化し、監視が常に高々1つであることを保証する
	lifecycle sync.Mutex

	mu     sync.Mutex
	state  model.NavigationState
	cancel func()
}

// NewNavigationTracker は新しいNavigationTrackerインスタンスを作成
func NewNavigationTracker(routes RouteLookup, source PositionSource, bus *EventBus, logger *zap.Logger) *NavigationTracker {
	return &NavigationTracker{
		routes: routes,
		source: source,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// Start はルートのナビゲーションを開始する
func (t *NavigationTracker) Start(routeID string) error {
	route, ok := t.routes.Get(routeID)
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrRouteNotFound, routeID)
	}

	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.stopLocked()

	t.mu.Lock()
	t.state = model.NavigationState{
		Active:            true,
		RouteID:           route.ID,
		Route:             route,
		DistanceRemaining: route.TotalDistance,
		StartedAt:         t.now(),
	}
	t.mu.Unlock()

	cancel, err := t.source.StartWatch(DefaultWatchOptions, t.handlePosition, t.handleError)
	if err != nil {
		t.mu.Lock()
		t.state = model.NavigationState{}
		t.mu.Unlock()
		return fmt.Errorf("位置情報の監視開始に失敗: %w", err)
	}

	t.mu.Lock()
	t.cancel = cancel
	snapshot := t.state
	t.mu.Unlock()

	t.bus.Publish(model.NavigationStarted{RouteID: route.ID, State: snapshot})
	t.logger.Info("🧭 Navigation started", zap.String("route_id", route.ID), zap.Int("waypoints", len(route.Waypoints)))
	return nil
}

// Stop は位置監視を止めて状態を初期化する
func (t *NavigationTracker) Stop() {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()
	t.stopLocked()
}

func (t *NavigationTracker) stopLocked() {
	t.mu.Lock()
	cancel := t.cancel
	wasActive := t.state.Active
	routeID := t.state.RouteID
	t.cancel = nil
	t.state = model.NavigationState{}
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasActive {
		t.bus.Publish(model.NavigationStopped{RouteID: routeID})
		t.logger.Info("🛑 Navigation stopped", zap.String("route_id", routeID))
	}
}

// State は現在の状態のコピーを返す
func (t *NavigationTracker) State() model.NavigationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *NavigationTracker) handlePosition(pos model.Position) {
	t.mu.Lock()
	if !t.state.Active || t.state.Route == nil {
		t.mu.Unlock()
		return
	}

	route := t.state.Route
	idx, distance := helper.NearestWaypoint(route.Waypoints, pos.Location)
	if idx < 0 {
		t.mu.Unlock()
		return
	}

	traveled := helper.DistanceUpTo(route.Waypoints, idx)
	remaining := route.TotalDistance - traveled
	if remaining < 0 {
		remaining = 0
	}

	speed := 1.0
	if pos.Speed != nil && *pos.Speed > 0 {
		speed = *pos.Speed
	}

	next := route.Waypoints[idx].Instruction
	if idx+1 < len(route.Waypoints) {
		next = route.Waypoints[idx+1].Instruction
	}

	current := pos
	t.state.CurrentPosition = &current
	t.state.NearestWaypointIndex = idx
	t.state.DistanceToWaypoint = distance
	t.state.DistanceTraveled = traveled
	t.state.DistanceRemaining = remaining
	t.state.EstimatedTimeRemaining = time.Duration(remaining / speed * float64(time.Second))
	t.state.ElapsedTime = t.now().Sub(t.state.StartedAt)
	t.state.NextInstruction = next
	snapshot := t.state
	t.mu.Unlock()

	t.bus.Publish(model.NavigationUpdated{State: snapshot})
}

// handleError は GPS エラーを通知するだけで監視は継続する
func (t *NavigationTracker) handleError(err error) {
	t.mu.Lock()
	active := t.state.Active
	t.mu.Unlock()
	if !active {
		return
	}

	code := model.GeolocationPositionUnavailable
	var geoErr *model.GeolocationError
	if errors.As(err, &geoErr) {
		code = geoErr.Code
	}

	t.logger.Warn("⚠️ GPS error", zap.Int("code", code), zap.Error(err))
	t.bus.Publish(model.GPSError{Code: code, Message: err.Error()})
}
