package model

import "time"

// Position 位置情報の更新
type Position struct {
	Location  LatLng    `json:"location"`
	Accuracy  float64   `json:"accuracy"`
	Speed     *float64  `json:"speed,omitempty"`   // m/s
	Heading   *float64  `json:"heading,omitempty"` // 度
	Timestamp time.Time `json:"timestamp"`
}

// WatchOptions 位置監視のオプション
type WatchOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// NavigationState ナビゲーションの一時的な状態（永続化しない）
type NavigationState struct {
	Active                 bool          `json:"active"`
	RouteID                string        `json:"route_id,omitempty"`
	Route                  *OfflineRoute `json:"-"`
	CurrentPosition        *Position     `json:"current_position,omitempty"`
	NearestWaypointIndex   int           `json:"nearest_waypoint_index"`
	DistanceToWaypoint     float64       `json:"distance_to_waypoint"`
	DistanceTraveled       float64       `json:"distance_traveled"`
	DistanceRemaining      float64       `json:"distance_remaining"`
	ElapsedTime            time.Duration `json:"elapsed_time"`
	EstimatedTimeRemaining time.Duration `json:"estimated_time_remaining"`
	NextInstruction        string        `json:"next_instruction,omitempty"`
	StartedAt              time.Time     `json:"started_at,omitempty"`
}

// CacheStats キャッシュ全体の統計
type CacheStats struct {
	TileCount      int   `json:"tile_count"`
	TotalSizeBytes int64 `json:"total_size_bytes"`
	RegionCount    int   `json:"region_count"`
	LocationCount  int   `json:"location_count"`
	RouteCount     int   `json:"route_count"`
	Offline        bool  `json:"offline"`
}
