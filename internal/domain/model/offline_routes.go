package model

import "time"

// ルート種別
const (
	RouteTypeFastest    = "fastest"
	RouteTypeSafest     = "safest"
	RouteTypeEvacuation = "evacuation"
	RouteTypeAccessible = "accessible"
)

// Waypoint ルート上の地点（曲がる指示と次の地点までの距離・時間）
type Waypoint struct {
	Location       LatLng  `json:"location" firestore:"location"`
	Instruction    string  `json:"instruction" firestore:"instruction"`
	DistanceToNext float64 `json:"distance_to_next" firestore:"distance_to_next"` // メートル
	DurationToNext float64 `json:"duration_to_next" firestore:"duration_to_next"` // 秒
}

// OfflineRoute 事前計算済みのルート（キャッシュ後は不変）
type OfflineRoute struct {
	ID            string     `json:"id" firestore:"-"`
	Name          string     `json:"name" firestore:"name"`
	Start         LatLng     `json:"start" firestore:"start"`
	End           LatLng     `json:"end" firestore:"end"`
	Waypoints     []Waypoint `json:"waypoints" firestore:"waypoints"`
	TotalDistance float64    `json:"total_distance" firestore:"total_distance"` // メートル
	TotalDuration float64    `json:"total_duration" firestore:"total_duration"` // 秒
	RouteType     string     `json:"route_type" firestore:"route_type"`
	Hazards       []string   `json:"hazards,omitempty" firestore:"hazards"`
	CreatedAt     time.Time  `json:"created_at" firestore:"created_at"`
}
