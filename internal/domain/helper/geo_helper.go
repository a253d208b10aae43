package helper

import (
	"math"
	"sort"

	"EmergencyMap-App/internal/domain/model"
)

const earthRadiusMeters = 6371000.0

// CoordinateTolerance ルート端点の一致判定に使う座標差（約100m）
const CoordinateTolerance = 0.001

// HaversineDistance は2地点間の大圏距離を計算する (m)
func HaversineDistance(p1, p2 model.LatLng) float64 {
	lat1 := p1.Lat * math.Pi / 180
	lng1 := p1.Lng * math.Pi / 180
	lat2 := p2.Lat * math.Pi / 180
	lng2 := p2.Lng * math.Pi / 180
	dLat := lat2 - lat1
	dLng := lng2 - lng1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// WithinTolerance は2地点の緯度・経度の差がどちらも許容範囲内かチェックする
// 実距離ではなく座標差で判定する
func WithinTolerance(p1, p2 model.LatLng, tolerance float64) bool {
	return math.Abs(p1.Lat-p2.Lat) < tolerance && math.Abs(p1.Lng-p2.Lng) < tolerance
}

// FilterLocationsByType は指定された種別の施設のみを抽出する
func FilterLocationsByType(locations []*model.EmergencyLocation, locationType string) []*model.EmergencyLocation {
	var filtered []*model.EmergencyLocation
	for _, l := range locations {
		if l.Type == locationType {
			filtered = append(filtered, l)
		}
	}
	return filtered
}

// FilterLocationsWithinRadius は基準地点から半径内の施設のみを抽出する
func FilterLocationsWithinRadius(locations []*model.EmergencyLocation, origin model.LatLng, radiusMeters float64) []*model.EmergencyLocation {
	var filtered []*model.EmergencyLocation
	for _, l := range locations {
		if HaversineDistance(origin, l.Location) <= radiusMeters {
			filtered = append(filtered, l)
		}
	}
	return filtered
}

// SortByPriorityAndDistance は優先度の高い順、同じ優先度なら基準地点に近い順に並べる
func SortByPriorityAndDistance(locations []*model.EmergencyLocation, origin model.LatLng) {
	sort.SliceStable(locations, func(i, j int) bool {
		if locations[i].Priority != locations[j].Priority {
			return locations[i].Priority > locations[j].Priority
		}
		return HaversineDistance(origin, locations[i].Location) < HaversineDistance(origin, locations[j].Location)
	})
}

// SortByPriority は優先度の高い順に並べる
func SortByPriority(locations []*model.EmergencyLocation) {
	sort.SliceStable(locations, func(i, j int) bool {
		return locations[i].Priority > locations[j].Priority
	})
}

// NearestWaypoint は現在地に最も近いウェイポイントのインデックスと距離を返す
func NearestWaypoint(waypoints []model.Waypoint, position model.LatLng) (int, float64) {
	nearest := -1
	minDistance := math.Inf(1)
	for i, wp := range waypoints {
		d := HaversineDistance(position, wp.Location)
		if d < minDistance {
			minDistance = d
			nearest = i
		}
	}
	return nearest, minDistance
}

// DistanceUpTo は先頭から index 番目のウェイポイントまでの区間距離の合計を返す
func DistanceUpTo(waypoints []model.Waypoint, index int) float64 {
	var total float64
	for i := 0; i < index && i < len(waypoints); i++ {
		total += waypoints[i].DistanceToNext
	}
	return total
}
