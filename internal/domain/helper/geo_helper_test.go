package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"EmergencyMap-App/internal/domain/model"
)

func TestHaversineDistance(t *testing.T) {
	tokyo := model.LatLng{Lat: 35.6812, Lng: 139.7671}
	osaka := model.LatLng{Lat: 34.7025, Lng: 135.4959}

	// 東京駅〜大阪駅はおよそ 403km
	assert.InDelta(t, 403000, HaversineDistance(tokyo, osaka), 3000)
	assert.Equal(t, 0.0, HaversineDistance(tokyo, tokyo))

	// 緯度 0.001 度はおよそ 111m
	north := model.LatLng{Lat: tokyo.Lat + 0.001, Lng: tokyo.Lng}
	assert.InDelta(t, 111.2, HaversineDistance(tokyo, north), 0.5)
}

func TestWithinTolerance(t *testing.T) {
	base := model.LatLng{Lat: 35.0, Lng: 135.0}

	assert.True(t, WithinTolerance(base, model.LatLng{Lat: 35.0009, Lng: 134.9991}, CoordinateTolerance))
	assert.False(t, WithinTolerance(base, model.LatLng{Lat: 35.0011, Lng: 135.0}, CoordinateTolerance))
	assert.False(t, WithinTolerance(base, model.LatLng{Lat: 35.0, Lng: 135.002}, CoordinateTolerance))
}

func TestSortByPriorityAndDistance(t *testing.T) {
	origin := model.LatLng{Lat: 35.0, Lng: 135.0}
	far := &model.EmergencyLocation{ID: "far", Priority: 5, Location: model.LatLng{Lat: 35.02, Lng: 135.0}}
	near := &model.EmergencyLocation{ID: "near", Priority: 5, Location: model.LatLng{Lat: 35.001, Lng: 135.0}}
	important := &model.EmergencyLocation{ID: "important", Priority: 9, Location: model.LatLng{Lat: 35.05, Lng: 135.0}}

	locations := []*model.EmergencyLocation{far, near, important}
	SortByPriorityAndDistance(locations, origin)

	assert.Equal(t, []string{"important", "near", "far"}, ids(locations))
}

func TestNearestWaypointAndDistanceUpTo(t *testing.T) {
	waypoints := []model.Waypoint{
		{Location: model.LatLng{Lat: 35.000, Lng: 135.0}, DistanceToNext: 100},
		{Location: model.LatLng{Lat: 35.001, Lng: 135.0}, DistanceToNext: 150},
		{Location: model.LatLng{Lat: 35.002, Lng: 135.0}, DistanceToNext: 0},
	}

	idx, dist := NearestWaypoint(waypoints, model.LatLng{Lat: 35.0011, Lng: 135.0})
	assert.Equal(t, 1, idx)
	assert.Less(t, dist, 20.0)

	assert.Equal(t, 0.0, DistanceUpTo(waypoints, 0))
	assert.Equal(t, 100.0, DistanceUpTo(waypoints, 1))
	assert.Equal(t, 250.0, DistanceUpTo(waypoints, 5))

	idx, _ = NearestWaypoint(nil, model.LatLng{})
	assert.Equal(t, -1, idx)
}

func ids(locations []*model.EmergencyLocation) []string {
	out := make([]string, len(locations))
	for i, l := range locations {
		out[i] = l.ID
	}
	return out
}
