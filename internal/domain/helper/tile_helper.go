package helper

import (
	"fmt"

	"github.com/paulmach/orb/maptile"

	"EmergencyMap-App/internal/domain/model"
)

// Web メルカトルで表現できる緯度の上限
const (
	MaxMercatorLatitude = 85.0511
	MaxZoomLevel        = 20
)

// TileRange 1つのズームレベルでのタイル範囲
type TileRange struct {
	Zoom int
	MinX int
	MaxX int
	MinY int
	MaxY int
}

// Count 範囲内のタイル数
func (r TileRange) Count() int {
	return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1)
}

// TileRangeAt は境界ボックスの北西・南東の角をタイル座標に変換する
func TileRangeAt(bounds model.Bounds, zoom int) TileRange {
	nw := maptile.At(bounds.NorthWest().ToPoint(), maptile.Zoom(zoom))
	se := maptile.At(bounds.SouthEast().ToPoint(), maptile.Zoom(zoom))
	return TileRange{
		Zoom: zoom,
		MinX: int(nw.X),
		MaxX: int(se.X),
		MinY: int(nw.Y),
		MaxY: int(se.Y),
	}
}

// EnumerateTiles は全ズームレベルのタイル座標を1つのリストに平坦化する
func EnumerateTiles(bounds model.Bounds, zoomLevels []int) []model.TileCoord {
	var coords []model.TileCoord
	for _, z := range zoomLevels {
		r := TileRangeAt(bounds, z)
		for x := r.MinX; x <= r.MaxX; x++ {
			for y := r.MinY; y <= r.MaxY; y++ {
				coords = append(coords, model.TileCoord{Z: z, X: x, Y: y})
			}
		}
	}
	return coords
}

// ValidateRegionRequest は境界ボックスとズームレベルを検証する
func ValidateRegionRequest(req *model.RegionRequest) error {
	b := req.Bounds
	if b.North <= b.South {
		return fmt.Errorf("%w: north (%f) must be greater than south (%f)", model.ErrInvalidRegion, b.North, b.South)
	}
	if b.North > MaxMercatorLatitude || b.South < -MaxMercatorLatitude {
		return fmt.Errorf("%w: latitude must be within ±%.4f", model.ErrInvalidRegion, MaxMercatorLatitude)
	}
	if b.West < -180 || b.East > 180 || b.West > b.East {
		return fmt.Errorf("%w: longitude range [%f, %f] is invalid", model.ErrInvalidRegion, b.West, b.East)
	}
	if len(req.ZoomLevels) == 0 {
		return fmt.Errorf("%w: at least one zoom level is required", model.ErrInvalidRegion)
	}
	for _, z := range req.ZoomLevels {
		if z < 0 || z > MaxZoomLevel {
			return fmt.Errorf("%w: zoom level %d is out of range", model.ErrInvalidRegion, z)
		}
	}
	return nil
}
