package model

import "github.com/paulmach/orb"

// LatLng 緯度経度を表す基本的な型
type LatLng struct {
	Lat float64 `json:"lat" firestore:"lat"`
	Lng float64 `json:"lng" firestore:"lng"`
}

// ToPoint orb.Point（[lng, lat]）に変換
func (l LatLng) ToPoint() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

// LatLngFromPoint orb.Point から LatLng を作成
func LatLngFromPoint(p orb.Point) LatLng {
	return LatLng{Lat: p.Lat(), Lng: p.Lon()}
}

// Valid 緯度経度が有効範囲内かチェック
func (l LatLng) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// Bounds 北・南・東・西で表す境界ボックス
type Bounds struct {
	North float64 `json:"north" yaml:"north"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	West  float64 `json:"west" yaml:"west"`
}

// NorthWest 北西の角
func (b Bounds) NorthWest() LatLng {
	return LatLng{Lat: b.North, Lng: b.West}
}

// SouthEast 南東の角
func (b Bounds) SouthEast() LatLng {
	return LatLng{Lat: b.South, Lng: b.East}
}

// ToBound orb.Bound に変換
func (b Bounds) ToBound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}
