package model

import (
	"fmt"
	"time"
)

// EstimatedTileBytes ダウンロード開始時に使うタイル1枚あたりの推定サイズ
const EstimatedTileBytes = 15 * 1024

// TileCoord ズームレベルとグリッド座標で表すタイル位置
type TileCoord struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// ID 永続化キーとなる "z_x_y" 形式の複合ID
func (c TileCoord) ID() string {
	return TileID(c.Z, c.X, c.Y)
}

// TileID ズーム・X・Y から複合IDを生成
func TileID(z, x, y int) string {
	return fmt.Sprintf("%d_%d_%d", z, x, y)
}

// Tile ダウンロード済みの地図タイル（保存後は不変）
type Tile struct {
	ID           string    `json:"id"`
	RegionID     string    `json:"region_id"`
	Z            int       `json:"z"`
	X            int       `json:"x"`
	Y            int       `json:"y"`
	Data         []byte    `json:"-"`
	Size         int64     `json:"size"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// Coord タイルの座標を返す
func (t *Tile) Coord() TileCoord {
	return TileCoord{Z: t.Z, X: t.X, Y: t.Y}
}

// NewTile 取得したデータからタイルを作成
func NewTile(regionID string, coord TileCoord, data []byte, downloadedAt time.Time) *Tile {
	return &Tile{
		ID:           coord.ID(),
		RegionID:     regionID,
		Z:            coord.Z,
		X:            coord.X,
		Y:            coord.Y,
		Data:         data,
		Size:         int64(len(data)),
		DownloadedAt: downloadedAt,
	}
}
