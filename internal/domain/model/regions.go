package model

import "time"

// 地域ダウンロードの優先度
const (
	RegionPriorityHigh   = "high"
	RegionPriorityMedium = "medium"
	RegionPriorityLow    = "low"
)

// RegionRequest ダウンロード要求（計算項目を含まない地域記述）
type RegionRequest struct {
	Name       string `json:"name" yaml:"name"`
	Bounds     Bounds `json:"bounds" yaml:"bounds"`
	ZoomLevels []int  `json:"zoom_levels" yaml:"zoom_levels"`
	Priority   string `json:"priority" yaml:"priority"`
}

// Region オフライン用にダウンロードする地域
// TileCount と SizeBytes はダウンロード開始時の推定値で、実際のバイト数とは照合しない
type Region struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Bounds       Bounds     `json:"bounds"`
	ZoomLevels   []int      `json:"zoom_levels"`
	TileCount    int        `json:"tile_count"`
	SizeBytes    int64      `json:"size_bytes"`
	Progress     int        `json:"progress"`
	DownloadedAt *time.Time `json:"downloaded_at,omitempty"`
	Priority     string     `json:"priority"`
	FailedTiles  int        `json:"failed_tiles"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsDownloaded ダウンロード完了時刻が記録されているか
func (r *Region) IsDownloaded() bool {
	return r.DownloadedAt != nil
}
