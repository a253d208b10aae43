package model

import "time"

// EventKind イベント種別（UI 層が購読に使う名前）
type EventKind string

const (
	EventDownloadStarted   EventKind = "download-started"
	EventDownloadProgress  EventKind = "download-progress"
	EventDownloadCompleted EventKind = "download-completed"
	EventDownloadFailed    EventKind = "download-failed"
	EventLocationsCached   EventKind = "locations-cached"
	EventRoutesCached      EventKind = "routes-cached"
	EventNavigationStarted EventKind = "navigation-started"
	EventNavigationUpdated EventKind = "navigation-updated"
	EventNavigationStopped EventKind = "navigation-stopped"
	EventGPSError          EventKind = "gps-error"
	EventConnectionChanged EventKind = "connection-changed"
	EventCacheCleaned      EventKind = "cache-cleaned"
)

// Event イベントバスに流れるイベント
type Event interface {
	Kind() EventKind
}

// DownloadStarted 地域ダウンロード開始
type DownloadStarted struct {
	Region Region `json:"region"`
}

// DownloadProgress バッチ完了ごとの進捗
type DownloadProgress struct {
	RegionID   string `json:"region_id"`
	Progress   int    `json:"progress"`
	Downloaded int    `json:"downloaded"`
	Failed     int    `json:"failed"`
	Total      int    `json:"total"`
}

// DownloadCompleted 地域ダウンロード完了
type DownloadCompleted struct {
	Region Region `json:"region"`
}

// DownloadFailed 地域ダウンロード失敗
type DownloadFailed struct {
	RegionID string `json:"region_id"`
	Error    string `json:"error"`
}

// LocationsCached 緊急施設のキャッシュ完了
type LocationsCached struct {
	Count int `json:"count"`
}

// RoutesCached ルートのキャッシュ完了
type RoutesCached struct {
	Count int `json:"count"`
}

// NavigationStarted ナビゲーション開始
type NavigationStarted struct {
	RouteID string          `json:"route_id"`
	State   NavigationState `json:"state"`
}

// NavigationUpdated 位置更新ごとの進捗
type NavigationUpdated struct {
	State NavigationState `json:"state"`
}

// NavigationStopped ナビゲーション終了
type NavigationStopped struct {
	RouteID string `json:"route_id"`
}

// GPSError 位置情報の取得エラー（ナビゲーションは継続）
type GPSError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ConnectionChanged オンライン/オフラインの切り替え
type ConnectionChanged struct {
	Online bool      `json:"online"`
	At     time.Time `json:"at"`
}

// CacheCleaned 期限切れキャッシュの削除結果
type CacheCleaned struct {
	TilesRemoved   int   `json:"tiles_removed"`
	BytesFreed     int64 `json:"bytes_freed"`
	RegionsRemoved int   `json:"regions_removed"`
}

func (DownloadStarted) Kind() EventKind   { return EventDownloadStarted }
func (DownloadProgress) Kind() EventKind  { return EventDownloadProgress }
func (DownloadCompleted) Kind() EventKind { return EventDownloadCompleted }
func (DownloadFailed) Kind() EventKind    { return EventDownloadFailed }
func (LocationsCached) Kind() EventKind   { return EventLocationsCached }
func (RoutesCached) Kind() EventKind      { return EventRoutesCached }
func (NavigationStarted) Kind() EventKind { return EventNavigationStarted }
func (NavigationUpdated) Kind() EventKind { return EventNavigationUpdated }
func (NavigationStopped) Kind() EventKind { return EventNavigationStopped }
func (GPSError) Kind() EventKind          { return EventGPSError }
func (ConnectionChanged) Kind() EventKind { return EventConnectionChanged }
func (CacheCleaned) Kind() EventKind      { return EventCacheCleaned }
