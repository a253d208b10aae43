package model

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable 永続化層が初期化されていない
	ErrStorageUnavailable = errors.New("storage is not initialized")
	// ErrTileFetchFailed タイル1枚の取得失敗（バッチ内で吸収される）
	ErrTileFetchFailed = errors.New("tile fetch failed")
	ErrRouteNotFound   = errors.New("route not found")
	ErrRegionNotFound  = errors.New("region not found")
	ErrInvalidRegion   = errors.New("invalid region")
)

// 位置情報エラーコード
const (
	GeolocationPermissionDenied    = 1
	GeolocationPositionUnavailable = 2
	GeolocationTimeout             = 3
)

// GeolocationError 位置情報の取得失敗（致命的ではない）
type GeolocationError struct {
	Code    int
	Message string
}

func (e *GeolocationError) Error() string {
	return fmt.Sprintf("geolocation error %d: %s", e.Code, e.Message)
}

// ValidationError はバリデーションエラーを表す
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
