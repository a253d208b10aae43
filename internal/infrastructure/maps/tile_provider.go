package maps

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"EmergencyMap-App/internal/domain/model"
)

// タイル配信元の種類
const (
	ProviderOSM       = "osm"
	ProviderSatellite = "satellite"
	ProviderTerrain   = "terrain"
)

// 配信元ごとの既定URL
var defaultBaseURLs = map[string]string{
	ProviderOSM:       "https://tile.openstreetmap.org",
	ProviderSatellite: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer",
	ProviderTerrain:   "https://server.arcgisonline.com/ArcGIS/rest/services/World_Topo_Map/MapServer",
}

// maxTileBytes 1枚のタイルとして受け付ける最大サイズ
const maxTileBytes = 4 << 20

// HTTPTileProvider はHTTPでラスタータイルを取得するTileFetcherの実装
type HTTPTileProvider struct {
	provider   string
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewHTTPTileProvider は新しいプロバイダを生成する。baseURLが空なら配信元の既定URLを使う
func NewHTTPTileProvider(provider, baseURL string) (*HTTPTileProvider, error) {
	if provider == "" {
		provider = ProviderOSM
	}
	if baseURL == "" {
		var ok bool
		baseURL, ok = defaultBaseURLs[provider]
		if !ok {
			return nil, fmt.Errorf("未対応のタイル配信元です: %s", provider)
		}
	}

	return &HTTPTileProvider{
		provider:   provider,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  "EmergencyMap-App/1.0",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// FetchTile は1枚のタイル画像を取得する。2xx以外はErrTileFetchFailedとして返す
func (p *HTTPTileProvider) FetchTile(ctx context.Context, coord model.TileCoord) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.TileURL(coord), nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrTileFetchFailed, coord.ID(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: %s", model.ErrTileFetchFailed, coord.ID(), resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: レスポンスの読み込みに失敗: %v", model.ErrTileFetchFailed, coord.ID(), err)
	}
	if len(data) > maxTileBytes {
		return nil, fmt.Errorf("%w: %s: タイルが上限 %d バイトを超えています", model.ErrTileFetchFailed, coord.ID(), maxTileBytes)
	}
	return data, nil
}

// TileURL はタイル座標からURLを組み立てる。ArcGIS系は {z}/{y}/{x} の順になる
func (p *HTTPTileProvider) TileURL(coord model.TileCoord) string {
	switch p.provider {
	case ProviderSatellite, ProviderTerrain:
		return fmt.Sprintf("%s/tile/%d/%d/%d", p.baseURL, coord.Z, coord.Y, coord.X)
	default:
		return fmt.Sprintf("%s/%d/%d/%d.png", p.baseURL, coord.Z, coord.X, coord.Y)
	}
}
