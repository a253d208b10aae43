package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/usecase"
)

// OfflineMapHandler は地図キャッシュ・緊急施設・ルートAPIのハンドラー
type OfflineMapHandler struct {
	useCase usecase.OfflineMapUseCase
}

// NewOfflineMapHandler は新しいOfflineMapHandlerインスタンスを作成
func NewOfflineMapHandler(useCase usecase.OfflineMapUseCase) *OfflineMapHandler {
	return &OfflineMapHandler{useCase: useCase}
}

// PostRegion は地域のダウンロードを開始する
// POST /regions
func (h *OfflineMapHandler) PostRegion(c *gin.Context) {
	var req model.RegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	region, err := h.useCase.StartRegionDownload(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "地域のダウンロードを開始できませんでした", err)
		return
	}

	c.JSON(http.StatusAccepted, region)
}

// GetRegions GET /regions
func (h *OfflineMapHandler) GetRegions(c *gin.Context) {
	regions, err := h.useCase.Regions(c.Request.Context())
	if err != nil {
		respondError(c, "地域一覧の取得に失敗しました", err)
		return
	}
	if regions == nil {
		regions = []*model.Region{}
	}
	c.JSON(http.StatusOK, gin.H{"regions": regions})
}

// DeleteRegion DELETE /regions/:id
func (h *OfflineMapHandler) DeleteRegion(c *gin.Context) {
	if err := h.useCase.DeleteRegion(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "地域の削除に失敗しました", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetTile はキャッシュ済みタイルの画像を返す
// GET /tiles/:z/:x/:y  (y は "123.png" 形式も可)
func (h *OfflineMapHandler) GetTile(c *gin.Context) {
	z, errZ := strconv.Atoi(c.Param("z"))
	x, errX := strconv.Atoi(c.Param("x"))
	y, errY := strconv.Atoi(strings.TrimSuffix(c.Param("y"), ".png"))
	if errZ != nil || errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "タイル座標は整数で指定してください"})
		return
	}

	tile, ok := h.useCase.Tile(z, x, y)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "タイルがキャッシュされていません", "tile": model.TileID(z, x, y)})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, tileContentType(tile.Data), tile.Data)
}

// tileContentType はタイル画像の形式を判定する。ArcGIS系はJPEGを返す。判定できなければPNGとみなす
func tileContentType(data []byte) string {
	contentType := http.DetectContentType(data)
	if strings.HasPrefix(contentType, "image/") {
		return contentType
	}
	return "image/png"
}

// PostLocations POST /locations
func (h *OfflineMapHandler) PostLocations(c *gin.Context) {
	var locations []*model.EmergencyLocation
	if err := c.ShouldBindJSON(&locations); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.useCase.CacheLocations(c.Request.Context(), locations); err != nil {
		respondError(c, "緊急施設の保存に失敗しました", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"count": len(locations)})
}

// GetLocations は種別・基準地点・半径で施設を検索する
// GET /locations?type=hospital&lat=35.0&lng=135.7&radius=2000
func (h *OfflineMapHandler) GetLocations(c *gin.Context) {
	query := model.LocationQuery{Type: c.Query("type")}
	if query.Type != "" && !model.IsValidLocationType(query.Type) {
		respondError(c, "バリデーションエラー", &model.ValidationError{Field: "type", Message: "未知の施設種別です"})
		return
	}

	if c.Query("lat") != "" || c.Query("lng") != "" {
		near, err := parseLatLng(c.Query("lat"), c.Query("lng"), "")
		if err != nil {
			respondError(c, "バリデーションエラー", err)
			return
		}
		query.Near = &near

		if r := c.Query("radius"); r != "" {
			radius, err := strconv.ParseFloat(r, 64)
			if err != nil || radius < 0 {
				respondError(c, "バリデーションエラー", &model.ValidationError{Field: "radius", Message: "半径は0以上の数値で指定してください"})
				return
			}
			query.RadiusMeters = radius
		}
	}

	locations := h.useCase.QueryLocations(query)
	if locations == nil {
		locations = []*model.EmergencyLocation{}
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

// PostRoutes POST /routes
func (h *OfflineMapHandler) PostRoutes(c *gin.Context) {
	var routes []*model.OfflineRoute
	if err := c.ShouldBindJSON(&routes); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.useCase.CacheRoutes(c.Request.Context(), routes); err != nil {
		respondError(c, "ルートの保存に失敗しました", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"count": len(routes)})
}

// FindRoute は始点・終点（約100m以内）と種別でルートを探す
// GET /routes/find?start_lat=..&start_lng=..&end_lat=..&end_lng=..&type=evacuation
func (h *OfflineMapHandler) FindRoute(c *gin.Context) {
	start, err := parseLatLng(c.Query("start_lat"), c.Query("start_lng"), "start")
	if err != nil {
		respondError(c, "バリデーションエラー", err)
		return
	}
	end, err := parseLatLng(c.Query("end_lat"), c.Query("end_lng"), "end")
	if err != nil {
		respondError(c, "バリデーションエラー", err)
		return
	}

	route, err := h.useCase.FindRoute(start, end, c.Query("type"))
	if err != nil {
		respondError(c, "ルートが見つかりません", err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// PostCleanup POST /cache/cleanup
func (h *OfflineMapHandler) PostCleanup(c *gin.Context) {
	result, err := h.useCase.Cleanup(c.Request.Context())
	if err != nil {
		respondError(c, "キャッシュの削除に失敗しました", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStats GET /cache/stats
func (h *OfflineMapHandler) GetStats(c *gin.Context) {
	stats, err := h.useCase.Stats(c.Request.Context())
	if err != nil {
		respondError(c, "統計の取得に失敗しました", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetConnectivity GET /connectivity
func (h *OfflineMapHandler) GetConnectivity(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"offline": h.useCase.IsOffline()})
}

type connectivityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// PostConnectivity は端末側で検知したオンライン/オフラインを反映する
// POST /connectivity
func (h *OfflineMapHandler) PostConnectivity(c *gin.Context) {
	var req connectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	h.useCase.SetOnline(*req.Online)
	c.JSON(http.StatusOK, gin.H{"offline": h.useCase.IsOffline()})
}

// parseLatLng はクエリ文字列の緯度経度を検証する
func parseLatLng(latStr, lngStr, prefix string) (model.LatLng, error) {
	field := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "_" + name
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return model.LatLng{}, &model.ValidationError{Field: field("lat"), Message: "緯度は-90から90の範囲で指定してください"}
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil || lng < -180 || lng > 180 {
		return model.LatLng{}, &model.ValidationError{Field: field("lng"), Message: "経度は-180から180の範囲で指定してください"}
	}
	return model.LatLng{Lat: lat, Lng: lng}, nil
}
