package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/usecase"
)

// PositionPusher は外部から受け取った位置をナビゲーションへ流し込む
type PositionPusher interface {
	Push(pos model.Position)
	PushError(code int, message string)
}

// NavigationHandler はナビゲーションAPIのハンドラー
type NavigationHandler struct {
	useCase   usecase.OfflineMapUseCase
	positions PositionPusher
	logger    *zap.Logger
	upgrader  websocket.Upgrader
}

// NewNavigationHandler は新しいNavigationHandlerインスタンスを作成
func NewNavigationHandler(useCase usecase.OfflineMapUseCase, positions PositionPusher, logger *zap.Logger) *NavigationHandler {
	return &NavigationHandler{
		useCase:   useCase,
		positions: positions,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type startNavigationRequest struct {
	RouteID string `json:"route_id" binding:"required"`
}

// PostStart POST /navigation/start
func (h *NavigationHandler) PostStart(c *gin.Context) {
	var req startNavigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.useCase.StartNavigation(req.RouteID); err != nil {
		respondError(c, "ナビゲーションを開始できませんでした", err)
		return
	}
	c.JSON(http.StatusOK, h.useCase.NavigationState())
}

// PostStop POST /navigation/stop
func (h *NavigationHandler) PostStop(c *gin.Context) {
	h.useCase.StopNavigation()
	c.JSON(http.StatusOK, h.useCase.NavigationState())
}

// GetState GET /navigation/state
func (h *NavigationHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.useCase.NavigationState())
}

// PostPosition は端末のGPS位置を1件受け付ける
// POST /navigation/position
func (h *NavigationHandler) PostPosition(c *gin.Context) {
	var pos model.Position
	if err := c.ShouldBindJSON(&pos); err != nil {
		respondBadRequest(c, err)
		return
	}
	h.positions.Push(pos)
	c.JSON(http.StatusOK, h.useCase.NavigationState())
}

type gpsErrorRequest struct {
	Code    int    `json:"code" binding:"required,min=1,max=3"`
	Message string `json:"message"`
}

// PostGPSError は端末側の位置情報エラーを受け付ける
// POST /navigation/gps-error
func (h *NavigationHandler) PostGPSError(c *gin.Context) {
	var req gpsErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	h.positions.PushError(req.Code, req.Message)
	c.Status(http.StatusAccepted)
}

// positionMessage WebSocketで受け取るメッセージ（位置かエラーのどちらか）
type positionMessage struct {
	Position *model.Position  `json:"position,omitempty"`
	Error    *gpsErrorRequest `json:"error,omitempty"`
}

// StreamPositions は WebSocket で位置を連続受信し、1件ごとに現在の状態を返す
// GET /navigation/ws
func (h *NavigationHandler) StreamPositions(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("⚠️ WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("🔌 Position stream connected", zap.String("remote", c.Request.RemoteAddr))
	for {
		var msg positionMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("⚠️ Position stream closed unexpectedly", zap.Error(err))
			}
			return
		}

		switch {
		case msg.Position != nil:
			h.positions.Push(*msg.Position)
		case msg.Error != nil:
			h.positions.PushError(msg.Error.Code, msg.Error.Message)
		default:
			continue
		}

		if err := conn.WriteJSON(h.useCase.NavigationState()); err != nil {
			h.logger.Warn("⚠️ Failed to write navigation state", zap.Error(err))
			return
		}
	}
}
