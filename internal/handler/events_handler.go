package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"EmergencyMap-App/internal/domain/model"
	"EmergencyMap-App/internal/domain/service"
)

// eventBufferSize 遅いクライアント向けに保持するイベント数。超えた分は破棄する
const eventBufferSize = 64

// EventsHandler はイベントバスをServer-Sent Eventsとして配信する
type EventsHandler struct {
	bus    *service.EventBus
	logger *zap.Logger
}

// NewEventsHandler は新しいEventsHandlerインスタンスを作成
func NewEventsHandler(bus *service.EventBus, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{bus: bus, logger: logger}
}

// Stream GET /events
func (h *EventsHandler) Stream(c *gin.Context) {
	events := make(chan model.Event, eventBufferSize)
	unsubscribe := h.bus.SubscribeAll(func(e model.Event) {
		select {
		case events <- e:
		default:
			h.logger.Warn("⚠️ Dropping event for slow SSE client", zap.String("kind", string(e.Kind())))
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("connected", gin.H{"status": "ok"})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e := <-events:
			c.SSEvent(string(e.Kind()), e)
			return true
		}
	})
}
