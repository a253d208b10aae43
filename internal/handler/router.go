package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"EmergencyMap-App/internal/infrastructure/observability"
	"EmergencyMap-App/internal/usecase"
)

// NewRouter はAPIのルーティングを組み立てる。metrics が nil なら /metrics は公開しない
func NewRouter(useCase usecase.OfflineMapUseCase, positions PositionPusher, metrics *observability.CacheCollector, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if metrics != nil {
		r.Use(metrics.GinMiddleware())
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	mapHandler := NewOfflineMapHandler(useCase)
	navigationHandler := NewNavigationHandler(useCase, positions, logger)
	eventsHandler := NewEventsHandler(useCase.Events(), logger)

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "EmergencyMap-App", "offline": useCase.IsOffline()})
	})

	regions := r.Group("/regions")
	{
		regions.POST("", mapHandler.PostRegion)
		regions.GET("", mapHandler.GetRegions)
		regions.DELETE("/:id", mapHandler.DeleteRegion)
	}

	r.GET("/tiles/:z/:x/:y", mapHandler.GetTile)

	r.POST("/locations", mapHandler.PostLocations)
	r.GET("/locations", mapHandler.GetLocations)

	r.POST("/routes", mapHandler.PostRoutes)
	r.GET("/routes/find", mapHandler.FindRoute)

	navigation := r.Group("/navigation")
	{
		navigation.POST("/start", navigationHandler.PostStart)
		navigation.POST("/stop", navigationHandler.PostStop)
		navigation.GET("/state", navigationHandler.GetState)
		navigation.POST("/position", navigationHandler.PostPosition)
		navigation.POST("/gps-error", navigationHandler.PostGPSError)
		navigation.GET("/ws", navigationHandler.StreamPositions)
	}

	r.GET("/events", eventsHandler.Stream)

	cache := r.Group("/cache")
	{
		cache.POST("/cleanup", mapHandler.PostCleanup)
		cache.GET("/stats", mapHandler.GetStats)
	}

	r.GET("/connectivity", mapHandler.GetConnectivity)
	r.POST("/connectivity", mapHandler.PostConnectivity)

	return r
}
