package api

import (
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter registers every route on a fresh engine.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())

	router.GET("/health", h.Health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	v1 := router.Group("/api/v1")

	runs := v1.Group("/runs")
	runs.POST("", h.StartRun)
	runs.GET("/current", h.CurrentRun)
	runs.POST("/stop", h.StopRun)
	runs.POST("/reset", h.ResetRun)

	history := v1.Group("/history")
	history.GET("", h.ListHistory)
	history.POST("/duplicates", h.FindDuplicates)
	history.DELETE("/:id", h.DeleteHistoryEntry)
	history.DELETE("", h.ClearHistory)

	v1.GET("/schedule/preview", h.PreviewSchedule)

	return router
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log().Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
