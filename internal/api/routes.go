package api

import "github.com/gin-gonic/gin"

// SetupRoutes configures all API routes.
func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/analyze", handler.Analyze) // POST /api/v1/analyze
		v1.POST("/replace", handler.Replace) // POST /api/v1/replace
		v1.POST("/scan", handler.Scan)       // POST /api/v1/scan
	}
}
