package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		prospects := v1.Group("/prospects")
		prospects.POST("", handler.CreateProspect)
		prospects.GET("", handler.ListProspects)

		prospects.GET("/export", handler.ExportProspects)
		prospects.GET("/chart/category-geo", handler.CategoryGeoChart)
		prospects.GET("/chart/category-month", handler.CategoryMonthChart)

		prospects.GET("/:id", handler.GetProspect)
		prospects.PUT("/:id", handler.UpdateProspect)
		prospects.PATCH("/:id", handler.UpdateProspect)
		prospects.DELETE("/:id", handler.DeleteProspect)
	}
}
