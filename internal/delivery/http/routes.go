package http

import (
	"github.com/gin-gonic/gin"
	"github.com/thoughttotable/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

	// Operational endpoints
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", handler.Metrics)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/shopping-list", handler.BuildShoppingList)

		cart := v1.Group("/cart")
		{
			cart.POST("/runs", handler.StartCartRun)
			cart.GET("/runs/:id", handler.GetCartRun)
			cart.POST("/runs/:id/login", handler.SignalLogin)
			cart.POST("/runs/:id/confirm", handler.ConfirmCartRun)
			cart.POST("/runs/:id/abort", handler.AbortCartRun)
		}
	}

	return router
}
