package http

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/anhalab/anhakit/internal/usecase"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(analysis *usecase.Analysis) *gin.Engine {

	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()

	// Get allowed origins from environment variable.
	// Default to allow all origins if not specified.
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}

	router.Use(cors.New(corsConfig))

	// Create handler.
	handler := NewHandler(analysis)

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.GET("/regions", handler.GetRegions)
	v1.GET("/files", handler.GetFiles)
	v1.GET("/stats", handler.GetStats)
	v1.GET("/timeseries", handler.GetTimeSeries)
	v1.GET("/climatology", handler.GetClimatology)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	return router
}
