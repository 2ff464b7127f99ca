package api

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/helmcloud/k8s-clusterview/internal/metrics"
)

// SetupRouter configures the gin engine with all routes.
func SetupRouter(handler *Handler, log *zap.Logger, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		cors.New(corsConfig(allowedOrigins)),
	)

	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/resources", handler.GetResources)
		apiGroup.GET("/clusters", handler.ListClusters)
		apiGroup.POST("/refresh", handler.RefreshResources)
		apiGroup.GET("/report.pdf", handler.GetReport)

		// Archive
		apiGroup.GET("/snapshots", handler.ListSnapshots)
		apiGroup.GET("/snapshots/:id", handler.GetSnapshot)
	}
	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cfg
}
