package routers

import (
	"github.com/gin-gonic/gin"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/logger"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/server/handlers/health"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/server/handlers/scan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/server/middlewares"
)

// SetupRoutes 配置所有路由，使用 Route Group 分类
func SetupRoutes(
	scanHandler *scan.ScanHandler,
	healthHandler *health.HealthHandler,
	allowOrigins []string,
	log logger.Logger,
) *gin.Engine {
	r := gin.New()

	r.Use(middlewares.CORS(allowOrigins))
	r.Use(middlewares.Logger(log))
	r.Use(middlewares.ErrorHandler(log))

	r.GET("/health", healthHandler.Live)
	r.GET("/health/ready", healthHandler.Ready)

	v1 := r.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", scanHandler.CreateSession)
			sessions.GET("/:id", scanHandler.GetSession)
			sessions.POST("/:id/scans", scanHandler.Submit)
			sessions.POST("/:id/reset", scanHandler.Reset)
			sessions.GET("/:id/progress", scanHandler.Progress)
			sessions.GET("/:id/preview", scanHandler.Preview)
			sessions.GET("/:id/watch", scanHandler.Watch)
		}

		scans := v1.Group("/scans")
		{
			scans.GET("/history", scanHandler.History)
			scans.GET("/:scan_id", scanHandler.GetScan)
			scans.POST("/:scan_id/report", scanHandler.RequestReport)
		}
	}

	return r
}
