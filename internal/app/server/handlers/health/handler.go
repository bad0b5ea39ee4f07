package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/ginx"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/logger"
)

const readyTimeout = 3 * time.Second

// Pinger 依赖探活
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	service  string
	analyzer Pinger
	logger   logger.Logger
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(service string, analyzer Pinger, log logger.Logger) *HealthHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &HealthHandler{service: service, analyzer: analyzer, logger: log}
}

// Live 进程存活
// GET /health
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": h.service,
		"message": "Service is running",
	})
}

// Ready 分析服务可达
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.analyzer == nil {
		h.Live(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()
	if err := h.analyzer.Ping(ctx); err != nil {
		h.logger.Warnf(ctx, "analyzer not ready: %v", err)
		ginx.Error(c, http.StatusServiceUnavailable, "analyzer unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  h.service,
		"analyzer": "reachable",
	})
}
