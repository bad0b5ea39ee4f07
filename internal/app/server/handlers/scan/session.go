package scan

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/apimodel/request"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/apimodel/response"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/ginx"
)

// CreateSession godoc
// @Summary      创建扫描会话
// @Description  新会话处于 idle 状态，等待上传图片
// @Tags         sessions
// @Produce      json
// @Success      200 {object} ginx.Response{data=response.SessionResponse}
// @Router       /sessions [post]
func (h *ScanHandler) CreateSession(c *gin.Context) {
	snap, err := h.scanService.CreateSession(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Success(c, response.FromSnapshot(snap, nil))
}

// GetSession godoc
// @Summary      查询会话
// @Description  Smart Wait 返回 code=3001 时，通过此接口轮询结果
// @Tags         sessions
// @Produce      json
// @Param        id path string true "会话ID"
// @Success      200 {object} ginx.Response{data=response.SessionResponse}
// @Failure      404 {object} ginx.Response "会话不存在"
// @Router       /sessions/{id} [get]
func (h *ScanHandler) GetSession(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")

	snap, err := h.scanService.Get(ctx, sessionID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	progress, err := h.scanService.Progress(ctx, sessionID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Success(c, response.FromSnapshot(snap, &progress))
}

// Reset 回到 idle（幂等）
// POST /api/v1/sessions/:id/reset
func (h *ScanHandler) Reset(c *gin.Context) {
	snap, err := h.scanService.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Success(c, response.FromSnapshot(snap, nil))
}

// Progress 阶段进度
// GET /api/v1/sessions/:id/progress
func (h *ScanHandler) Progress(c *gin.Context) {
	progress, err := h.scanService.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Success(c, progress)
}

// Preview 当前预览
// GET /api/v1/sessions/:id/preview
func (h *ScanHandler) Preview(c *gin.Context) {
	uri, err := h.scanService.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Success(c, response.PreviewResponse{PreviewURI: uri})
}

// Watch 长轮询，状态变化或超时后返回最新快照
// GET /api/v1/sessions/:id/watch?timeout=25
func (h *ScanHandler) Watch(c *gin.Context) {
	var q request.WatchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	ctx := c.Request.Context()
	sessionID := c.Param("id")
	snap, _, err := h.scanService.Watch(ctx, sessionID, time.Duration(q.Timeout)*time.Second)
	if err != nil {
		_ = c.Error(err)
		return
	}
	progress, err := h.scanService.Progress(ctx, sessionID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Success(c, response.FromSnapshot(snap, &progress))
}
