package scan

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/apimodel/request"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/apimodel/response"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdintake"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorx"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/ginx"
)

// Submit godoc
// @Summary      提交图片分析
// @Description  multipart 字段 file。校验失败返回 400 并附带限时提示；
// @Description  在 wait 秒内得出结论返回 200，否则返回 code=3001 与轮询地址
// @Tags         sessions
// @Accept       multipart/form-data
// @Produce      json
// @Param        id       path     string true  "会话ID"
// @Param        file     formData file   true  "叶片图片（JPG/PNG，≤5MB）"
// @Param        wait     query    int    false "Smart Wait 秒数"
// @Param        disabled query    bool   false "分析中拒绝新提交"
// @Success      200 {object} ginx.Response{data=response.SessionResponse}
// @Failure      400 {object} ginx.Response{data=response.SessionResponse} "文件被拒绝"
// @Failure      404 {object} ginx.Response "会话不存在"
// @Failure      409 {object} ginx.Response "分析进行中"
// @Router       /sessions/{id}/scans [post]
func (h *ScanHandler) Submit(c *gin.Context) {
	var q request.SubmitScanQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		ginx.ErrorWithCode(c, http.StatusBadRequest, errorx.ErrNoCandidate.Error(), errorx.CodeValidationError, nil)
		return
	}
	upload, file, err := request.ToUpload(fh)
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	sessionID := c.Param("id")
	result, err := h.scanService.Submit(ctx, sessionID, upload, h.waitFor(q.Wait), q.Disabled)

	// 校验失败：400 + 会话快照（含 notice）
	var rej *mdintake.RejectionError
	if errors.As(err, &rej) {
		ginx.ErrorWithCode(c, http.StatusBadRequest, rej.Message, rej.Code, response.FromSnapshot(result.Snapshot, nil))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	if result.Settled {
		ginx.Success(c, response.FromSnapshot(result.Snapshot, nil))
		return
	}

	progress, err := h.scanService.Progress(ctx, sessionID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Processing(c, ginx.ProcessingData{
		SessionID: sessionID,
		State:     string(result.Snapshot.State),
		PollURL:   pollURL(sessionID),
		Progress:  progress,
	})
}

// waitFor 解析 Smart Wait 时长，超出上限时截断
func (h *ScanHandler) waitFor(seconds *int) time.Duration {
	wait := h.submitWait
	if seconds != nil {
		wait = time.Duration(*seconds) * time.Second
	}
	if h.maxWait > 0 && wait > h.maxWait {
		wait = h.maxWait
	}
	return wait
}
