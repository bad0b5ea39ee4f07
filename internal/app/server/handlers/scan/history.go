package scan

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/apimodel/request"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/apimodel/response"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/ginx"
)

// History 扫描历史（分页，新的在前）
// GET /api/v1/scans/history?page=1&limit=20
func (h *ScanHandler) History(c *gin.Context) {
	var q request.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	records, total, err := h.scanService.History(c.Request.Context(), q.Page, q.Limit)
	if err != nil {
		h.logger.Errorf(c.Request.Context(), "list scan history failed: %v", err)
		_ = c.Error(err)
		return
	}
	ginx.Success(c, response.FromScanRecords(records, total, q.Page, q.Limit))
}

// GetScan 单条扫描记录
// GET /api/v1/scans/:scan_id
func (h *ScanHandler) GetScan(c *gin.Context) {
	var uri request.ScanIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	record, err := h.scanService.GetScan(c.Request.Context(), uri.ScanID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ginx.Success(c, response.FromScanRecord(record))
}

// RequestReport 投递报告导出任务
// POST /api/v1/scans/:scan_id/report
func (h *ScanHandler) RequestReport(c *gin.Context) {
	var uri request.ScanIDURI
	if err := c.ShouldBindUri(&uri); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	requestID, err := h.scanService.RequestReport(c.Request.Context(), uri.ScanID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, ginx.Response{
		Meta: ginx.Meta{Code: http.StatusAccepted, Message: "Accepted"},
		Data: response.ReportResponse{RequestID: requestID, ScanID: uri.ScanID, Status: "queued"},
	})
}
