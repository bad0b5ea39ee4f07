package scan

import (
	"time"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/services/svscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/logger"
)

// ScanHandler 扫描 HTTP 处理器
type ScanHandler struct {
	scanService *svscan.ScanService
	submitWait  time.Duration
	maxWait     time.Duration
	logger      logger.Logger
}

// NewScanHandler 创建扫描处理器实例
func NewScanHandler(scanService *svscan.ScanService, submitWait, maxWait time.Duration, log logger.Logger) *ScanHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &ScanHandler{
		scanService: scanService,
		submitWait:  submitWait,
		maxWait:     maxWait,
		logger:      log,
	}
}

// pollURL 会话轮询地址
func pollURL(sessionID string) string {
	return "/api/v1/sessions/" + sessionID
}
