package etscan

import (
	"errors"
	"time"
)

var ErrInvalidScanID = errors.New("scan ID cannot be empty")

// ScanRecord 扫描历史记录（只记录成功的分析）
type ScanRecord struct {
	ID         string          // 扫描ID (scan_ 前缀)
	SessionID  string          // 所属会话
	Filename   string          // 原始文件名
	Result     *AnalysisResult // 分析结果
	ReportPath string          // 导出报告路径，未导出为空
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewScanRecord 从成功结果创建历史记录
func NewScanRecord(id, sessionID, filename string, result *AnalysisResult, now time.Time) (*ScanRecord, error) {
	if id == "" {
		return nil, ErrInvalidScanID
	}
	if result == nil {
		return nil, ErrNilResult
	}
	return &ScanRecord{
		ID:        id,
		SessionID: sessionID,
		Filename:  filename,
		Result:    result,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AttachReport 记录报告导出路径
func (r *ScanRecord) AttachReport(path string, now time.Time) {
	r.ReportPath = path
	r.UpdatedAt = now
}
