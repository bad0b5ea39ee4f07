package response

import (
	"time"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdpresent"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdprogress"
)

// SessionResponse 会话响应（DTO）
type SessionResponse struct {
	ID          string                `json:"id" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	State       string                `json:"state" example:"succeeded"`
	Token       uint64                `json:"token" example:"1"`
	Filename    string                `json:"filename,omitempty" example:"leaf.jpg"`
	HasPreview  bool                  `json:"has_preview"`
	Result      *mdpresent.ResultView `json:"result,omitempty"`
	Error       *mdpresent.ErrorView  `json:"error,omitempty"`
	Notice      *NoticeResponse       `json:"notice,omitempty"`
	Progress    *mdprogress.Progress  `json:"progress,omitempty"`
	SubmittedAt *time.Time            `json:"submitted_at,omitempty"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NoticeResponse 限时提示
type NoticeResponse struct {
	Code      string    `json:"code" example:"FILE_TOO_LARGE"`
	Message   string    `json:"message" example:"File too large. Maximum size is 5MB."`
	ExpiresAt time.Time `json:"expires_at"`
}

// ScanResponse 扫描记录（DTO）
type ScanResponse struct {
	ID         string               `json:"id" example:"scan_1790000000000000000"`
	SessionID  string               `json:"session_id"`
	Filename   string               `json:"filename"`
	Result     mdpresent.ResultView `json:"result"`
	ReportPath string               `json:"report_path,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

// HistoryResponse 扫描历史分页
type HistoryResponse struct {
	Items []*ScanResponse `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// PreviewResponse 预览
type PreviewResponse struct {
	PreviewURI string `json:"preview_uri"`
}

// ReportResponse 报告任务已入队
type ReportResponse struct {
	RequestID string `json:"request_id"`
	ScanID    string `json:"scan_id"`
	Status    string `json:"status" example:"queued"`
}
