package response

import (
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/entity/etscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdpresent"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdprogress"
)

// FromSnapshot 从会话快照转换为响应 DTO
// 结果与错误互斥：succeeded 只带 result，failed 只带 error
func FromSnapshot(snap etscan.Snapshot, progress *mdprogress.Progress) *SessionResponse {
	resp := &SessionResponse{
		ID:         snap.ID,
		State:      string(snap.State),
		Token:      snap.Token,
		Filename:   snap.Filename,
		HasPreview: snap.HasPreview,
		UpdatedAt:  snap.UpdatedAt,
	}
	if !snap.SubmittedAt.IsZero() {
		submittedAt := snap.SubmittedAt
		resp.SubmittedAt = &submittedAt
	}

	switch {
	case snap.State == etscan.StateSucceeded && snap.Result != nil:
		view := mdpresent.BuildResultView(snap.Result)
		resp.Result = &view
	case snap.State == etscan.StateFailed:
		view := mdpresent.BuildErrorView(snap.Failure)
		resp.Error = &view
	}

	if snap.Notice != nil {
		resp.Notice = &NoticeResponse{
			Code:      snap.Notice.Code,
			Message:   snap.Notice.Message,
			ExpiresAt: snap.Notice.ExpiresAt,
		}
	}
	if progress != nil && progress.Visible {
		resp.Progress = progress
	}
	return resp
}

// FromScanRecord 从扫描记录转换为响应 DTO
func FromScanRecord(record *etscan.ScanRecord) *ScanResponse {
	resp := &ScanResponse{
		ID:         record.ID,
		SessionID:  record.SessionID,
		Filename:   record.Filename,
		ReportPath: record.ReportPath,
		CreatedAt:  record.CreatedAt,
	}
	if record.Result != nil {
		resp.Result = mdpresent.BuildResultView(record.Result)
	}
	return resp
}

// FromScanRecords 批量转换
func FromScanRecords(records []*etscan.ScanRecord, total int64, page, limit int) *HistoryResponse {
	items := make([]*ScanResponse, 0, len(records))
	for _, record := range records {
		items = append(items, FromScanRecord(record))
	}
	return &HistoryResponse{Items: items, Total: total, Page: page, Limit: limit}
}
