package rpscan

import (
	"context"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/entity/etscan"
)

// ScanRepository 扫描历史仓储接口
type ScanRepository interface {
	// Create 保存成功的扫描记录
	Create(ctx context.Context, record *etscan.ScanRecord) error

	// GetByID 根据扫描ID查询，不存在返回 errorx.ErrScanNotFound
	GetByID(ctx context.Context, scanID string) (*etscan.ScanRecord, error)

	// UpdateReportPath 记录报告导出路径
	UpdateReportPath(ctx context.Context, scanID, path string) error

	// List 分页查询，按创建时间倒序
	List(ctx context.Context, page, limit int) ([]*etscan.ScanRecord, int64, error)
}
