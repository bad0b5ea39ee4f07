package svreport

import (
	"context"
	"errors"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdreport"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/repo/rpscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorutil"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorx"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/logger"
)

// ReportService 报告导出服务
// 职责：
// 1. 根据任务读取扫描记录
// 2. 渲染并写入报告文件
// 3. 回写报告路径
type ReportService struct {
	scanRepo rpscan.ScanRepository
	exporter *mdreport.Exporter
	logger   logger.Logger
}

// NewReportService 创建报告服务实例
func NewReportService(scanRepo rpscan.ScanRepository, exporter *mdreport.Exporter, log logger.Logger) *ReportService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ReportService{scanRepo: scanRepo, exporter: exporter, logger: log}
}

// HandleJob 处理报告任务
// 返回 *errorutil.Error，Retryable 决定是否让队列重新投递
func (s *ReportService) HandleJob(ctx context.Context, job *mdreport.ReportJob) error {
	ctx = logger.WithScanID(logger.WithTraceID(ctx, job.RequestID), job.ScanID)

	// 1. 读取扫描记录
	record, err := s.scanRepo.GetByID(ctx, job.ScanID)
	if err != nil {
		if errors.Is(err, errorx.ErrScanNotFound) {
			return errorutil.NonRetriable("scan record not found", err)
		}
		return errorutil.Retriable("load scan record failed", err)
	}

	// 2. 写入报告
	path, err := s.exporter.Export(record)
	if err != nil {
		if errors.Is(err, mdreport.ErrInvalidJob) {
			return errorutil.NonRetriable("invalid scan record", err)
		}
		return errorutil.Retriable("export report failed", err)
	}

	// 3. 回写路径（文件已生成，失败时重试会覆盖同名文件）
	if err := s.scanRepo.UpdateReportPath(ctx, record.ID, path); err != nil {
		return errorutil.Retriable("update report path failed", err)
	}

	s.logger.Infof(ctx, "report exported: path=%s", path)
	return nil
}
