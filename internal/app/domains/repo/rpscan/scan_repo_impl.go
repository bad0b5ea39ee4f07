package rpscan

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/entity/etscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/infra/persistence/mysql"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorx"
)

// ScanRepositoryImpl 扫描历史仓储实现（MySQL）
type ScanRepositoryImpl struct {
	db *gorm.DB
}

// NewScanRepository 创建扫描历史仓储实例
func NewScanRepository(db *gorm.DB) ScanRepository {
	return &ScanRepositoryImpl{db: db}
}

// Create 领域对象转换为 GORM 模型后存储
func (r *ScanRepositoryImpl) Create(ctx context.Context, record *etscan.ScanRecord) error {
	po, err := toGormModel(record)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(po).Error
}

// GetByID 根据扫描ID查询
func (r *ScanRepositoryImpl) GetByID(ctx context.Context, scanID string) (*etscan.ScanRecord, error) {
	var po mysql.Scan
	err := r.db.WithContext(ctx).Where("id = ?", scanID).First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.ErrScanNotFound
		}
		return nil, err
	}
	return toDomainModel(&po)
}

// UpdateReportPath 更新报告路径
func (r *ScanRepositoryImpl) UpdateReportPath(ctx context.Context, scanID, path string) error {
	result := r.db.WithContext(ctx).
		Model(&mysql.Scan{}).
		Where("id = ?", scanID).
		Updates(map[string]interface{}{
			"report_path": path,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errorx.ErrScanNotFound
	}
	return nil
}

// List 分页查询扫描历史
func (r *ScanRepositoryImpl) List(ctx context.Context, page, limit int) ([]*etscan.ScanRecord, int64, error) {
	var total int64
	var pos []mysql.Scan

	query := r.db.WithContext(ctx).Model(&mysql.Scan{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&pos).Error; err != nil {
		return nil, 0, err
	}

	records := make([]*etscan.ScanRecord, 0, len(pos))
	for i := range pos {
		record, err := toDomainModel(&pos[i])
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}

	return records, total, nil
}

// toGormModel 领域对象转换为 GORM 模型
func toGormModel(record *etscan.ScanRecord) (*mysql.Scan, error) {
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return nil, err
	}

	po := &mysql.Scan{
		ID:         record.ID,
		SessionID:  record.SessionID,
		Filename:   record.Filename,
		Result:     resultJSON,
		ReportPath: record.ReportPath,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
	if record.Result != nil {
		po.Crop = record.Result.Crop
		po.Diagnosis = record.Result.Diagnosis
		po.Confidence = record.Result.Confidence
		po.Severity = record.Result.Severity
	}
	return po, nil
}

// toDomainModel GORM 模型转换为领域对象
func toDomainModel(po *mysql.Scan) (*etscan.ScanRecord, error) {
	record := &etscan.ScanRecord{
		ID:         po.ID,
		SessionID:  po.SessionID,
		Filename:   po.Filename,
		ReportPath: po.ReportPath,
		CreatedAt:  po.CreatedAt,
		UpdatedAt:  po.UpdatedAt,
	}

	if len(po.Result) > 0 {
		var result etscan.AnalysisResult
		if err := json.Unmarshal(po.Result, &result); err != nil {
			return nil, err
		}
		record.Result = &result
	}

	return record, nil
}
