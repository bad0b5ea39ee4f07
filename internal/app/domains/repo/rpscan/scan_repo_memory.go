package rpscan

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/entity/etscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorx"
)

// MemoryScanRepository 进程内扫描历史，未配置 MySQL 时使用
type MemoryScanRepository struct {
	mu      sync.RWMutex
	records map[string]*etscan.ScanRecord
}

// NewMemoryScanRepository 创建进程内仓储
func NewMemoryScanRepository() *MemoryScanRepository {
	return &MemoryScanRepository{records: make(map[string]*etscan.ScanRecord)}
}

// Create 保存记录副本
func (r *MemoryScanRepository) Create(_ context.Context, record *etscan.ScanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *record
	r.records[record.ID] = &cp
	return nil
}

// GetByID 根据扫描ID查询
func (r *MemoryScanRepository) GetByID(_ context.Context, scanID string) (*etscan.ScanRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[scanID]
	if !ok {
		return nil, errorx.ErrScanNotFound
	}
	cp := *record
	return &cp, nil
}

// UpdateReportPath 更新报告路径
func (r *MemoryScanRepository) UpdateReportPath(_ context.Context, scanID, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[scanID]
	if !ok {
		return errorx.ErrScanNotFound
	}
	record.AttachReport(path, time.Now())
	return nil
}

// List 分页查询，按创建时间倒序
func (r *MemoryScanRepository) List(_ context.Context, page, limit int) ([]*etscan.ScanRecord, int64, error) {
	r.mu.RLock()
	all := make([]*etscan.ScanRecord, 0, len(r.records))
	for _, record := range r.records {
		cp := *record
		all = append(all, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	offset := (page - 1) * limit
	if offset >= len(all) {
		return []*etscan.ScanRecord{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}
