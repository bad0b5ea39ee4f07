package mdreport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/entity/etscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdpresent"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorx"
)

// ActionType 报告导出任务类型
const ActionType = "scan_report"

// ErrInvalidJob 任务内容不合法，不可重试
var ErrInvalidJob = errors.New("invalid report job")

var scanIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)

// ReportJob 报告导出任务消息
type ReportJob struct {
	RequestID   string    `json:"request_id"` // 全链路追踪
	ActionType  string    `json:"action_type"`
	ScanID      string    `json:"scan_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// Publisher 队列发布接口
type Publisher interface {
	Publish(ctx context.Context, queue string, data interface{}) (string, error)
}

// ReportModule 报告模块
// 职责：
// 1. 构造标准化任务消息并投递到队列
// 2. 解析任务消息
type ReportModule struct {
	publisher Publisher
	queueName string
}

// NewReportModule 创建报告模块，publisher 为 nil 时报告导出不可用
func NewReportModule(publisher Publisher, queueName string) *ReportModule {
	return &ReportModule{publisher: publisher, queueName: queueName}
}

// Enabled 是否已配置队列
func (m *ReportModule) Enabled() bool {
	return m != nil && m.publisher != nil && m.queueName != ""
}

// Enqueue 投递报告导出任务，返回 request ID
func (m *ReportModule) Enqueue(ctx context.Context, scanID string) (string, error) {
	if !m.Enabled() {
		return "", errorx.ErrReportDisabled
	}

	job := ReportJob{
		RequestID:   uuid.New().String(),
		ActionType:  ActionType,
		ScanID:      scanID,
		RequestedAt: time.Now(),
	}
	if _, err := m.publisher.Publish(ctx, m.queueName, job); err != nil {
		return "", err
	}
	return job.RequestID, nil
}

// ParseJob 解析并校验任务消息
func ParseJob(data []byte) (*ReportJob, error) {
	var job ReportJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if job.ActionType != ActionType {
		return nil, fmt.Errorf("%w: unexpected action_type %q", ErrInvalidJob, job.ActionType)
	}
	if !scanIDPattern.MatchString(job.ScanID) {
		return nil, fmt.Errorf("%w: bad scan_id %q", ErrInvalidJob, job.ScanID)
	}
	return &job, nil
}

// Exporter 将扫描记录渲染为文本报告并写入目录
type Exporter struct {
	dir string
	now func() time.Time
}

// NewExporter 创建报告导出器
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir, now: time.Now}
}

// Export 写入 <dir>/<scan_id>.txt，先写临时文件再重命名
func (e *Exporter) Export(record *etscan.ScanRecord) (string, error) {
	if record == nil || !scanIDPattern.MatchString(record.ID) {
		return "", fmt.Errorf("%w: missing scan record", ErrInvalidJob)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir failed: %w", err)
	}

	view := mdpresent.BuildResultView(record.Result)
	if view.ScanID == "" {
		view.ScanID = record.ID
	}
	text := mdpresent.RenderText(view, e.now())

	path := filepath.Join(e.dir, record.ID+".txt")
	tmp, err := os.CreateTemp(e.dir, record.ID+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp report failed: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write report failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close report failed: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename report failed: %w", err)
	}
	return path, nil
}
