package mdprogress

import (
	"time"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/entity/etscan"
)

const (
	Title      = "Analyzing Plant Health"
	SlowNotice = "Processing under high demand..."

	DefaultDetectingAfter  = 800 * time.Millisecond
	DefaultGeneratingAfter = 2000 * time.Millisecond
	DefaultSlowAfter       = 5 * time.Second
)

// 阶段状态
const (
	StatusCompleted = "completed"
	StatusCurrent   = "current"
	StatusPending   = "pending"
)

// Stage 展示阶段
type Stage struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

// Progress 进度快照
// 仅用于展示节奏，与服务端真实进度无关
type Progress struct {
	Visible    bool    `json:"visible"`
	Title      string  `json:"title,omitempty"`
	State      string  `json:"state"`
	Current    string  `json:"current,omitempty"`
	Stages     []Stage `json:"stages,omitempty"`
	ElapsedMs  int64   `json:"elapsed_ms"`
	SlowNotice string  `json:"slow_notice,omitempty"`
}

type stageDef struct {
	id    string
	label string
	after time.Duration
}

// ProgressModule 阶段进度模块
type ProgressModule struct {
	stages    []stageDef
	slowAfter time.Duration
}

// NewProgressModule 创建进度模块，参数非正时使用默认值
func NewProgressModule(detectingAfter, generatingAfter, slowAfter time.Duration) *ProgressModule {
	if detectingAfter <= 0 {
		detectingAfter = DefaultDetectingAfter
	}
	if generatingAfter <= 0 {
		generatingAfter = DefaultGeneratingAfter
	}
	if generatingAfter < detectingAfter {
		generatingAfter = detectingAfter
	}
	if slowAfter <= 0 {
		slowAfter = DefaultSlowAfter
	}
	return &ProgressModule{
		stages: []stageDef{
			{id: "received", label: "Image Received"},
			{id: "detecting", label: "Detecting Disease", after: detectingAfter},
			{id: "generating", label: "Generating Advice", after: generatingAfter},
		},
		slowAfter: slowAfter,
	}
}

// Snapshot 根据流程状态与已耗时计算进度
// 只在 submitted / awaiting-result 时可见
func (m *ProgressModule) Snapshot(state etscan.WorkflowState, submittedAt, now time.Time) Progress {
	p := Progress{State: string(state)}
	if !state.IsInFlight() || submittedAt.IsZero() {
		return p
	}

	elapsed := now.Sub(submittedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	current := 0
	for i, s := range m.stages {
		if elapsed >= s.after {
			current = i
		}
	}

	p.Visible = true
	p.Title = Title
	p.Current = m.stages[current].id
	p.ElapsedMs = elapsed.Milliseconds()
	p.Stages = make([]Stage, 0, len(m.stages))
	for i, s := range m.stages {
		status := StatusPending
		switch {
		case i < current:
			status = StatusCompleted
		case i == current:
			status = StatusCurrent
		}
		p.Stages = append(p.Stages, Stage{ID: s.id, Label: s.label, Status: status})
	}

	if elapsed >= m.slowAfter {
		p.SlowNotice = SlowNotice
	}
	return p
}
