package etscan

import "strings"

// UncertaintyThreshold 置信度低于该值时结果页需要提示高不确定性
const UncertaintyThreshold = 0.60

// AnalysisResult 分析结果（唯一规范契约，所有展示层都消费这一结构）
type AnalysisResult struct {
	ScanID        string        `json:"scan_id,omitempty"`         // 本地扫描记录 ID
	BackendScanID string        `json:"backend_scan_id,omitempty"` // 分析服务返回的 ID，可能重复
	Crop          string        `json:"crop"`
	Diagnosis     string        `json:"diagnosis"`
	Confidence    float64       `json:"confidence"`
	Severity      string        `json:"severity,omitempty"`
	Alternatives  []Alternative `json:"alternatives,omitempty"` // 按接收顺序，第一项为主诊断
	Advisory      *Advisory     `json:"advisory,omitempty"`
	Tier          string        `json:"tier,omitempty"`
	RiskIndex     *float64      `json:"risk_index,omitempty"`
	DecisionScore *float64      `json:"decision_score,omitempty"`
	Progression   string        `json:"progression,omitempty"`
}

// Alternative 候选诊断
type Alternative struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Advisory 防治建议
type Advisory struct {
	Cause           string   `json:"cause,omitempty"`
	ImmediateAction string   `json:"immediate_action,omitempty"`
	TreatmentSteps  []string `json:"treatment_steps,omitempty"`
	PreventionTips  []string `json:"prevention_tips,omitempty"`
	CropLossRisk    string   `json:"crop_loss_risk,omitempty"`
	ConsultExpert   bool     `json:"consult_expert"`
}

// IsUncertain 置信度是否低于阈值
func (r *AnalysisResult) IsUncertain() bool {
	return r.Confidence < UncertaintyThreshold
}

// IsHealthy 诊断是否为健康
func (r *AnalysisResult) IsHealthy() bool {
	return strings.EqualFold(strings.TrimSpace(r.Diagnosis), "healthy")
}

// FailureInfo 失败信息
type FailureInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// GenericFailureMessage 没有可用错误信息时的兜底文案
const GenericFailureMessage = "An unexpected error occurred."

// NewFailure 创建失败信息，message 为空时使用兜底文案
func NewFailure(message, code string) *FailureInfo {
	message = strings.TrimSpace(message)
	if message == "" {
		message = GenericFailureMessage
	}
	return &FailureInfo{Message: message, Code: code}
}
