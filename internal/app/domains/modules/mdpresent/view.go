package mdpresent

import (
	"fmt"
	"strings"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/entity/etscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorx"
)

// 占位文案
const (
	PlaceholderUnknown = "Unknown"
	PlaceholderNA      = "N/A"
)

const (
	UncertaintyTitle   = "High Uncertainty"
	UncertaintyMessage = "Neural network confidence is low. Alternative diagnoses may be valid."

	DefaultErrorTitle = "Analysis Failed"
	RetryLabel        = "Try Again"
	RetryAction       = "reset"
)

// 严重程度分级
const (
	SeverityHigh    = "high"
	SeverityMedium  = "medium"
	SeverityLow     = "low"
	SeverityUnknown = "unknown"
)

// ResultView 结果展示模型
type ResultView struct {
	ScanID         string             `json:"scan_id,omitempty"`
	Crop           string             `json:"crop"`
	Diagnosis      string             `json:"diagnosis"`
	Healthy        bool               `json:"healthy"`
	Confidence     float64            `json:"confidence"`
	ConfidenceText string             `json:"confidence_text"`
	Severity       string             `json:"severity"`
	SeverityLevel  string             `json:"severity_level"`
	Uncertainty    *UncertaintyNotice `json:"uncertainty,omitempty"`
	Alternatives   []AlternativeView  `json:"alternatives"`
	Advisory       *AdvisoryView      `json:"advisory,omitempty"`
	Tier           string             `json:"tier"`
	RiskIndex      string             `json:"risk_index"`
	DecisionScore  string             `json:"decision_score"`
	Progression    string             `json:"progression"`
}

// UncertaintyNotice 高不确定性提示
type UncertaintyNotice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// AlternativeView 候选诊断
type AlternativeView struct {
	Label          string  `json:"label"`
	Confidence     float64 `json:"confidence"`
	ConfidenceText string  `json:"confidence_text"`
}

// AdvisoryView 建议展示模型
type AdvisoryView struct {
	Cause           string   `json:"cause"`
	ImmediateAction string   `json:"immediate_action"`
	TreatmentSteps  []string `json:"treatment_steps"`
	PreventionTips  []string `json:"prevention_tips"`
	CropLossRisk    string   `json:"crop_loss_risk"`
	ConsultExpert   bool     `json:"consult_expert"`
}

// ErrorView 错误展示模型
type ErrorView struct {
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Code    string     `json:"code,omitempty"`
	Retry   RetryField `json:"retry"`
}

// RetryField 重试操作，执行后回到 idle
type RetryField struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// BuildResultView 纯函数：缺失字段使用占位文案，不会失败
func BuildResultView(r *etscan.AnalysisResult) ResultView {
	if r == nil {
		r = &etscan.AnalysisResult{}
	}

	view := ResultView{
		ScanID:         r.ScanID,
		Crop:           orPlaceholder(r.Crop, PlaceholderUnknown),
		Diagnosis:      orPlaceholder(r.Diagnosis, PlaceholderUnknown),
		Healthy:        r.IsHealthy(),
		Confidence:     r.Confidence,
		ConfidenceText: FormatPercent(r.Confidence),
		Severity:       orPlaceholder(r.Severity, PlaceholderUnknown),
		SeverityLevel:  ClassifySeverity(r.Severity),
		Alternatives:   []AlternativeView{},
		Tier:           orPlaceholder(r.Tier, PlaceholderNA),
		RiskIndex:      formatOptional(r.RiskIndex),
		DecisionScore:  formatOptional(r.DecisionScore),
		Progression:    orPlaceholder(r.Progression, PlaceholderNA),
	}

	if r.IsUncertain() {
		view.Uncertainty = &UncertaintyNotice{Title: UncertaintyTitle, Message: UncertaintyMessage}
	}

	// 第一项为主诊断，不计入候选
	if len(r.Alternatives) > 1 {
		for _, alt := range r.Alternatives[1:] {
			view.Alternatives = append(view.Alternatives, AlternativeView{
				Label:          orPlaceholder(alt.Label, PlaceholderUnknown),
				Confidence:     alt.Confidence,
				ConfidenceText: FormatPercent(alt.Confidence),
			})
		}
	}

	if a := r.Advisory; a != nil {
		view.Advisory = &AdvisoryView{
			Cause:           orPlaceholder(a.Cause, PlaceholderNA),
			ImmediateAction: orPlaceholder(a.ImmediateAction, PlaceholderNA),
			TreatmentSteps:  orEmpty(a.TreatmentSteps),
			PreventionTips:  orEmpty(a.PreventionTips),
			CropLossRisk:    orPlaceholder(a.CropLossRisk, PlaceholderNA),
			ConsultExpert:   a.ConsultExpert,
		}
	}

	return view
}

// BuildErrorView 失败展示，附带回到 idle 的重试操作
func BuildErrorView(f *etscan.FailureInfo) ErrorView {
	if f == nil {
		f = etscan.NewFailure("", "")
	}
	view := ErrorView{
		Title:   errorTitle(f.Code),
		Message: orPlaceholder(f.Message, etscan.GenericFailureMessage),
		Code:    f.Code,
		Retry:   RetryField{Label: RetryLabel, Action: RetryAction},
	}
	return view
}

// FormatPercent 0.82 -> "82.0%"
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// ClassifySeverity 将自由文本严重程度归为 high / medium / low / unknown
func ClassifySeverity(severity string) string {
	s := strings.ToLower(severity)
	switch {
	case strings.Contains(s, "high"), strings.Contains(s, "critical"), strings.Contains(s, "severe"):
		return SeverityHigh
	case strings.Contains(s, "medium"), strings.Contains(s, "moderate"):
		return SeverityMedium
	case strings.Contains(s, "low"), strings.Contains(s, "mild"), strings.Contains(s, "healthy"):
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

func errorTitle(code string) string {
	switch code {
	case errorx.CodeRateLimited:
		return "Too Many Requests"
	case errorx.CodeNotAPlant:
		return "Not a Plant Image"
	case errorx.CodeTimeout, errorx.CodeGeminiTimeout:
		return "Analysis Timed Out"
	default:
		return DefaultErrorTitle
	}
}

func orPlaceholder(s, placeholder string) string {
	if s = strings.TrimSpace(s); s == "" {
		return placeholder
	}
	return s
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func formatOptional(v *float64) string {
	if v == nil {
		return PlaceholderNA
	}
	return fmt.Sprintf("%.2f", *v)
}
