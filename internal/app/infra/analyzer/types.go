package analyzer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// DetectionResponse 分析服务返回的检测结果
// 主结构为 prediction + ai_analysis；同时兼容早期的扁平字段
type DetectionResponse struct {
	ScanID             string      `json:"scan_id,omitempty"`
	Prediction         *Prediction `json:"prediction,omitempty"`
	AIAnalysis         *AIAnalysis `json:"ai_analysis,omitempty"`
	FinalDecisionScore *float64    `json:"final_decision_score,omitempty"`
	RiskIndex          *float64    `json:"risk_index,omitempty"`
	Tier               string      `json:"tier,omitempty"`
	DiseaseProgression string      `json:"disease_progression,omitempty"`

	// 扁平结构
	Crop       string   `json:"crop,omitempty"`
	Disease    string   `json:"disease,omitempty"`
	Diagnosis  string   `json:"diagnosis,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Severity   string   `json:"severity,omitempty"`
}

// Prediction 模型预测
type Prediction struct {
	Crop       string                 `json:"crop"`
	Disease    string                 `json:"disease"`
	Confidence *float64               `json:"confidence"`
	TopK       []TopKPrediction       `json:"top_k,omitempty"`
	Metrics    map[string]interface{} `json:"metrics,omitempty"`
}

// TopKPrediction 候选标签
type TopKPrediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// AIAnalysis 防治建议
type AIAnalysis struct {
	DiseaseName           string   `json:"disease_name"`
	Severity              string   `json:"severity"`
	Cause                 string   `json:"cause"`
	ImmediateAction       string   `json:"immediate_action"`
	TreatmentPlan         []string `json:"treatment_plan"`
	Prevention            string   `json:"prevention"`
	EstimatedCropLossRisk string   `json:"estimated_crop_loss_risk"`
	ConsultExpert         bool     `json:"consult_expert"`
}

// APIError 分析服务返回的错误
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("analyzer: status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("analyzer: status %d: %s", e.Status, e.Message)
}

// errorBody 错误响应体，detail 可能是字符串、对象或校验错误列表
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Code   string          `json:"code"`
}

type nestedDetail struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

type validationItem struct {
	Msg string `json:"msg"`
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.Code = eb.Code
		apiErr.Message = decodeDetail(eb.Detail, apiErr)
	}

	if apiErr.Code == "" {
		apiErr.Code = codeForStatus(status)
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(http.StatusText(status))
	}
	return apiErr
}

func decodeDetail(raw json.RawMessage, apiErr *APIError) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var nested nestedDetail
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Detail != "" {
		if nested.Code != "" {
			apiErr.Code = nested.Code
		}
		return strings.TrimSpace(nested.Detail)
	}

	var items []validationItem
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		if apiErr.Code == "" {
			apiErr.Code = "VALIDATION_ERROR"
		}
		return strings.TrimSpace(items[0].Msg)
	}

	return ""
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusRequestEntityTooLarge:
		return "FILE_TOO_LARGE"
	case http.StatusServiceUnavailable:
		return "SERVER_BUSY"
	case http.StatusGatewayTimeout:
		return "TIMEOUT"
	case http.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
