package mdanalysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/entity/etscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/infra/analyzer"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorx"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/logger"
)

const (
	MsgTimeout   = "The analysis service took too long to respond. Please try again."
	MsgCancelled = "Analysis was cancelled."
)

// Predictor 分析服务调用接口
type Predictor interface {
	Predict(ctx context.Context, filename, mimeType string, data []byte) (*analyzer.DetectionResponse, error)
}

// AnalysisModule 分析模块
// 职责：
// 1. 每次提交只发送一个文件
// 2. 将成功、错误响应、传输错误、超时、异常响应统一归一为结果或失败之一
type AnalysisModule struct {
	predictor Predictor
	logger    logger.Logger
}

// NewAnalysisModule 创建分析模块
func NewAnalysisModule(predictor Predictor, log logger.Logger) *AnalysisModule {
	if log == nil {
		log = logger.NewNop()
	}
	return &AnalysisModule{predictor: predictor, logger: log}
}

// Analyze 调用分析服务，结果与失败有且只有一个非 nil
func (m *AnalysisModule) Analyze(ctx context.Context, candidate *etscan.UploadCandidate) (result *etscan.AnalysisResult, failure *etscan.FailureInfo) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorf(ctx, "analyze panicked: %v", r)
			result = nil
			failure = etscan.NewFailure("", errorx.CodeUnknown)
		}
	}()

	if candidate == nil || len(candidate.Data) == 0 {
		return nil, etscan.NewFailure(errorx.ErrNoCandidate.Error(), errorx.CodeValidationError)
	}

	resp, err := m.predictor.Predict(ctx, candidate.Filename, candidate.MIMEType, candidate.Data)
	if err != nil {
		failure = MapError(err)
		m.logger.Warnf(ctx, "analyze failed: code=%s, err=%v", failure.Code, err)
		return nil, failure
	}

	result, err = Normalize(resp)
	if err != nil {
		m.logger.Warnf(ctx, "analyze response rejected: %v", err)
		return nil, etscan.NewFailure("", errorx.CodeMalformed)
	}

	m.logger.Infof(ctx, "analyze succeeded: crop=%s, diagnosis=%s, confidence=%.3f", result.Crop, result.Diagnosis, result.Confidence)
	return result, nil
}

// MapError 将调用错误转换为失败信息
func MapError(err error) *etscan.FailureInfo {
	var apiErr *analyzer.APIError
	switch {
	case errors.As(err, &apiErr):
		return etscan.NewFailure(apiErr.Message, apiErr.Code)
	case errors.Is(err, analyzer.ErrMalformedResponse):
		return etscan.NewFailure("", errorx.CodeMalformed)
	case errors.Is(err, context.DeadlineExceeded):
		return etscan.NewFailure(MsgTimeout, errorx.CodeTimeout)
	case errors.Is(err, context.Canceled):
		return etscan.NewFailure(MsgCancelled, errorx.CodeUnknown)
	default:
		return etscan.NewFailure("", errorx.CodeNetworkError)
	}
}

// Normalize 将检测结果转换为统一的 AnalysisResult
// 优先使用 prediction/ai_analysis 结构，缺失时读取扁平字段
func Normalize(resp *analyzer.DetectionResponse) (*etscan.AnalysisResult, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil payload", analyzer.ErrMalformedResponse)
	}

	result := &etscan.AnalysisResult{
		BackendScanID: resp.ScanID,
		Crop:          resp.Crop,
		Diagnosis:     firstNonEmpty(resp.Diagnosis, resp.Disease),
		Severity:      resp.Severity,
		Tier:          resp.Tier,
		RiskIndex:     resp.RiskIndex,
		DecisionScore: resp.FinalDecisionScore,
		Progression:   resp.DiseaseProgression,
	}
	confidence := resp.Confidence

	if p := resp.Prediction; p != nil {
		result.Crop = firstNonEmpty(p.Crop, result.Crop)
		result.Diagnosis = firstNonEmpty(p.Disease, result.Diagnosis)
		if p.Confidence != nil {
			confidence = p.Confidence
		}
		for _, k := range p.TopK {
			result.Alternatives = append(result.Alternatives, etscan.Alternative{
				Label:      strings.TrimSpace(k.Label),
				Confidence: clamp01(k.Confidence),
			})
		}
	}

	if a := resp.AIAnalysis; a != nil {
		result.Diagnosis = firstNonEmpty(result.Diagnosis, a.DiseaseName)
		result.Severity = firstNonEmpty(a.Severity, result.Severity)
		result.Advisory = &etscan.Advisory{
			Cause:           strings.TrimSpace(a.Cause),
			ImmediateAction: strings.TrimSpace(a.ImmediateAction),
			TreatmentSteps:  nonEmpty(a.TreatmentPlan),
			PreventionTips:  nonEmpty([]string{a.Prevention}),
			CropLossRisk:    strings.TrimSpace(a.EstimatedCropLossRisk),
			ConsultExpert:   a.ConsultExpert,
		}
	}

	result.Crop = strings.TrimSpace(result.Crop)
	result.Diagnosis = strings.TrimSpace(result.Diagnosis)
	if result.Crop == "" && result.Diagnosis == "" {
		return nil, fmt.Errorf("%w: no crop or diagnosis", analyzer.ErrMalformedResponse)
	}
	if confidence != nil {
		if math.IsNaN(*confidence) {
			return nil, fmt.Errorf("%w: confidence is NaN", analyzer.ErrMalformedResponse)
		}
		result.Confidence = clamp01(*confidence)
	}

	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(items []string) []string {
	var out []string
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
