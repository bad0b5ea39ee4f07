package mdanalysis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/entity/etscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/infra/analyzer"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorx"
)

type fakePredictor struct {
	resp  *analyzer.DetectionResponse
	err   error
	panic bool
	calls int
}

func (f *fakePredictor) Predict(ctx context.Context, filename, mimeType string, data []byte) (*analyzer.DetectionResponse, error) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	return f.resp, f.err
}

func ptr(v float64) *float64 { return &v }

var candidate = &etscan.UploadCandidate{Filename: "leaf.jpg", MIMEType: "image/jpeg", Data: []byte{1}}

func TestAnalyzeSuccess(t *testing.T) {
	p := &fakePredictor{resp: &analyzer.DetectionResponse{
		Prediction: &analyzer.Prediction{Crop: "Tomato", Disease: "Early Blight", Confidence: ptr(0.82)},
	}}
	m := NewAnalysisModule(p, nil)

	result, failure := m.Analyze(context.Background(), candidate)
	require.Nil(t, failure)
	assert.Equal(t, "Tomato", result.Crop)
	assert.Equal(t, "Early Blight", result.Diagnosis)
	assert.InDelta(t, 0.82, result.Confidence, 1e-9)
	assert.Equal(t, 1, p.calls)
}

func TestAnalyzeFailureModes(t *testing.T) {
	cases := []struct {
		name    string
		p       *fakePredictor
		message string
		code    string
	}{
		{"api error", &fakePredictor{err: &analyzer.APIError{Status: 429, Message: "Too many requests.", Code: "RATE_LIMITED"}}, "Too many requests.", "RATE_LIMITED"},
		{"network error", &fakePredictor{err: fmt.Errorf("analyzer: http call failed: %w", &net.OpError{Op: "dial", Err: errors.New("refused")})}, etscan.GenericFailureMessage, errorx.CodeNetworkError},
		{"timeout", &fakePredictor{err: fmt.Errorf("wrap: %w", context.DeadlineExceeded)}, MsgTimeout, errorx.CodeTimeout},
		{"malformed", &fakePredictor{err: fmt.Errorf("%w: empty body", analyzer.ErrMalformedResponse)}, etscan.GenericFailureMessage, errorx.CodeMalformed},
		{"nil payload", &fakePredictor{}, etscan.GenericFailureMessage, errorx.CodeMalformed},
		{"empty payload", &fakePredictor{resp: &analyzer.DetectionResponse{}}, etscan.GenericFailureMessage, errorx.CodeMalformed},
		{"panic", &fakePredictor{panic: true}, etscan.GenericFailureMessage, errorx.CodeUnknown},
		{"api error without message", &fakePredictor{err: &analyzer.APIError{Status: 500}}, etscan.GenericFailureMessage, ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := NewAnalysisModule(c.p, nil)
			result, failure := m.Analyze(context.Background(), candidate)
			assert.Nil(t, result)
			require.NotNil(t, failure)
			assert.NotEmpty(t, failure.Message)
			assert.Equal(t, c.message, failure.Message)
			assert.Equal(t, c.code, failure.Code)
		})
	}
}

func TestAnalyzeWithoutCandidateSkipsCall(t *testing.T) {
	p := &fakePredictor{}
	m := NewAnalysisModule(p, nil)
	_, failure := m.Analyze(context.Background(), nil)
	require.NotNil(t, failure)
	assert.Zero(t, p.calls)
}

func TestNormalizeFullPayload(t *testing.T) {
	resp := &analyzer.DetectionResponse{
		ScanID: "scan_1",
		Prediction: &analyzer.Prediction{
			Crop: "Potato", Disease: "Late Blight", Confidence: ptr(1.2),
			TopK: []analyzer.TopKPrediction{{Label: " Late Blight ", Confidence: 0.9}, {Label: "Early Blight", Confidence: 0.05}},
		},
		AIAnalysis: &analyzer.AIAnalysis{
			Severity: "High", Cause: "Oomycete", ImmediateAction: "Isolate",
			TreatmentPlan: []string{"Copper spray", " ", "Remove debris"}, Prevention: "Certified seed",
			EstimatedCropLossRisk: "40%", ConsultExpert: true,
		},
		RiskIndex:          ptr(0.7),
		FinalDecisionScore: ptr(0.88),
		Tier:               "HIGH",
		DiseaseProgression: "Spreading",
	}

	r, err := Normalize(resp)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Confidence)
	assert.Equal(t, "High", r.Severity)
	assert.Equal(t, []etscan.Alternative{{Label: "Late Blight", Confidence: 0.9}, {Label: "Early Blight", Confidence: 0.05}}, r.Alternatives)
	assert.Equal(t, []string{"Copper spray", "Remove debris"}, r.Advisory.TreatmentSteps)
	assert.Equal(t, []string{"Certified seed"}, r.Advisory.PreventionTips)
	assert.True(t, r.Advisory.ConsultExpert)
	assert.Equal(t, "scan_1", r.BackendScanID)
	assert.Empty(t, r.ScanID)
	assert.Equal(t, "HIGH", r.Tier)
	assert.InDelta(t, 0.7, *r.RiskIndex, 1e-9)
	assert.InDelta(t, 0.88, *r.DecisionScore, 1e-9)
	assert.Equal(t, "Spreading", r.Progression)
}

func TestNormalizeFlatPayload(t *testing.T) {
	r, err := Normalize(&analyzer.DetectionResponse{Crop: "Corn", Diagnosis: "Common Rust", Confidence: ptr(0.45), Severity: "Low"})
	require.NoError(t, err)
	assert.Equal(t, "Corn", r.Crop)
	assert.Equal(t, "Common Rust", r.Diagnosis)
	assert.True(t, r.IsUncertain())
	assert.Nil(t, r.Advisory)
}
