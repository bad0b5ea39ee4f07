package mdreport

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/entity/etscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorx"
)

type fakePublisher struct {
	queue string
	data  []byte
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, queue string, data interface{}) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.queue = queue
	f.data, _ = json.Marshal(data)
	return "job-1", nil
}

func TestEnqueue(t *testing.T) {
	p := &fakePublisher{}
	m := NewReportModule(p, "scan_report")

	requestID, err := m.Enqueue(context.Background(), "scan_42")
	require.NoError(t, err)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, "scan_report", p.queue)

	job, err := ParseJob(p.data)
	require.NoError(t, err)
	assert.Equal(t, "scan_42", job.ScanID)
	assert.Equal(t, requestID, job.RequestID)
}

func TestEnqueueDisabled(t *testing.T) {
	_, err := NewReportModule(nil, "q").Enqueue(context.Background(), "scan_1")
	assert.ErrorIs(t, err, errorx.ErrReportDisabled)

	var nilModule *ReportModule
	assert.False(t, nilModule.Enabled())
}

func TestEnqueuePublishError(t *testing.T) {
	m := NewReportModule(&fakePublisher{err: errors.New("down")}, "q")
	_, err := m.Enqueue(context.Background(), "scan_1")
	assert.Error(t, err)
}

func TestParseJobRejectsBadInput(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"action_type":"other","scan_id":"scan_1"}`,
		`{"action_type":"scan_report","scan_id":"../etc/passwd"}`,
		`{"action_type":"scan_report","scan_id":""}`,
	} {
		_, err := ParseJob([]byte(raw))
		assert.ErrorIs(t, err, ErrInvalidJob, raw)
	}
}

func TestExporterWritesReport(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(filepath.Join(dir, "reports"))
	e.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	record := &etscan.ScanRecord{
		ID:     "scan_7",
		Result: &etscan.AnalysisResult{Crop: "Tomato", Diagnosis: "Early Blight", Confidence: 0.82},
	}
	path, err := e.Export(record)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reports", "scan_7.txt"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(content), "Scan ID:     scan_7"))
	assert.True(t, strings.Contains(string(content), "Confidence:  82.0%"))

	entries, err := os.ReadDir(filepath.Join(dir, "reports"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExporterRejectsMissingRecord(t *testing.T) {
	_, err := NewExporter(t.TempDir()).Export(nil)
	assert.ErrorIs(t, err, ErrInvalidJob)
}
