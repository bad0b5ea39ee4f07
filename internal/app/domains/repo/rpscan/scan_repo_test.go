package rpscan

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/entity/etscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/infra/persistence/mysql"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorx"
)

var base = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T, repo ScanRepository, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		rec, err := etscan.NewScanRecord(fmt.Sprintf("scan_%d", i), "s1", "leaf.jpg",
			&etscan.AnalysisResult{Crop: "Tomato", Diagnosis: "Blight", Confidence: 0.9}, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, repo.Create(context.Background(), rec))
	}
}

func TestMemoryRepoListNewestFirst(t *testing.T) {
	repo := NewMemoryScanRepository()
	seed(t, repo, 5)

	page1, total, err := repo.List(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page1, 2)
	assert.Equal(t, "scan_4", page1[0].ID)
	assert.Equal(t, "scan_3", page1[1].ID)

	page3, _, err := repo.List(context.Background(), 3, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "scan_0", page3[0].ID)

	empty, _, err := repo.List(context.Background(), 9, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryRepoGetAndUpdate(t *testing.T) {
	repo := NewMemoryScanRepository()
	seed(t, repo, 1)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, errorx.ErrScanNotFound)
	assert.ErrorIs(t, repo.UpdateReportPath(context.Background(), "missing", "/x"), errorx.ErrScanNotFound)

	require.NoError(t, repo.UpdateReportPath(context.Background(), "scan_0", "/reports/scan_0.txt"))
	got, err := repo.GetByID(context.Background(), "scan_0")
	require.NoError(t, err)
	assert.Equal(t, "/reports/scan_0.txt", got.ReportPath)
	assert.Equal(t, "Tomato", got.Result.Crop)
}

func TestGormModelRoundTrip(t *testing.T) {
	rec, err := etscan.NewScanRecord("scan_1", "s1", "leaf.jpg",
		&etscan.AnalysisResult{Crop: "Corn", Diagnosis: "Rust", Confidence: 0.7, Severity: "High",
			Alternatives: []etscan.Alternative{{Label: "Rust", Confidence: 0.7}}}, base)
	require.NoError(t, err)

	po, err := toGormModel(rec)
	require.NoError(t, err)
	assert.Equal(t, "Corn", po.Crop)
	assert.Equal(t, "High", po.Severity)
	assert.Equal(t, "scans", mysql.Scan{}.TableName())

	back, err := toDomainModel(po)
	require.NoError(t, err)
	assert.Equal(t, rec.Result, back.Result)
	assert.Equal(t, rec.SessionID, back.SessionID)
}
