package routers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdanalysis"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdintake"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdprogress"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/services/svscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/infra/analyzer"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/ginx"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/logger"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/server/handlers/health"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/server/handlers/scan"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type predictorFunc func(ctx context.Context) (*analyzer.DetectionResponse, error)

func (f predictorFunc) Predict(ctx context.Context, _, _ string, _ []byte) (*analyzer.DetectionResponse, error) {
	return f(ctx)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func tomato(ctx context.Context) (*analyzer.DetectionResponse, error) {
	confidence := 0.82
	return &analyzer.DetectionResponse{
		Prediction: &analyzer.Prediction{Crop: "Tomato", Disease: "Early Blight", Confidence: &confidence},
	}, nil
}

func blockUntilCancelled(ctx context.Context) (*analyzer.DetectionResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newEngine(t *testing.T, predict predictorFunc, ping pingerFunc) *gin.Engine {
	t.Helper()
	log := logger.NewNop()
	svc := svscan.NewScanService(svscan.Modules{
		Intake:   mdintake.NewIntakeModule(0, 0),
		Analysis: mdanalysis.NewAnalysisModule(predict, log),
		Progress: mdprogress.NewProgressModule(0, 0, 0),
		Logger:   log,
	})
	t.Cleanup(svc.Close)

	var pinger health.Pinger
	if ping != nil {
		pinger = ping
	}
	return SetupRoutes(
		scan.NewScanHandler(svc, 2*time.Second, 5*time.Second, log),
		health.NewHealthHandler("leafsense", pinger, log),
		[]string{"http://localhost:5173"},
		log,
	)
}

type envelope struct {
	Meta ginx.Meta      `json:"meta"`
	Data map[string]any `json:"data"`
}

func do(t *testing.T, r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()
	w, env := do(t, r, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "idle", env.Data["state"])
	return env.Data["id"].(string)
}

func submitRequest(t *testing.T, sessionID, query, mimeType string, size int) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="leaf.jpg"`)
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{1}, size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	url := fmt.Sprintf("/api/v1/sessions/%s/scans%s", sessionID, query)
	req := httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	r := newEngine(t, tomato, func(ctx context.Context) error { return errors.New("down") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSubmitSettledReturnsResult(t *testing.T) {
	r := newEngine(t, tomato, nil)
	id := createSession(t, r)

	w, env := do(t, r, submitRequest(t, id, "", "image/jpeg", 2048))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 200, env.Meta.Code)
	assert.Equal(t, "succeeded", env.Data["state"])
	assert.Equal(t, true, env.Data["has_preview"])
	assert.Nil(t, env.Data["error"])

	result := env.Data["result"].(map[string]any)
	assert.Equal(t, "Tomato", result["crop"])
	assert.Equal(t, "82.0%", result["confidence_text"])
	assert.Nil(t, result["uncertainty"])

	w, env = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/scans/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, env.Data["total"])

	scanID := result["scan_id"].(string)
	w, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/scans/"+scanID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, httptest.NewRequest(http.MethodPost, "/api/v1/scans/"+scanID+"/report", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, env = do(t, r, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/reset", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "idle", env.Data["state"])
	assert.Nil(t, env.Data["result"])
}

func TestSubmitRejections(t *testing.T) {
	r := newEngine(t, func(ctx context.Context) (*analyzer.DetectionResponse, error) {
		t.Error("analyzer must not be called")
		return nil, nil
	}, nil)
	id := createSession(t, r)

	w, env := do(t, r, submitRequest(t, id, "", "image/png", 7*1024*1024))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "FILE_TOO_LARGE", env.Meta.ErrorCode)
	assert.Equal(t, "File too large. Maximum size is 5MB.", env.Meta.Message)
	assert.Equal(t, "idle", env.Data["state"])
	notice := env.Data["notice"].(map[string]any)
	assert.Equal(t, "FILE_TOO_LARGE", notice["code"])

	w, env = do(t, r, submitRequest(t, id, "", "text/plain", 100))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FORMAT", env.Meta.ErrorCode)
	assert.Equal(t, mdintake.MsgInvalidType, env.Meta.Message)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/scans", nil)
	w, _ = do(t, r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, submitRequest(t, id, "?wait=999", "image/png", 10))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitProcessingThenBusy(t *testing.T) {
	r := newEngine(t, blockUntilCancelled, nil)
	id := createSession(t, r)

	w, env := do(t, r, submitRequest(t, id, "?wait=0", "image/jpeg", 64))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ginx.CodeProcessing, env.Meta.Code)
	assert.Equal(t, "/api/v1/sessions/"+id, env.Data["poll_url"])

	w, _ = do(t, r, submitRequest(t, id, "?wait=0&disabled=true", "image/jpeg", 64))
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	progress := env.Data["progress"].(map[string]any)
	assert.Equal(t, mdprogress.Title, progress["title"])

	w, env = do(t, r, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/reset", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "idle", env.Data["state"])
}

func TestUnknownSession(t *testing.T) {
	r := newEngine(t, tomato, nil)

	w, _ := do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, submitRequest(t, "missing", "", "image/png", 10))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/scans/scan_missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreviewAndCORS(t *testing.T) {
	r := newEngine(t, tomato, nil)
	id := createSession(t, r)

	w, _ := do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/preview", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, _ = do(t, r, submitRequest(t, id, "", "image/png", 3))
	w, env := do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/preview", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data:image/png;base64,AQEB", env.Data["preview_uri"])

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
