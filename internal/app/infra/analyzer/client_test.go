package analyzer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithBaseURL(server.URL), WithHTTPClient(server.Client())}, opts...)
	client, err := NewClient(opts...)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}

func TestPredictSendsSingleImagePart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("expert_mode"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["file"]
		require.Len(t, files, 1)
		assert.Equal(t, "leaf.jpg", files[0].Filename)
		assert.Equal(t, "image/jpeg", files[0].Header.Get("Content-Type"))

		f, err := files[0].Open()
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, []byte{1, 2, 3}, data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"scan_id": "scan_abc",
			"prediction": {"crop": "Tomato", "disease": "Early Blight", "confidence": 0.82,
				"top_k": [{"label": "Early Blight", "confidence": 0.82}, {"label": "Late Blight", "confidence": 0.1}]},
			"ai_analysis": {"disease_name": "Early Blight", "severity": "Medium", "cause": "Fungus",
				"immediate_action": "Remove leaves", "treatment_plan": ["Spray"], "prevention": "Rotate crops",
				"estimated_crop_loss_risk": "10%", "consult_expert": false},
			"risk_index": 0.4,
			"tier": "MODERATE"
		}`))
	}, WithAPIKey("secret"), WithExpertMode(true))

	resp, err := client.Predict(context.Background(), "leaf.jpg", "image/jpeg", []byte{1, 2, 3})
	require.NoError(t, err)
	require.NotNil(t, resp.Prediction)
	assert.Equal(t, "Tomato", resp.Prediction.Crop)
	assert.InDelta(t, 0.82, *resp.Prediction.Confidence, 1e-9)
	assert.Len(t, resp.Prediction.TopK, 2)
	assert.Equal(t, "Medium", resp.AIAnalysis.Severity)
	assert.Equal(t, "scan_abc", resp.ScanID)
	assert.InDelta(t, 0.4, *resp.RiskIndex, 1e-9)
}

func TestPredictErrorPayloads(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
		code    string
	}{
		{"flat", http.StatusTooManyRequests, `{"detail":"Too many requests. Please wait before retrying.","code":"RATE_LIMITED"}`, "Too many requests. Please wait before retrying.", "RATE_LIMITED"},
		{"nested", http.StatusRequestEntityTooLarge, `{"detail":{"detail":"File too large. Maximum size is 5MB.","code":"FILE_TOO_LARGE"}}`, "File too large. Maximum size is 5MB.", "FILE_TOO_LARGE"},
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, "field required", "VALIDATION_ERROR"},
		{"empty body", http.StatusServiceUnavailable, ``, "Service Unavailable", "SERVER_BUSY"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway", "INTERNAL_ERROR"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(c.status)
				_, _ = w.Write([]byte(c.body))
			})

			_, err := client.Predict(context.Background(), "leaf.png", "image/png", []byte{1})
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, c.status, apiErr.Status)
			assert.Equal(t, c.message, apiErr.Message)
			assert.Equal(t, c.code, apiErr.Code)
		})
	}
}

func TestPredictMalformedResponse(t *testing.T) {
	for _, body := range []string{"", "   ", "not json"} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		_, err := client.Predict(context.Background(), "leaf.png", "image/png", []byte{1})
		assert.ErrorIs(t, err, ErrMalformedResponse, "body %q", body)
	}
}

func TestPredictTimeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	_, err := client.Predict(context.Background(), "leaf.png", "image/png", []byte{1})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestTimeoutAboveDefaultIsHonored(t *testing.T) {
	client, err := NewClient(WithBaseURL("http://analyzer.local"), WithTimeout(3*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, client.httpClient.Timeout)

	var deadline time.Time
	client.httpClient.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
		var ok bool
		deadline, ok = r.Context().Deadline()
		require.True(t, ok)
		return nil, errors.New("stop")
	})

	start := time.Now()
	_, err = client.Predict(context.Background(), "leaf.png", "image/png", []byte{1})
	require.Error(t, err)
	assert.WithinDuration(t, start.Add(3*time.Minute), deadline, 5*time.Second)
}

func TestPredictRejectsEmptyData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := client.Predict(context.Background(), "leaf.png", "image/png", nil)
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	healthy := true
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	assert.NoError(t, client.Ping(context.Background()))
	healthy = false
	assert.Error(t, client.Ping(context.Background()))
}
