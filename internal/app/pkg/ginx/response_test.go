package ginx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorx"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestFromErrorBusinessError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, errorx.NewBusinessError(http.StatusBadRequest, "Invalid file type").WithErrCode(errorx.CodeInvalidFormat))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "Invalid file type", resp.Meta.Message)
	assert.Equal(t, errorx.CodeInvalidFormat, resp.Meta.ErrorCode)
}

func TestFromErrorSentinel(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, fmt.Errorf("get: %w", errorx.ErrSessionNotFound))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 404, decode(t, w).Meta.Code)
}

func TestProcessing(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Processing(c, ProcessingData{SessionID: "s1", State: "awaiting-result", PollURL: "/api/v1/sessions/s1"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, CodeProcessing, resp.Meta.Code)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "/api/v1/sessions/s1", data["poll_url"])
}

func TestBadRequestWithValidation(t *testing.T) {
	type query struct {
		Page int `form:"page" binding:"min=1"`
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=0", nil)

	var q query
	err := c.ShouldBindQuery(&q)
	require.Error(t, err)
	BadRequestWithValidation(c, err)

	resp := decode(t, w)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, resp.Meta.Details, 1)
	assert.Equal(t, "Page must be at least 1", resp.Meta.Details[0].Info)
}
