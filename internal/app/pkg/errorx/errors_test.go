package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"session missing", ErrSessionNotFound, http.StatusNotFound},
		{"wrapped scan missing", fmt.Errorf("load: %w", ErrScanNotFound), http.StatusNotFound},
		{"busy", ErrSessionBusy, http.StatusConflict},
		{"report disabled", ErrReportDisabled, http.StatusServiceUnavailable},
		{"business", NewBusinessError(http.StatusRequestEntityTooLarge, "too big"), http.StatusRequestEntityTooLarge},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestBusinessErrorUnwrap(t *testing.T) {
	be := &BusinessError{Code: 400, Message: "bad", Internal: ErrNoCandidate}
	assert.True(t, errors.Is(be, ErrNoCandidate))
	assert.Equal(t, "INVALID_FORMAT", NewBusinessError(400, "x").WithErrCode(CodeInvalidFormat).ErrCode)
}
