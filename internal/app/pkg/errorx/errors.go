package errorx

import (
	"errors"
	"net/http"
)

// 业务错误
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("analysis already in progress")
	ErrScanNotFound    = errors.New("scan not found")
	ErrReportDisabled  = errors.New("report export is not configured")
	ErrNoCandidate     = errors.New("no file provided")
)

// 机器可读错误码（与分析服务保持一致）
const (
	CodeNotAPlant       = "NOT_A_PLANT"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeServerBusy      = "SERVER_BUSY"
	CodeModelError      = "MODEL_ERROR"
	CodeGeminiTimeout   = "GEMINI_TIMEOUT"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNetworkError    = "NETWORK_ERROR"
	CodeTimeout         = "TIMEOUT"
	CodeMalformed       = "MALFORMED_RESPONSE"
	CodeUnknown         = "UNKNOWN"
)

// BusinessError 业务错误结构
type BusinessError struct {
	Code     int    // HTTP 状态码
	ErrCode  string // 机器可读错误码
	Message  string
	Details  []ErrorDetail
	Internal error
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Path string
	Info string
}

// Error 实现 error 接口
func (e *BusinessError) Error() string {
	return e.Message
}

// Unwrap 支持 errors.Is / errors.As
func (e *BusinessError) Unwrap() error {
	return e.Internal
}

// NewBusinessError 创建业务错误
func NewBusinessError(code int, message string) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
	}
}

// WithErrCode 附加机器可读错误码
func (e *BusinessError) WithErrCode(errCode string) *BusinessError {
	e.ErrCode = errCode
	return e
}

// HTTPStatus 将错误映射为 HTTP 状态码
func HTTPStatus(err error) int {
	var be *BusinessError
	if errors.As(err, &be) && be.Code != 0 {
		return be.Code
	}
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrScanNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, ErrReportDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrNoCandidate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
