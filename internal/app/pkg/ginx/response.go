package ginx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorx"
)

// CodeProcessing Smart Wait 超时时返回的业务码
const CodeProcessing = 3001

// Response 统一响应结构
type Response struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data,omitempty"`
}

// Meta 元数据
type Meta struct {
	Code      int           `json:"code" example:"200"`
	Message   string        `json:"message" example:"OK"`
	ErrorCode string        `json:"error_code,omitempty" example:"FILE_TOO_LARGE"`
	Details   []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Path string `json:"path" example:"file"`
	Info string `json:"info" example:"file is required"`
}

// ProcessingData Smart Wait 超时返回的数据
type ProcessingData struct {
	SessionID string      `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	State     string      `json:"state" example:"awaiting-result"`
	PollURL   string      `json:"poll_url" example:"/api/v1/sessions/550e8400-e29b-41d4-a716-446655440000"`
	Progress  interface{} `json:"progress,omitempty"`
}

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Meta: Meta{
			Code:    200,
			Message: "OK",
		},
		Data: data,
	})
}

// Error 错误响应（400/500）
func Error(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, Response{
		Meta: Meta{
			Code:    httpCode,
			Message: message,
		},
	})
}

// ErrorWithCode 带机器可读错误码的错误响应，data 可携带页面需要的上下文（如 notice）
func ErrorWithCode(c *gin.Context, httpCode int, message, errCode string, data interface{}) {
	c.JSON(httpCode, Response{
		Meta: Meta{
			Code:      httpCode,
			Message:   message,
			ErrorCode: errCode,
		},
		Data: data,
	})
}

// ErrorWithDetails 带详情的错误响应
func ErrorWithDetails(c *gin.Context, httpCode int, message string, details []ErrorDetail) {
	c.JSON(httpCode, Response{
		Meta: Meta{
			Code:    httpCode,
			Message: message,
			Details: details,
		},
	})
}

// FromError 根据错误类型选择状态码
func FromError(c *gin.Context, err error) {
	var be *errorx.BusinessError
	if errors.As(err, &be) {
		ErrorWithCode(c, errorx.HTTPStatus(err), be.Message, be.ErrCode, nil)
		return
	}
	Error(c, errorx.HTTPStatus(err), err.Error())
}

// Processing 处理中响应（3001），用于 Smart Wait 超时场景
func Processing(c *gin.Context, data ProcessingData) {
	c.JSON(http.StatusOK, Response{
		Meta: Meta{
			Code:    CodeProcessing,
			Message: "Scan is being analyzed, please poll for results",
		},
		Data: data,
	})
}

// BadRequest 400 错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// BadRequestWithValidation 400 错误（带验证详情）
func BadRequestWithValidation(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]ErrorDetail, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			details = append(details, ErrorDetail{
				Path: fieldErr.Field(),
				Info: getValidationErrorMessage(fieldErr),
			})
		}
		ErrorWithDetails(c, http.StatusBadRequest, "Validation failed", details)
		return
	}

	BadRequest(c, err.Error())
}

// NotFound 404 错误
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError 500 错误
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// getValidationErrorMessage 根据验证错误类型返回友好的错误消息
func getValidationErrorMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fieldErr.Field() + " is required"
	case "min":
		return fieldErr.Field() + " must be at least " + fieldErr.Param()
	case "max":
		return fieldErr.Field() + " must be at most " + fieldErr.Param()
	case "uuid4", "uuid":
		return fieldErr.Field() + " must be a valid UUID"
	default:
		return fieldErr.Field() + " is invalid"
	}
}
