package errorutil

import (
	"errors"
	"fmt"
)

// Error 报告任务错误（包含可重试标记）
type Error struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	DevDetails string `json:"dev_details,omitempty"`
	cause      error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return e.Message
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.cause
}

// Retriable 创建可重试错误（存储不可用、磁盘写入失败等）
func Retriable(message string, cause error) *Error {
	return &Error{
		Code:       500,
		Message:    message,
		Retryable:  true,
		DevDetails: details(cause),
		cause:      cause,
	}
}

// NonRetriable 创建不可重试错误（消息格式错误、扫描记录不存在等）
func NonRetriable(message string, cause error) *Error {
	return &Error{
		Code:       400,
		Message:    message,
		Retryable:  false,
		DevDetails: details(cause),
		cause:      cause,
	}
}

// IsRetryable 判断错误是否可以重新投递
// 未分类的错误按可重试处理，交给队列的 tries 上限兜底
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return true
}

func details(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%+v", err)
}
