package mdintake

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/entity/etscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorx"
)

const (
	// DefaultMaxBytes 默认文件大小上限 5MB
	DefaultMaxBytes int64 = 5 * 1024 * 1024
	// DefaultNoticeTTL 校验提示默认展示时长
	DefaultNoticeTTL = 3 * time.Second

	imagePrefix = "image/"
)

const (
	MsgInvalidType = "Invalid file type. Please upload an image format (JPG, PNG)."
	MsgEmptyFile   = "Uploaded file is empty."
)

// Upload 用户提交的原始文件
type Upload struct {
	Filename string
	Size     int64 // 声明大小，未知时为 -1
	MIMEType string
	Body     io.Reader
}

// RejectionError 本地校验失败，不会触达分析服务
type RejectionError struct {
	Code    string
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

// IntakeModule 文件接收模块
// 职责：
// 1. 校验声明类型与大小
// 2. 读取文件并生成本地预览（data URI）
// 3. 校验失败时生成限时提示
type IntakeModule struct {
	maxBytes  int64
	noticeTTL time.Duration
}

// NewIntakeModule 创建文件接收模块，参数非正时使用默认值
func NewIntakeModule(maxBytes int64, noticeTTL time.Duration) *IntakeModule {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if noticeTTL <= 0 {
		noticeTTL = DefaultNoticeTTL
	}
	return &IntakeModule{maxBytes: maxBytes, noticeTTL: noticeTTL}
}

// MaxBytes 文件大小上限
func (m *IntakeModule) MaxBytes() int64 {
	return m.maxBytes
}

// Validate 只校验元信息，不读取内容
func (m *IntakeModule) Validate(upload *Upload) error {
	mimeType := strings.ToLower(strings.TrimSpace(upload.MIMEType))
	if !strings.HasPrefix(mimeType, imagePrefix) {
		return &RejectionError{Code: errorx.CodeInvalidFormat, Message: MsgInvalidType}
	}
	if upload.Size > m.maxBytes {
		return m.tooLarge()
	}
	if upload.Size == 0 {
		return &RejectionError{Code: errorx.CodeInvalidFormat, Message: MsgEmptyFile}
	}
	return nil
}

// Accept 校验并读取文件，生成候选对象
// 最多读取 maxBytes+1 字节，声明大小偏小的文件同样会被拒绝
func (m *IntakeModule) Accept(upload *Upload) (*etscan.UploadCandidate, error) {
	if err := m.Validate(upload); err != nil {
		return nil, err
	}
	if upload.Body == nil {
		return nil, &RejectionError{Code: errorx.CodeInvalidFormat, Message: MsgEmptyFile}
	}

	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(upload.Body, m.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload failed: %w", err)
	}
	if n > m.maxBytes {
		return nil, m.tooLarge()
	}
	if n == 0 {
		return nil, &RejectionError{Code: errorx.CodeInvalidFormat, Message: MsgEmptyFile}
	}

	mimeType := strings.ToLower(strings.TrimSpace(upload.MIMEType))
	data := buf.Bytes()
	return &etscan.UploadCandidate{
		Filename:   upload.Filename,
		Size:       n,
		MIMEType:   mimeType,
		Data:       data,
		PreviewURI: PreviewURI(mimeType, data),
	}, nil
}

// NewNotice 将校验错误转换为限时提示
func (m *IntakeModule) NewNotice(err error, now time.Time) *etscan.Notice {
	notice := &etscan.Notice{
		Code:      errorx.CodeInvalidFormat,
		Message:   err.Error(),
		ExpiresAt: now.Add(m.noticeTTL),
	}
	var rej *RejectionError
	if errors.As(err, &rej) {
		notice.Code = rej.Code
		notice.Message = rej.Message
	}
	return notice
}

func (m *IntakeModule) tooLarge() *RejectionError {
	return &RejectionError{
		Code:    errorx.CodeFileTooLarge,
		Message: fmt.Sprintf("File too large. Maximum size is %s.", formatSize(m.maxBytes)),
	}
}

// PreviewURI 生成 data URI 预览
func PreviewURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func formatSize(n int64) string {
	const mb = 1024 * 1024
	const kb = 1024
	switch {
	case n%mb == 0:
		return fmt.Sprintf("%dMB", n/mb)
	case n%kb == 0:
		return fmt.Sprintf("%dKB", n/kb)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
