package etscan

import "time"

// UploadCandidate 用户选择的待分析图片
type UploadCandidate struct {
	Filename   string
	Size       int64
	MIMEType   string
	Data       []byte
	PreviewURI string
}

// Notice 短暂提示（如校验失败），到期后自动消失，不阻塞后续提交
type Notice struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active 提示在 now 时刻是否仍然可见
func (n *Notice) Active(now time.Time) bool {
	return n != nil && now.Before(n.ExpiresAt)
}
