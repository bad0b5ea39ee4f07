package mdintake

import "sync"

// PreviewRegistry 会话预览登记表
// 每个会话只保留一份有效预览，被替换或会话重置时释放
type PreviewRegistry struct {
	mu       sync.RWMutex
	previews map[string]string
}

// NewPreviewRegistry 创建预览登记表
func NewPreviewRegistry() *PreviewRegistry {
	return &PreviewRegistry{previews: make(map[string]string)}
}

// Put 登记新预览，返回是否释放了旧预览
func (r *PreviewRegistry) Put(sessionID, uri string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, released := r.previews[sessionID]
	r.previews[sessionID] = uri
	return released
}

// Get 读取会话当前预览
func (r *PreviewRegistry) Get(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uri, ok := r.previews[sessionID]
	return uri, ok
}

// Release 释放会话预览，不存在时为空操作
func (r *PreviewRegistry) Release(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.previews[sessionID]
	delete(r.previews, sessionID)
	return ok
}

// Live 当前持有的预览数量
func (r *PreviewRegistry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.previews)
}
