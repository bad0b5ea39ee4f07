package request

// SubmitScanQuery 提交扫描的查询参数
type SubmitScanQuery struct {
	// Wait Smart Wait 秒数，缺省使用服务端配置
	Wait *int `form:"wait" binding:"omitempty,min=0,max=60" example:"8"`
	// Disabled 为 true 时分析进行中拒绝新提交（对应上传控件禁用）
	Disabled bool `form:"disabled" example:"false"`
}

// WatchQuery 长轮询参数
type WatchQuery struct {
	Timeout int `form:"timeout,default=25" binding:"min=1,max=60" example:"25"`
}

// HistoryQuery 历史分页参数
type HistoryQuery struct {
	Page  int `form:"page,default=1" binding:"min=1" example:"1"`
	Limit int `form:"limit,default=20" binding:"min=1,max=100" example:"20"`
}

// ScanIDURI 扫描ID路径参数
type ScanIDURI struct {
	ScanID string `uri:"scan_id" binding:"required,max=64" example:"scan_1790000000000000000"`
}
