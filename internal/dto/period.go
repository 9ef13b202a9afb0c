package dto

// ── 申请期模块 DTO ──

// SetPeriodRequest 设置申请期请求（日期格式 YYYY-MM-DD）
type SetPeriodRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// PeriodResponse 申请期响应
type PeriodResponse struct {
	ID          int64   `json:"id"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	IsActive    bool    `json:"is_active"`
	PublishedAt *string `json:"published_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// CurrentPeriodResponse 当前申请期状态
// Period 为 nil 表示没有 active 的申请期；IsActive 按“今天”重新计算
type CurrentPeriodResponse struct {
	Period   *PeriodResponse `json:"period"`
	IsActive bool            `json:"is_active"`
}
