package dto

// 付费墙返回的提示信号
const (
	SignalLoginRequired        = "login_required"
	SignalSubscriptionRequired = "subscription_required"
)

// ContentAccess 内容访问结果：Full 为 true 时返回完整正文，否则返回预览和信号
type ContentAccess struct {
	ID          int64  `json:"id"`
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Full        bool   `json:"full"`
	Body        string `json:"body,omitempty"`
	Preview     string `json:"preview,omitempty"`
	Signal      string `json:"signal,omitempty"`
	ViewCount   int    `json:"view_count"`
	FreeViews   *int   `json:"free_views_remaining,omitempty"`
}
