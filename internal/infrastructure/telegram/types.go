package telegram

import "time"

// NotificationMessage 执行结果通知载荷。
// Type为 execution_completed / execution_failed / execution_stopped，
// 决定推送消息的格式模板。
type NotificationMessage struct {
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Content     string                 `json:"content"`
	ExecutionID string                 `json:"execution_id,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}
