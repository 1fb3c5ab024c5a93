package models

import "time"

// CachedAnswer 已完成会话的最终视图，按问题摘要缓存
type CachedAnswer struct {
	Query     string     `json:"query"`
	SessionID string     `json:"session_id"`
	View      MergedView `json:"view"`
	CachedAt  time.Time  `json:"cached_at"`
}
