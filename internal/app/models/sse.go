package models

// HeartbeatEvent 无字段
type HeartbeatEvent struct{}

// SessionEvent 任务创建后推送，客户端据此取消任务
type SessionEvent struct {
	TaskID string `json:"taskId"`
	Query  string `json:"query"`
}

// SetAnswerEvent 整体替换当前回答
type SetAnswerEvent struct {
	Markdown string `json:"markdown"`
	Answered bool   `json:"answered"`
	Final    bool   `json:"final"`
}

// SetReferenceEvent 整体替换引用列表
type SetReferenceEvent struct {
	TaskID string     `json:"taskId"`
	List   []Citation `json:"list"`
}

// ErrorEvent 只携带通用提示
type ErrorEvent struct {
	Message string `json:"message"`
}
