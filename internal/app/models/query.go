package models

// 问书接口返回的 data 条目类型
const (
	ItemTypeAnswer    = 8 // markdown 回答
	ItemTypeCitations = 9 // 书籍引用
)

// NoAnswerMarker 会话结束仍没有回答时展示的内容
const NoAnswerMarker = "No answer found"

// QueryRequest 问书接口请求体
type QueryRequest struct {
	Query      string `json:"query"`
	SessionID  string `json:"sessionId,omitempty"`
	APIVersion int    `json:"apiVersion,omitempty"`
}

// QueryResponse 问书接口响应体
type QueryResponse struct {
	ErrCode         int         `json:"errCode"`
	SessionID       string      `json:"session_id,omitempty"`
	HasMore         bool        `json:"has_more"`
	RequestInterval *int64      `json:"request_interval,omitempty"`
	Data            []QueryItem `json:"data,omitempty"`
}

// QueryItem data 中的单个条目，按 Type 区分
type QueryItem struct {
	Type        int          `json:"type"`
	Markdown    string       `json:"markdown,omitempty"`
	AnchorDatas []AnchorData `json:"anchor_datas,omitempty"`
}

type AnchorData struct {
	Anchor     string `json:"anchor"`
	Title      string `json:"title"`
	AnchorText string `json:"anchorText"`
	WebURL     string `json:"web_url"`
}

// Citation 归一化后的引用
type Citation struct {
	Reference string `json:"reference"`
	Label     string `json:"label"`
	Excerpt   string `json:"excerpt"`
	TargetURL string `json:"targetUrl"`
}

// Chunk 单次轮询响应解码后的结果。Answer 为 nil、HasCitations 为 false
// 表示本次响应没有携带对应内容。
type Chunk struct {
	Answer       *string
	Citations    []Citation
	HasCitations bool
	HasMore      bool
	PacingMillis *int64
}

// MergedView 当前会话对外可见的累计结果
type MergedView struct {
	AnswerText string     `json:"answer"`
	Answered   bool       `json:"answered"`
	Citations  []Citation `json:"citations"`
	Final      bool       `json:"final"`
}

type SessionState string

const (
	SessionInitializing SessionState = "initializing"
	SessionPolling      SessionState = "polling"
	SessionCompleted    SessionState = "completed"
	SessionCancelled    SessionState = "cancelled"
	SessionFailed       SessionState = "failed"
)

// Terminal 是否为终止状态
func (s SessionState) Terminal() bool {
	switch s {
	case SessionCompleted, SessionCancelled, SessionFailed:
		return true
	default:
		return false
	}
}
