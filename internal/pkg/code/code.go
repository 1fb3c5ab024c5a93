package code

// 接口返回码
const (
	Success       = 0
	InvalidParams = 400
	NotFound      = 404
	TooManySearch = 429
	ServerError   = 500
)

const (
	MsgSuccess       = "success"
	MsgInvalidParams = "参数错误"
	MsgNotFound      = "记录不存在"
	MsgTooManySearch = "搜索过于频繁，请稍后再试"
	MsgServerError   = "服务内部错误"

	MsgTaskNotRunning  = "任务已结束"
	MsgHistoryDisabled = "未启用历史记录"

	// MsgSearchFailed 面向用户的通用失败提示，不暴露内部错误码
	MsgSearchFailed = "Failed to get response from WeRead AI"
)
