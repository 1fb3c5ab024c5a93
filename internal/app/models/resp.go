package models

type RespInfo struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type RespValue struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Err  string      `json:"err,omitempty"`
	Data interface{} `json:"data"`
}
