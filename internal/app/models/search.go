package models

// SearchRequest 搜索请求，GET 走 query string，POST 走 JSON
type SearchRequest struct {
	Query   string `json:"query" form:"query" binding:"required"`
	NoCache bool   `json:"no_cache" form:"no_cache"`
}
