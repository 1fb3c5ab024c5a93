package services

import (
	"context"
	"net/http"
	"time"

	"github.com/imroc/req/v3"
)

// TransportRequest 单次请求
type TransportRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// TransportResponse 单次响应，只保留状态码和原始响应体
type TransportResponse struct {
	Status int
	Body   []byte
}

// Success 状态码是否在 2xx 范围
func (r *TransportResponse) Success() bool {
	return r.Status >= 200 && r.Status < 300
}

// Transport 执行单次请求；ctx 取消时应尽快返回
type Transport interface {
	Send(ctx context.Context, r *TransportRequest) (*TransportResponse, error)
}

// HTTPTransport 基于 req 的实现，自带 cookie jar，探活请求刷新的 cookie 会用于后续请求
type HTTPTransport struct {
	client *req.Client
}

var _ Transport = (*HTTPTransport)(nil)

func NewHTTPTransport(timeout time.Duration, userAgent string) *HTTPTransport {
	client := req.C().
		SetTimeout(timeout).
		SetCommonHeader("Content-Type", "application/json")
	if userAgent != "" {
		client.SetUserAgent(userAgent)
	}
	return &HTTPTransport{client: client}
}

func (t *HTTPTransport) Send(ctx context.Context, r *TransportRequest) (*TransportResponse, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	request := t.client.R().SetContext(ctx).SetHeaders(r.Headers)
	if len(r.Body) > 0 {
		request.SetBodyBytes(r.Body)
	}

	resp, err := request.Send(method, r.URL)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: r.URL, Err: err}
	}

	body, err := resp.ToBytes()
	if err != nil {
		return nil, &NetworkError{Method: method, URL: r.URL, Err: err}
	}
	return &TransportResponse{Status: resp.StatusCode, Body: body}, nil
}
