package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"weread-agent/internal/app/models"
)

const (
	testQueryURL    = "http://weread.test/web/ai/query_session_id"
	testLivenessURL = "http://weread.test/"
)

type scriptedResponse struct {
	status int
	body   string
	err    error
	// block 为 true 时请求一直挂起，直到 ctx 被取消
	block bool
}

func ok(body string) scriptedResponse {
	return scriptedResponse{status: http.StatusOK, body: body}
}

// scriptedTransport 按顺序返回预设响应，并记录收到的请求
type scriptedTransport struct {
	mu       sync.Mutex
	queries  []scriptedResponse
	probes   []scriptedResponse
	requests []*TransportRequest
	inFlight chan struct{}
}

func newScriptedTransport(queries ...scriptedResponse) *scriptedTransport {
	return &scriptedTransport{queries: queries, inFlight: make(chan struct{}, 16)}
}

func (t *scriptedTransport) withProbes(probes ...scriptedResponse) *scriptedTransport {
	t.probes = probes
	return t
}

func (t *scriptedTransport) Send(ctx context.Context, r *TransportRequest) (*TransportResponse, error) {
	t.mu.Lock()
	t.requests = append(t.requests, r)
	var next scriptedResponse
	var queue *[]scriptedResponse
	if r.URL == testLivenessURL {
		queue = &t.probes
	} else {
		queue = &t.queries
	}
	if len(*queue) == 0 {
		t.mu.Unlock()
		return nil, &NetworkError{Method: r.Method, URL: r.URL, Err: fmt.Errorf("unexpected request")}
	}
	next, *queue = (*queue)[0], (*queue)[1:]
	t.mu.Unlock()

	if next.block {
		t.inFlight <- struct{}{}
		<-ctx.Done()
		return nil, &NetworkError{Method: r.Method, URL: r.URL, Err: ctx.Err()}
	}
	if next.err != nil {
		return nil, &NetworkError{Method: r.Method, URL: r.URL, Err: next.err}
	}
	return &TransportResponse{Status: next.status, Body: []byte(next.body)}, nil
}

func (t *scriptedTransport) sent() []*TransportRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*TransportRequest, len(t.requests))
	copy(out, t.requests)
	return out
}

func (t *scriptedTransport) sentTo(url string) []*TransportRequest {
	var out []*TransportRequest
	for _, r := range t.sent() {
		if r.URL == url {
			out = append(out, r)
		}
	}
	return out
}

func newTestRecovery(transport Transport) *RecoveryPolicy {
	return NewRecoveryPolicy(transport, StaticCredentials{Cookie: "wr_skey=test"}, RecoveryConfig{
		QueryURL:    testQueryURL,
		LivenessURL: testLivenessURL,
	})
}

func newTestPoller(transport Transport) *SessionPoller {
	return NewSessionPoller(newTestRecovery(transport), PollerConfig{
		APIVersion:      1,
		RequestInterval: time.Millisecond,
	})
}

// recorder 收集回调，回调本身由会话 goroutine 顺序调用
type recorder struct {
	mu      sync.Mutex
	views   []models.MergedView
	errs    []error
	updated chan struct{}
}

func newRecorder() *recorder {
	return &recorder{updated: make(chan struct{}, 64)}
}

func (r *recorder) onUpdate(view models.MergedView) {
	r.mu.Lock()
	r.views = append(r.views, view)
	r.mu.Unlock()
	r.updated <- struct{}{}
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recorder) snapshot() ([]models.MergedView, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MergedView(nil), r.views...), append([]error(nil), r.errs...)
}

func waitDone(h *CancelHandle) bool {
	select {
	case <-h.Done():
		return true
	case <-time.After(5 * time.Second):
		return false
	}
}
