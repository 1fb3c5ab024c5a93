package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"weread-agent/internal/app/models"
	"weread-agent/pkg/config"
)

var tracer = otel.Tracer("weread-agent/services")

// ErrCancelled Run 在会话被取消时返回
var ErrCancelled = errors.New("weread: session cancelled")

const opInit = "init"

// Exchanger 发送一次问书请求并返回成功的原始响应体，*RecoveryPolicy 实现了它
type Exchanger interface {
	Exchange(ctx context.Context, body []byte) ([]byte, error)
}

type (
	UpdateFunc func(view models.MergedView)
	ErrorFunc  func(err error)
)

type PollerConfig struct {
	APIVersion int
	// RequestInterval 响应未给出 request_interval 时的轮询间隔
	RequestInterval time.Duration
	// MaxRequestInterval 服务端给出的 request_interval 的上限
	MaxRequestInterval time.Duration
}

// SessionPoller 驱动单个问题从提交到结束的 请求/轮询/合并 循环。
// 每个会话在自己的 goroutine 里顺序执行，会话之间不共享可变状态。
type SessionPoller struct {
	exchanger Exchanger
	cfg       PollerConfig
}

func NewSessionPoller(exchanger Exchanger, cfg PollerConfig) *SessionPoller {
	if cfg.RequestInterval < 0 {
		cfg.RequestInterval = 0
	}
	if cfg.RequestInterval == 0 {
		cfg.RequestInterval = config.DefaultRequestInterval
	}
	if cfg.MaxRequestInterval <= 0 {
		cfg.MaxRequestInterval = config.MaxRequestInterval
	}
	if cfg.RequestInterval > cfg.MaxRequestInterval {
		cfg.RequestInterval = cfg.MaxRequestInterval
	}
	return &SessionPoller{exchanger: exchanger, cfg: cfg}
}

// Session 一次问书会话。状态只会向前推进。
type Session struct {
	ID    string
	Query string

	mu        sync.RWMutex
	sessionID string
	state     models.SessionState
	chunks    int
}

type SessionSnapshot struct {
	ID        string              `json:"id"`
	SessionID string              `json:"session_id,omitempty"`
	Query     string              `json:"query"`
	State     models.SessionState `json:"state"`
	Chunks    int                 `json:"chunks"`
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionSnapshot{
		ID:        s.ID,
		SessionID: s.sessionID,
		Query:     s.Query,
		State:     s.state,
		Chunks:    s.chunks,
	}
}

func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

func (s *Session) State() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setSessionID(id string) {
	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()
}

func (s *Session) setState(state models.SessionState) {
	s.mu.Lock()
	if !s.state.Terminal() {
		s.state = state
	}
	s.mu.Unlock()
}

func (s *Session) incChunks() {
	s.mu.Lock()
	s.chunks++
	s.mu.Unlock()
}

// CancelHandle 会话句柄。
//
// 回调在会话 goroutine 上投递，投递前先在 mu 下做取消检查。通过检查即视为该次回调
// 已经开始：它可能在 Cancel 返回之后才真正进入回调函数，并会执行完。Cancel 不等待
// 回调返回，因此可以在回调内部调用。Cancel 返回后，不会再有投递通过取消检查。
type CancelHandle struct {
	session   *Session
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
	mu        sync.Mutex
	done      chan struct{}
	err       error
}

func newCancelHandle(ctx context.Context, query string) *CancelHandle {
	ctx, cancel := context.WithCancel(ctx)
	return &CancelHandle{
		session: &Session{
			ID:    uuid.NewString(),
			Query: query,
			state: models.SessionInitializing,
		},
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Cancel 可重复调用；会话已结束时没有任何效果
func (h *CancelHandle) Cancel() {
	h.cancelled.Store(true)
	h.cancel()
	// 与 deliver 的检查互斥：此后的检查一定能看到取消标记
	h.mu.Lock()
	h.mu.Unlock()
}

func (h *CancelHandle) Done() <-chan struct{} {
	return h.done
}

func (h *CancelHandle) Session() *Session {
	return h.session
}

func (h *CancelHandle) State() models.SessionState {
	return h.session.State()
}

// Err 会话结束后的结果：完成为 nil，取消为 ErrCancelled，失败为 *QueryError
func (h *CancelHandle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

func (h *CancelHandle) isCancelled() bool {
	return h.cancelled.Load() || h.ctx.Err() != nil
}

// deliver 在未取消时执行回调，返回是否执行。fn 在锁外执行，回调内调用 Cancel 不会死锁。
func (h *CancelHandle) deliver(fn func()) bool {
	h.mu.Lock()
	if h.isCancelled() {
		h.mu.Unlock()
		return false
	}
	h.mu.Unlock()
	fn()
	return true
}

// Start 异步启动一个会话。ctx 被取消等同于调用 Cancel。
func (p *SessionPoller) Start(ctx context.Context, query string, onUpdate UpdateFunc, onError ErrorFunc) (*CancelHandle, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	h := newCancelHandle(ctx, query)
	go func() {
		defer h.cancel()
		defer close(h.done)
		h.err = p.run(h, onUpdate, onError)
	}()
	return h, nil
}

// Run 同步执行一个会话直到结束
func (p *SessionPoller) Run(ctx context.Context, query string, onUpdate UpdateFunc, onError ErrorFunc) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	h := newCancelHandle(ctx, query)
	defer h.cancel()
	defer close(h.done)
	h.err = p.run(h, onUpdate, onError)
	return h.err
}

func (p *SessionPoller) run(h *CancelHandle, onUpdate UpdateFunc, onError ErrorFunc) error {
	s := h.session
	ctx, span := tracer.Start(h.ctx, "weread.session", trace.WithAttributes(
		attribute.String("weread.task_id", s.ID),
	))
	defer span.End()

	logger := log.WithFields(log.Fields{"task": s.ID})
	logger.WithField("query", s.Query).Info("weread session started")

	cancelled := func() error {
		s.setState(models.SessionCancelled)
		span.SetAttributes(attribute.String("weread.state", string(models.SessionCancelled)))
		logger.Info("weread session cancelled")
		return ErrCancelled
	}
	fail := func(err error) error {
		s.setState(models.SessionFailed)
		spanError(span, err)
		logger.WithError(err).WithField("kind", KindOf(err)).Warn("weread session failed")
		h.deliver(func() {
			if onError != nil {
				onError(err)
			}
		})
		return err
	}

	acc := NewAccumulator()

	chunk, sid, err := p.poll(ctx, s.Query, "")
	if h.isCancelled() {
		return cancelled()
	}
	if err != nil {
		return fail(err)
	}
	if sid == "" {
		return fail(newQueryError(KindSessionInit, opInit, fmt.Errorf("first response carries no session_id")))
	}
	s.setSessionID(sid)
	s.setState(models.SessionPolling)
	span.SetAttributes(attribute.String("weread.session_id", sid))

	for {
		view := acc.Apply(chunk)
		s.incChunks()
		delivered := h.deliver(func() {
			if onUpdate != nil {
				onUpdate(view)
			}
		})
		if !delivered {
			return cancelled()
		}
		if !chunk.HasMore {
			s.setState(models.SessionCompleted)
			span.SetAttributes(attribute.Int("weread.chunks", acc.Chunks()))
			logger.WithFields(log.Fields{"chunks": acc.Chunks(), "answered": view.Answered}).Info("weread session completed")
			return nil
		}

		interval := p.pacing(chunk)
		logger.WithField("interval", interval).Debug("weread session waiting for next poll")
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return cancelled()
		case <-timer.C:
		}
		if h.isCancelled() {
			return cancelled()
		}

		chunk, sid, err = p.poll(ctx, s.Query, s.SessionID())
		if h.isCancelled() {
			return cancelled()
		}
		if err != nil {
			return fail(err)
		}
		if sid != "" && sid != s.SessionID() {
			s.setSessionID(sid)
		}
	}
}

func (p *SessionPoller) poll(ctx context.Context, query, sessionID string) (*models.Chunk, string, error) {
	payload := models.QueryRequest{Query: query}
	if sessionID != "" {
		payload.SessionID = sessionID
		payload.APIVersion = p.cfg.APIVersion
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", newQueryError(KindProtocol, "encode", err)
	}

	raw, err := p.exchanger.Exchange(ctx, body)
	if err != nil {
		return nil, "", err
	}
	return ExtractChunk(raw)
}

// pacing 先按毫秒比较上限再换算，过大的 request_interval 不会溢出成负数
func (p *SessionPoller) pacing(chunk *models.Chunk) time.Duration {
	if chunk.PacingMillis == nil || *chunk.PacingMillis < 0 {
		return p.cfg.RequestInterval
	}
	if *chunk.PacingMillis >= p.cfg.MaxRequestInterval.Milliseconds() {
		return p.cfg.MaxRequestInterval
	}
	return time.Duration(*chunk.PacingMillis) * time.Millisecond
}
