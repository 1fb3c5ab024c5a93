package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"weread-agent/internal/app/models"
	"weread-agent/internal/app/repositories"
	"weread-agent/pkg/util"
)

type SearchEventType string

const doneEventTimeout = 5 * time.Second

const (
	EventSession SearchEventType = "session"
	EventUpdate  SearchEventType = "update"
	EventError   SearchEventType = "error"
	EventDone    SearchEventType = "done"
)

// SearchEvent 推送给调用方的任务事件
type SearchEvent struct {
	Type   SearchEventType
	TaskID string
	Query  string
	View   models.MergedView
	Err    error
}

// TaskInfo 任务状态快照
type TaskInfo struct {
	ID        string              `json:"id"`
	Query     string              `json:"query"`
	SessionID string              `json:"session_id,omitempty"`
	Status    models.SessionState `json:"status"`
	FromCache bool                `json:"from_cache"`
	Chunks    int                 `json:"chunks"`
	View      *models.MergedView  `json:"view,omitempty"`
	ErrorKind string              `json:"error_kind,omitempty"`
	StartedAt time.Time           `json:"started_at"`
	EndedAt   *time.Time          `json:"ended_at,omitempty"`
}

// SearchTask StartSearch 的返回值，Events 在任务结束后关闭
type SearchTask struct {
	ID     string
	Events <-chan SearchEvent
}

type ISearch interface {
	StartSearch(ctx context.Context, query string, noCache bool) (*SearchTask, error)
	CancelSearch(taskID string) bool
	GetSearchStatus(taskID string) (*TaskInfo, bool)
	CleanupCompletedTasks(maxAge time.Duration)
}

type searchTask struct {
	mu     sync.Mutex
	info   TaskInfo
	handle *CancelHandle
	cancel context.CancelFunc
}

func (t *searchTask) snapshot() *TaskInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	info := t.info
	if t.handle != nil {
		snap := t.handle.Session().Snapshot()
		info.SessionID = snap.SessionID
		info.Chunks = snap.Chunks
		info.Status = snap.State
	}
	if t.info.View != nil {
		view := *t.info.View
		view.Citations = copyCitations(view.Citations)
		info.View = &view
	}
	return &info
}

// SearchService 多任务管理器：每个任务一个会话，事件通过通道推送
type SearchService struct {
	poller  *SessionPoller
	cache   repositories.AnswerCache
	history IQueryHistory

	tasks sync.Map // taskID -> *searchTask
}

var _ ISearch = (*SearchService)(nil)

// NewSearchService cache 和 history 可以为 nil
func NewSearchService(poller *SessionPoller, cache repositories.AnswerCache, history IQueryHistory) *SearchService {
	return &SearchService{
		poller:  poller,
		cache:   cache,
		history: history,
	}
}

// StartSearch 创建任务并立即返回，ctx 取消等同于 CancelSearch
func (s *SearchService) StartSearch(ctx context.Context, query string, noCache bool) (*SearchTask, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	task := &searchTask{
		info: TaskInfo{
			ID:        uuid.NewString(),
			Query:     query,
			Status:    models.SessionInitializing,
			StartedAt: time.Now(),
		},
	}
	events := make(chan SearchEvent, 16)

	if !noCache {
		if cached := s.lookup(ctx, query); cached != nil {
			s.serveCached(task, cached, events)
			return &SearchTask{ID: task.info.ID, Events: events}, nil
		}
	}

	taskCtx, cancel := context.WithCancel(ctx)
	task.cancel = cancel
	taskID := task.info.ID

	emit := func(ev SearchEvent) {
		select {
		case events <- ev:
		case <-taskCtx.Done():
		}
	}
	onUpdate := func(view models.MergedView) {
		task.mu.Lock()
		task.info.View = &view
		task.mu.Unlock()
		emit(SearchEvent{Type: EventUpdate, TaskID: taskID, View: view})
	}
	onError := func(err error) {
		emit(SearchEvent{Type: EventError, TaskID: taskID, Err: err})
	}

	events <- SearchEvent{Type: EventSession, TaskID: taskID, Query: query}
	handle, err := s.poller.Start(taskCtx, query, onUpdate, onError)
	if err != nil {
		cancel()
		close(events)
		return nil, err
	}
	task.mu.Lock()
	task.handle = handle
	task.mu.Unlock()
	s.tasks.Store(taskID, task)

	go s.finish(task, handle, events)
	return &SearchTask{ID: taskID, Events: events}, nil
}

func (s *SearchService) finish(task *searchTask, handle *CancelHandle, events chan SearchEvent) {
	defer close(events)
	<-handle.Done()
	defer task.cancel()

	now := time.Now()
	task.mu.Lock()
	task.info.EndedAt = &now
	task.info.Status = handle.State()
	if err := handle.Err(); err != nil && !errors.Is(err, ErrCancelled) {
		task.info.ErrorKind = string(KindOf(err))
	}
	task.mu.Unlock()

	info := task.snapshot()
	logger := log.WithFields(log.Fields{
		"task":    info.ID,
		"session": handle.Session().ID,
		"state":   info.Status,
		"chunks":  info.Chunks,
	})
	logger.Info("search task finished")

	if info.Status == models.SessionCompleted && info.View != nil && info.View.Answered {
		s.store(info)
	}
	s.persist(info)

	if info.Status != models.SessionCancelled {
		select {
		case events <- SearchEvent{Type: EventDone, TaskID: info.ID}:
		case <-time.After(doneEventTimeout):
			logger.Warn("search task consumer stalled, done event dropped")
		}
	}
}

func (s *SearchService) lookup(ctx context.Context, query string) *models.CachedAnswer {
	if s.cache == nil {
		return nil
	}
	cached, ok, err := s.cache.Get(ctx, util.QueryDigest(query))
	if err != nil {
		log.WithError(err).Warn("answer cache lookup failed")
		return nil
	}
	if !ok {
		return nil
	}
	return cached
}

func (s *SearchService) store(info *TaskInfo) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.cache.Set(ctx, util.QueryDigest(info.Query), &models.CachedAnswer{
		Query:     info.Query,
		SessionID: info.SessionID,
		View:      *info.View,
		CachedAt:  time.Now(),
	})
	if err != nil {
		log.WithError(err).WithField("task", info.ID).Warn("answer cache write failed")
	}
}

// serveCached 命中缓存时不访问服务端，直接推送一条最终视图
func (s *SearchService) serveCached(task *searchTask, cached *models.CachedAnswer, events chan SearchEvent) {
	now := time.Now()
	view := cached.View
	view.Final = true
	task.info.Status = models.SessionCompleted
	task.info.SessionID = cached.SessionID
	task.info.FromCache = true
	task.info.Chunks = 0
	task.info.View = &view
	task.info.EndedAt = &now
	s.tasks.Store(task.info.ID, task)

	events <- SearchEvent{Type: EventSession, TaskID: task.info.ID, Query: task.info.Query}
	events <- SearchEvent{Type: EventUpdate, TaskID: task.info.ID, View: view}
	events <- SearchEvent{Type: EventDone, TaskID: task.info.ID}
	close(events)

	log.WithFields(log.Fields{"task": task.info.ID, "session": cached.SessionID}).Info("search served from cache")
	s.persist(task.snapshot())
}

func (s *SearchService) persist(info *TaskInfo) {
	if s.history == nil {
		return
	}
	record := &models.QueryRecord{
		TaskID:    info.ID,
		SessionID: info.SessionID,
		Query:     info.Query,
		State:     info.Status,
		ErrorKind: info.ErrorKind,
		Chunks:    info.Chunks,
		FromCache: info.FromCache,
	}
	if info.View != nil {
		record.Answer = info.View.AnswerText
		record.Citations = util.GetJson(info.View.Citations)
	}
	if err := s.history.SaveRecord(record); err != nil {
		log.WithError(err).WithField("task", info.ID).Warn("save query record failed")
	}
}

// CancelSearch 取消运行中的任务；任务不存在或已结束返回 false
func (s *SearchService) CancelSearch(taskID string) bool {
	v, ok := s.tasks.Load(taskID)
	if !ok {
		return false
	}
	task := v.(*searchTask)

	task.mu.Lock()
	handle := task.handle
	task.mu.Unlock()
	if handle == nil || handle.State().Terminal() {
		return false
	}
	handle.Cancel()
	task.cancel()
	log.WithField("task", taskID).Info("search task cancelled")
	return true
}

func (s *SearchService) GetSearchStatus(taskID string) (*TaskInfo, bool) {
	v, ok := s.tasks.Load(taskID)
	if !ok {
		return nil, false
	}
	return v.(*searchTask).snapshot(), true
}

// CleanupCompletedTasks 清理结束时间早于 maxAge 的任务
func (s *SearchService) CleanupCompletedTasks(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	s.tasks.Range(func(key, value interface{}) bool {
		task := value.(*searchTask)
		task.mu.Lock()
		ended := task.info.EndedAt
		task.mu.Unlock()
		if ended != nil && ended.Before(cutoff) {
			s.tasks.Delete(key)
		}
		return true
	})
}

// RunCleanup 周期性清理，ctx 取消后返回
func (s *SearchService) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupCompletedTasks(maxAge)
		}
	}
}
