package v1

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"weread-agent/internal/app/controllers"
	"weread-agent/internal/app/models"
	"weread-agent/internal/app/services"
	"weread-agent/internal/pkg/code"
	"weread-agent/pkg/util"
)

const defaultHeartbeat = 15 * time.Second

type SearchController struct {
	service   services.ISearch
	heartbeat time.Duration
}

func NewSearchController(service services.ISearch) *SearchController {
	return &SearchController{service: service, heartbeat: defaultHeartbeat}
}

// Search 发起一次问书并以 SSE 推送合并后的结果
func (c *SearchController) Search(ctx *gin.Context) {
	var req models.SearchRequest
	if err := ctx.ShouldBind(&req); err != nil {
		controllers.ResponseWithErr(ctx, code.InvalidParams, code.MsgInvalidParams, err.Error(), nil)
		return
	}

	task, err := c.service.StartSearch(ctx.Request.Context(), req.Query, req.NoCache)
	if errors.Is(err, services.ErrEmptyQuery) {
		controllers.ResponseWithErr(ctx, code.InvalidParams, code.MsgInvalidParams, err.Error(), nil)
		return
	}
	if err != nil {
		log.WithError(err).Error("start search failed")
		controllers.Response(ctx, code.ServerError, code.MsgServerError, nil)
		return
	}

	controllers.SSEHeaders(ctx)
	logger := log.WithField("task", task.ID)

	heartbeat := time.NewTicker(c.heartbeat)
	defer heartbeat.Stop()
	clientGone := ctx.Request.Context().Done()
	w := ctx.Writer

	for {
		select {
		case ev, ok := <-task.Events:
			if !ok {
				util.WriteDone(w)
				return
			}
			if err := writeSearchEvent(w, ev); err != nil {
				logger.WithError(err).Warn("write sse event failed")
				c.service.CancelSearch(task.ID)
				return
			}
		case <-clientGone:
			logger.Info("client disconnected, cancelling search")
			c.service.CancelSearch(task.ID)
			return
		case <-heartbeat.C:
			if err := util.WriteHeartbeat(w); err != nil {
				c.service.CancelSearch(task.ID)
				return
			}
		}
	}
}

func writeSearchEvent(w gin.ResponseWriter, ev services.SearchEvent) error {
	switch ev.Type {
	case services.EventSession:
		return util.WriteSession(w, ev.TaskID, ev.Query)
	case services.EventUpdate:
		return util.WriteView(w, ev.TaskID, ev.View)
	case services.EventError:
		// 具体原因只写日志
		log.WithError(ev.Err).WithField("task", ev.TaskID).Warn("search failed")
		return util.WriteError(w, code.MsgSearchFailed)
	}
	return nil
}

// Status 查询任务状态
func (c *SearchController) Status(ctx *gin.Context) {
	info, ok := c.service.GetSearchStatus(ctx.Param("id"))
	if !ok {
		controllers.Response(ctx, code.NotFound, code.MsgNotFound, nil)
		return
	}
	controllers.Response(ctx, code.Success, code.MsgSuccess, info)
}

// Cancel 取消运行中的任务
func (c *SearchController) Cancel(ctx *gin.Context) {
	id := ctx.Param("id")
	if _, ok := c.service.GetSearchStatus(id); !ok {
		controllers.Response(ctx, code.NotFound, code.MsgNotFound, nil)
		return
	}
	if !c.service.CancelSearch(id) {
		controllers.Response(ctx, code.InvalidParams, code.MsgTaskNotRunning, nil)
		return
	}
	controllers.Response(ctx, code.Success, code.MsgSuccess, gin.H{"id": id})
}
