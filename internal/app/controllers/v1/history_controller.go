package v1

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"weread-agent/internal/app/controllers"
	"weread-agent/internal/app/models"
	"weread-agent/internal/app/services"
	"weread-agent/internal/pkg/code"
)

type HistoryController struct {
	historyService services.IQueryHistory
}

func NewHistoryController(service services.IQueryHistory) *HistoryController {
	return &HistoryController{historyService: service}
}

func (c *HistoryController) enabled(ctx *gin.Context) bool {
	if c.historyService == nil {
		controllers.Response(ctx, code.ServerError, code.MsgHistoryDisabled, nil)
		return false
	}
	return true
}

// ListRecords 历史记录列表，支持按问题模糊查询和按状态过滤
func (c *HistoryController) ListRecords(ctx *gin.Context) {
	if !c.enabled(ctx) {
		return
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	filter := models.QueryRecord{
		Query:     ctx.Query("query"),
		State:     models.SessionState(ctx.Query("state")),
		SessionID: ctx.Query("session_id"),
	}

	records, err := c.historyService.ListRecordsByCont(filter, limit, offset)
	if err != nil {
		log.WithError(err).Error("list query records failed")
		controllers.ResponseWithErr(ctx, code.ServerError, code.MsgServerError, err.Error(), nil)
		return
	}
	controllers.Response(ctx, code.Success, code.MsgSuccess, records)
}

// GetRecord 获取单条记录
func (c *HistoryController) GetRecord(ctx *gin.Context) {
	if !c.enabled(ctx) {
		return
	}
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		controllers.ResponseWithErr(ctx, code.InvalidParams, code.MsgInvalidParams, "invalid id", nil)
		return
	}

	record, err := c.historyService.GetRecordByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		controllers.Response(ctx, code.NotFound, code.MsgNotFound, nil)
		return
	}
	if err != nil {
		controllers.ResponseWithErr(ctx, code.ServerError, code.MsgServerError, err.Error(), nil)
		return
	}
	controllers.Response(ctx, code.Success, code.MsgSuccess, record)
}

// DeleteRecord 删除记录
func (c *HistoryController) DeleteRecord(ctx *gin.Context) {
	if !c.enabled(ctx) {
		return
	}
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		controllers.ResponseWithErr(ctx, code.InvalidParams, code.MsgInvalidParams, "invalid id", nil)
		return
	}

	if err := c.historyService.DeleteRecord(id); err != nil {
		controllers.ResponseWithErr(ctx, code.ServerError, code.MsgServerError, err.Error(), nil)
		return
	}
	controllers.Response(ctx, code.Success, code.MsgSuccess, gin.H{"id": id})
}
