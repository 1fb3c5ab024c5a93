package routers

import (
	"sync"

	"github.com/gin-gonic/gin"

	"weread-agent/internal/app/controllers"
	v1 "weread-agent/internal/app/controllers/v1"
	"weread-agent/internal/app/services"
	"weread-agent/pkg/config"
)

var apiOnce sync.Once
var g *gin.Engine

// SetUp 使用 services.Init 创建的全局服务
func SetUp() *gin.Engine {
	apiOnce.Do(func() {
		g = NewRouter(services.Search, services.History, config.GetServerConf().SearchPerMinute)
	})

	return g
}

func NewRouter(search services.ISearch, history services.IQueryHistory, searchPerMinute int) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware())

	mainGroup := r.Group("/weread/")
	mainGroup.GET("/health", controllers.Health)

	searchController := v1.NewSearchController(search)
	limit := rateLimit(searchPerMinute)
	searchGroup := mainGroup.Group("/search")
	{
		searchGroup.GET("", limit, searchController.Search)
		searchGroup.POST("", limit, searchController.Search)
		searchGroup.GET("/:id", searchController.Status)
		searchGroup.DELETE("/:id", searchController.Cancel)
	}

	historyController := v1.NewHistoryController(history)
	historyGroup := mainGroup.Group("/history")
	{
		historyGroup.GET("/list", historyController.ListRecords)
		historyGroup.GET("/:id", historyController.GetRecord)
		historyGroup.DELETE("/:id", historyController.DeleteRecord)
	}

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Origin")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	}
}
