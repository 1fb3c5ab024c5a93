package routers

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joeycumines/go-catrate"
	log "github.com/sirupsen/logrus"

	"weread-agent/internal/app/models"
	"weread-agent/internal/pkg/code"
)

// rateLimit 按客户端 IP 限制搜索频率，perMinute <= 0 表示不限制
func rateLimit(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := catrate.NewLimiter(map[time.Duration]int{time.Minute: perMinute})

	return func(c *gin.Context) {
		next, ok := limiter.Allow(c.ClientIP())
		if ok {
			c.Next()
			return
		}
		if !next.IsZero() {
			wait := math.Ceil(time.Until(next).Seconds())
			c.Header("Retry-After", strconv.Itoa(int(math.Max(wait, 1))))
		}
		log.WithField("client", c.ClientIP()).Warn("search rate limited")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, &models.RespValue{
			Code: code.TooManySearch,
			Msg:  code.MsgTooManySearch,
			Data: struct{}{},
		})
	}
}
