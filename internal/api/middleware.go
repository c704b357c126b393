package api

import (
	"strconv"

	"EncounterSync/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 按 方法/路由模板/状态码 统计请求数
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.APIRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
