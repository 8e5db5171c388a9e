package middleware

import (
	"time"

	"sapcontrol-keeper/internal/logger"
	"sapcontrol-keeper/services"

	"github.com/gin-gonic/gin"
)

/**
 * HTTP请求统计中间件
 * @description
 * - 按路由模板统计请求数量和处理时间
 * - 状态码 >= 400 计为错误请求
 * - 以debug级别记录每个请求
 */
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		// 使用路由模板作为标签，避免实例号等路径参数导致标签爆炸
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		services.IncrementRequestCount(path)
		services.RecordRequestDuration(path, duration.Seconds())
		if statusCode >= 400 {
			services.IncrementErrorCount(path)
		}
		logger.Debugf("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, statusCode, duration)
	}
}

// GetTotalRequests 获取总请求数
func GetTotalRequests() int64 {
	return services.GetTotalRequestCount()
}

// GetErrorRequests 获取错误请求数
func GetErrorRequests() int64 {
	return services.GetTotalErrorCount()
}
