package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mailrelay/backend/internal/monitoring"
)

// HTTPMetrics HTTP 指标中间件
func HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		c.Next()

		statusCode := strconv.Itoa(c.Writer.Status())
		monitoring.HTTPRequestsTotal.WithLabelValues(c.Request.Method, endpoint, statusCode).Inc()
		monitoring.HTTPRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}
