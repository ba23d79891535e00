package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"resto_supplier_sync/pkg/metrics"
)

// AccessLog 请求日志 + HTTP 指标
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RecordRequest(c.Request.Method, endpoint, status, elapsed)

		logger.Info("[HTTP] "+c.Request.Method+" "+c.Request.URL.Path,
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
