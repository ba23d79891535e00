package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== 同步冷却中间件 ====================

// SyncRateLimit 手动同步冷却中间件，interval <= 0 时不限制
// 只有被受理(2xx)的触发才占用冷却窗口，409 等拒绝不计
//
//	sync.POST("/suppliers",
//	    middleware.SyncRateLimit(limiter, middleware.SyncTypeSupplier, cooldown),
//	    syncCtl.TriggerSupplierSync,
//	)
func SyncRateLimit(limiter *SyncRateLimiter, syncType SyncType, interval time.Duration) gin.HandlerFunc {
	if interval <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	key := GlobalSyncKey(syncType)

	return func(c *gin.Context) {
		if res := limiter.CheckOnly(key, interval); !res.Allowed {
			wait := retrySeconds(res.RetryAfter)
			c.Header("Retry-After", strconv.Itoa(wait))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": formatRetryMessage(res.RetryAfter),
				"data": gin.H{
					"retry_after": wait,
					"sync_type":   syncType,
				},
			})
			return
		}

		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 300 {
			limiter.MarkExecuted(key)
		}
	}
}

// retrySeconds 向上取整，避免提示 0 秒
func retrySeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

// formatRetryMessage 剩余冷却时间的中文提示
func formatRetryMessage(d time.Duration) string {
	secs := retrySeconds(d)
	m, s := secs/60, secs%60

	switch {
	case m == 0:
		return fmt.Sprintf("同步冷却中，请 %d 秒后重试", s)
	case s == 0:
		return fmt.Sprintf("同步冷却中，请 %d 分钟后重试", m)
	default:
		return fmt.Sprintf("同步冷却中，请 %d 分 %d 秒后重试", m, s)
	}
}
