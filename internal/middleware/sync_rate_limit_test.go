package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSyncRateLimiter_Check(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewSyncRateLimiter()
	limiter.now = func() time.Time { return clock }

	key := GlobalSyncKey(SyncTypeSupplier)
	assert.Equal(t, "global:supplier", key)

	assert.True(t, limiter.Check(key, time.Minute).Allowed)

	clock = clock.Add(20 * time.Second)
	res := limiter.Check(key, time.Minute)
	assert.False(t, res.Allowed)
	assert.Equal(t, 40*time.Second, res.RetryAfter)

	clock = clock.Add(40 * time.Second)
	assert.True(t, limiter.Check(key, time.Minute).Allowed)

	limiter.Reset(key)
	assert.True(t, limiter.CheckOnly(key, time.Minute).Allowed)
}

func TestFormatRetryMessage(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "同步冷却中，请 30 秒后重试"},
		{2 * time.Minute, "同步冷却中，请 2 分钟后重试"},
		{150 * time.Second, "同步冷却中，请 2 分 30 秒后重试"},
		{1500 * time.Millisecond, "同步冷却中，请 2 秒后重试"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatRetryMessage(tt.d))
	}
}

func newCooldownRouter(limiter *SyncRateLimiter, interval time.Duration, status *int) *gin.Engine {
	r := gin.New()
	r.Use(AccessLog(zap.NewNop()))
	r.POST("/sync", SyncRateLimit(limiter, SyncTypeSupplier, interval), func(c *gin.Context) {
		c.JSON(*status, gin.H{"code": *status})
	})
	return r
}

func doPost(r http.Handler) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sync", nil))
	return w
}

func TestSyncRateLimit_CooldownAfterAccepted(t *testing.T) {
	status := http.StatusAccepted
	r := newCooldownRouter(NewSyncRateLimiter(), time.Minute, &status)

	assert.Equal(t, http.StatusAccepted, doPost(r).Code)

	w := doPost(r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"retry_after":60`)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestSyncRateLimit_RejectedTriggerDoesNotConsume(t *testing.T) {
	status := http.StatusConflict
	r := newCooldownRouter(NewSyncRateLimiter(), time.Minute, &status)

	assert.Equal(t, http.StatusConflict, doPost(r).Code)

	status = http.StatusAccepted
	assert.Equal(t, http.StatusAccepted, doPost(r).Code)
}

func TestSyncRateLimit_Disabled(t *testing.T) {
	status := http.StatusAccepted
	r := newCooldownRouter(NewSyncRateLimiter(), 0, &status)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusAccepted, doPost(r).Code)
	}
}
