package middleware

import (
	"sync"
	"time"
)

// ==================== SyncRateLimiter 同步冷却器 ====================

// SyncRateLimiter 手动触发冷却
// 记录每个 key 最近一次被受理的时间，防止频繁手动同步打满开放平台配额
type SyncRateLimiter struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// NewSyncRateLimiter 创建冷却器
func NewSyncRateLimiter() *SyncRateLimiter {
	return &SyncRateLimiter{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查并在允许时立即占用冷却窗口
func (r *SyncRateLimiter) Check(key string, interval time.Duration) CheckResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.check(key, interval)
	if res.Allowed {
		r.last[key] = r.now()
	}
	return res
}

// CheckOnly 仅检查，不占用
func (r *SyncRateLimiter) CheckOnly(key string, interval time.Duration) CheckResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.check(key, interval)
}

// MarkExecuted 触发被受理后记录时间
func (r *SyncRateLimiter) MarkExecuted(key string) {
	r.mu.Lock()
	r.last[key] = r.now()
	r.mu.Unlock()
}

// Reset 清除指定 key 的冷却
func (r *SyncRateLimiter) Reset(key string) {
	r.mu.Lock()
	delete(r.last, key)
	r.mu.Unlock()
}

// check 调用方持有 mu
func (r *SyncRateLimiter) check(key string, interval time.Duration) CheckResult {
	last, ok := r.last[key]
	if !ok {
		return CheckResult{Allowed: true}
	}
	if left := interval - r.now().Sub(last); left > 0 {
		return CheckResult{RetryAfter: left}
	}
	return CheckResult{Allowed: true}
}

// ==================== Key ====================

// SyncType 同步类型
type SyncType string

const (
	SyncTypeSupplier SyncType = "supplier"
)

// GlobalSyncKey 全局(不区分调用方)的冷却 key
func GlobalSyncKey(syncType SyncType) string {
	return "global:" + string(syncType)
}
