package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// SyncTrigger 同步触发来源
type SyncTrigger string

const (
	SyncTriggerCLI  SyncTrigger = "cli"
	SyncTriggerCron SyncTrigger = "cron"
	SyncTriggerHTTP SyncTrigger = "http"
)

// SyncRunStatus 同步运行状态
type SyncRunStatus string

const (
	SyncRunStatusRunning SyncRunStatus = "running"
	SyncRunStatusSuccess SyncRunStatus = "success"
	SyncRunStatusFailed  SyncRunStatus = "failed"
)

// StopReason 翻页循环结束原因
type StopReason string

const (
	StopReasonExhausted   StopReason = "exhausted"    // 接口返回空页
	StopReasonLastPage    StopReason = "last_page"    // 本页不足 PageSize
	StopReasonFetchError  StopReason = "fetch_error"  // 拉取失败（重试后仍失败）
	StopReasonMaxPages    StopReason = "max_pages"    // 达到页数上限
	StopReasonMaxDuration StopReason = "max_duration" // 达到时长上限
	StopReasonCanceled    StopReason = "canceled"     // 上下文取消
)

// SyncRun 供应商同步运行记录
// 仅作审计，不用于断点续传
type SyncRun struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Trigger     SyncTrigger    `gorm:"size:16;index" json:"trigger"`
	Status      SyncRunStatus  `gorm:"size:16;index" json:"status"`
	StopReason  StopReason     `gorm:"size:32" json:"stop_reason"`
	StartedAt   time.Time      `gorm:"index" json:"started_at"`
	FinishedAt  *time.Time     `json:"finished_at"`
	Pages       int            `json:"pages"`
	Fetched     int            `json:"fetched"`
	Written     int            `json:"written"`
	Skipped     int            `json:"skipped"`
	Failed      int            `json:"failed"`
	FailedPages int            `json:"failed_pages"`
	ErrorMsg    string         `gorm:"size:1024" json:"error_msg"`
	PageStats   datatypes.JSON `json:"page_stats"`

	// 主表写入失败的供应商 ID，按 {1,2,3} 文本存储，两种方言通用
	FailedSupplierIDs pq.Int64Array `gorm:"type:text" json:"failed_supplier_ids"`
}

func (SyncRun) TableName() string {
	return "supplier_sync_runs"
}

// PageStat 单页处理统计，序列化后写入 SyncRun.PageStats
type PageStat struct {
	PageNo     int    `json:"page_no"`
	Fetched    int    `json:"fetched"`
	Written    int    `json:"written"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}
