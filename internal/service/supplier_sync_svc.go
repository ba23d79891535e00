package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"resto_supplier_sync/internal/model"
	"resto_supplier_sync/internal/repository"
	"resto_supplier_sync/pkg/metrics"
	"resto_supplier_sync/pkg/resto"
)

// FetchErrorPolicy 拉取失败后的处理策略
type FetchErrorPolicy string

const (
	FetchErrorStop  FetchErrorPolicy = "stop"
	FetchErrorRetry FetchErrorPolicy = "retry"
)

// SupplierSyncConfig 同步驱动配置
type SupplierSyncConfig struct {
	PageDelay    time.Duration // 翻页间隔
	MaxPages     int           // 0 表示不限
	MaxDuration  time.Duration // 0 表示不限
	OnFetchError FetchErrorPolicy
	FetchRetries int
	RetryBackoff time.Duration // 第 n 次重试等待 n*RetryBackoff
	WriteMode    repository.WriteMode
}

// SyncReport 一次同步运行的结果
type SyncReport struct {
	RunID       int64
	Trigger     model.SyncTrigger
	StopReason  model.StopReason
	StartedAt   time.Time
	FinishedAt  time.Time
	Pages       int
	Fetched     int
	Written     int
	Skipped     int
	Failed      int
	FailedPages int
	PageStats   []model.PageStat
	Err         error

	// FailedSupplierIDs 主表写入失败的供应商，最多保留 maxFailedIDs 个
	FailedSupplierIDs []int64
}

const maxFailedIDs = 500

// Succeeded 正常翻页结束（取完、末页或触达上限）
func (r *SyncReport) Succeeded() bool {
	return r.StopReason != model.StopReasonFetchError && r.StopReason != model.StopReasonCanceled
}

// SupplierSyncService 供应商同步驱动
// 严格串行：同一时刻只有一页在处理
type SupplierSyncService struct {
	config    *SupplierSyncConfig
	fetcher   PageFetcher
	suppliers repository.SupplierRepository
	runs      repository.SyncRunRepository
	logger    *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSupplierSyncService 创建同步服务
// runs 可为 nil，此时不记录运行日志
func NewSupplierSyncService(
	cfg *SupplierSyncConfig,
	fetcher PageFetcher,
	suppliers repository.SupplierRepository,
	runs repository.SyncRunRepository,
	logger *zap.Logger,
) *SupplierSyncService {
	if cfg.OnFetchError == "" {
		cfg.OnFetchError = FetchErrorStop
	}
	if cfg.WriteMode == "" {
		cfg.WriteMode = repository.WriteModeLegacy
	}
	if cfg.FetchRetries < 0 {
		cfg.FetchRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SupplierSyncService{
		config:    cfg,
		fetcher:   fetcher,
		suppliers: suppliers,
		runs:      runs,
		logger:    logger.Named("sync"),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// ==================== 主流程 ====================

// Run 从第 1 页开始拉取并写入，直到取完或触发终止条件
func (s *SupplierSyncService) Run(ctx context.Context, trigger model.SyncTrigger) (*SyncReport, error) {
	report := &SyncReport{Trigger: trigger, StartedAt: s.now()}
	s.logger.Info("[SupplierSync] Resto 供应商数据同步开始", zap.String("trigger", string(trigger)))

	run := s.startRun(ctx, report)
	metrics.RunStarted()

	for pageNo := 1; ; pageNo++ {
		if err := ctx.Err(); err != nil {
			report.stop(model.StopReasonCanceled, err)
			break
		}

		s.logger.Info("[SupplierSync] 正在查询", zap.Int("page_no", pageNo))
		list, err := s.fetchWithPolicy(ctx, pageNo)
		if err != nil {
			if ctx.Err() != nil {
				report.stop(model.StopReasonCanceled, ctx.Err())
			} else {
				s.logger.Error("[SupplierSync] 拉取失败，同步终止", zap.Int("page_no", pageNo), zap.Error(err))
				report.stop(model.StopReasonFetchError, err)
			}
			break
		}

		if len(list) == 0 {
			s.logger.Info("[SupplierSync] 接口未返回数据，抓取结束", zap.Int("page_no", pageNo))
			report.stop(model.StopReasonExhausted, nil)
			break
		}

		s.processPage(ctx, pageNo, list, report)

		if len(list) < resto.PageSize {
			s.logger.Info("[SupplierSync] 数据量小于页大小，已达到最后一页", zap.Int("page_no", pageNo))
			report.stop(model.StopReasonLastPage, nil)
			break
		}

		if reason, hit := s.boundReached(pageNo, report.StartedAt); hit {
			s.logger.Warn("[SupplierSync] 触达安全上限，同步终止",
				zap.Int("page_no", pageNo),
				zap.String("reason", string(reason)),
			)
			report.stop(reason, nil)
			break
		}

		if err := s.sleep(ctx, s.config.PageDelay); err != nil {
			report.stop(model.StopReasonCanceled, err)
			break
		}
	}

	report.FinishedAt = s.now()
	s.finishRun(ctx, run, report)
	metrics.RunFinished(string(trigger), string(report.StopReason), report.FinishedAt.Sub(report.StartedAt))

	s.logger.Info("[SupplierSync] 同步任务结束",
		zap.String("stop_reason", string(report.StopReason)),
		zap.Int("pages", report.Pages),
		zap.Int("fetched", report.Fetched),
		zap.Int("written", report.Written),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("failed_pages", report.FailedPages),
	)

	return report, report.Err
}

// fetchWithPolicy 按策略拉取，retry 策略下线性退避
func (s *SupplierSyncService) fetchWithPolicy(ctx context.Context, pageNo int) ([]json.RawMessage, error) {
	attempts := 1
	if s.config.OnFetchError == FetchErrorRetry {
		attempts += s.config.FetchRetries
	}

	for attempt := 1; ; attempt++ {
		list, err := s.fetcher.FetchPage(ctx, pageNo)
		if err == nil {
			return list, nil
		}
		if attempt >= attempts || ctx.Err() != nil {
			return nil, err
		}

		wait := s.config.RetryBackoff * time.Duration(attempt)
		s.logger.Warn("[SupplierSync] 拉取失败，准备重试",
			zap.Int("page_no", pageNo),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if err := s.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// processPage 规整并写入一页，写入失败只记录不中断
func (s *SupplierSyncService) processPage(ctx context.Context, pageNo int, list []json.RawMessage, report *SyncReport) {
	start := s.now()
	stat := model.PageStat{PageNo: pageNo, Fetched: len(list)}

	records := make([]model.NormalizedSupplier, 0, len(list))
	for i, raw := range list {
		rec, err := NormalizeSupplier(raw)
		if err != nil {
			s.logger.Warn("[SupplierSync] 供应商数据解析失败，跳过",
				zap.Int("page_no", pageNo),
				zap.Int("index", i),
				zap.Error(err),
			)
			stat.Failed++
			continue
		}
		records = append(records, *rec)
	}

	res, err := s.suppliers.SavePage(ctx, records, s.config.WriteMode)
	for _, f := range res.Failures {
		s.logger.Error("[SupplierSync] 主表写入失败",
			zap.Int64("supplier_id", f.SupplierID),
			zap.Error(f.Err),
		)
		if len(report.FailedSupplierIDs) < maxFailedIDs {
			report.FailedSupplierIDs = append(report.FailedSupplierIDs, f.SupplierID)
		}
	}

	if err != nil {
		s.logger.Error("[SupplierSync] 数据库写入过程中发生严重错误，本页已回滚",
			zap.Int("page_no", pageNo),
			zap.Error(err),
		)
		stat.Error = err.Error()
		report.FailedPages++
	} else {
		stat.Written = res.Written
		stat.Skipped = res.Skipped
		stat.Failed += res.Failed
		s.logger.Info("[SupplierSync] 成功处理供应商",
			zap.Int("page_no", pageNo),
			zap.Int("written", res.Written),
		)
	}
	metrics.RecordPage(stat.Written, stat.Skipped, stat.Failed, err)

	stat.DurationMs = s.now().Sub(start).Milliseconds()
	report.Pages++
	report.Fetched += len(list)
	report.Written += stat.Written
	report.Skipped += stat.Skipped
	report.Failed += stat.Failed
	report.PageStats = append(report.PageStats, stat)
}

// boundReached 页数或时长上限
func (s *SupplierSyncService) boundReached(pageNo int, startedAt time.Time) (model.StopReason, bool) {
	if s.config.MaxPages > 0 && pageNo >= s.config.MaxPages {
		return model.StopReasonMaxPages, true
	}
	if s.config.MaxDuration > 0 && s.now().Sub(startedAt) >= s.config.MaxDuration {
		return model.StopReasonMaxDuration, true
	}
	return "", false
}

func (r *SyncReport) stop(reason model.StopReason, err error) {
	r.StopReason = reason
	r.Err = err
}

// ==================== 运行记录 ====================

// startRun 写入运行记录，失败只记日志
// 已取消的运行也要留痕
func (s *SupplierSyncService) startRun(ctx context.Context, report *SyncReport) *model.SyncRun {
	if s.runs == nil {
		return nil
	}
	run := &model.SyncRun{
		Trigger:   report.Trigger,
		Status:    model.SyncRunStatusRunning,
		StartedAt: report.StartedAt,
	}
	if err := s.runs.Create(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("[SupplierSync] 运行记录写入失败", zap.Error(err))
		return nil
	}
	report.RunID = run.ID
	return run
}

func (s *SupplierSyncService) finishRun(ctx context.Context, run *model.SyncRun, report *SyncReport) {
	if run == nil {
		return
	}

	finished := report.FinishedAt
	run.FinishedAt = &finished
	run.StopReason = report.StopReason
	run.Pages = report.Pages
	run.Fetched = report.Fetched
	run.Written = report.Written
	run.Skipped = report.Skipped
	run.Failed = report.Failed
	run.FailedPages = report.FailedPages
	run.FailedSupplierIDs = pq.Int64Array(report.FailedSupplierIDs)
	run.Status = model.SyncRunStatusSuccess
	if !report.Succeeded() {
		run.Status = model.SyncRunStatusFailed
	}
	if report.Err != nil {
		run.ErrorMsg = truncate(report.Err.Error(), 1024)
	}
	if stats, err := json.Marshal(report.PageStats); err == nil {
		run.PageStats = datatypes.JSON(stats)
	}

	// 取消后仍需落库最终状态
	if err := s.runs.Update(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("[SupplierSync] 运行记录更新失败", zap.Int64("run_id", run.ID), zap.Error(err))
	}
}

// ==================== 工具函数 ====================

// sleepCtx 可被取消的等待
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// IsFetchError 判断错误是否来自分页拉取
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
