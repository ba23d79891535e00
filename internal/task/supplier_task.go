package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"resto_supplier_sync/internal/model"
	"resto_supplier_sync/internal/service"
)

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	// ErrSyncRunning 已有同步在执行，新的触发直接拒绝，不排队
	ErrSyncRunning TaskError = "supplier sync is already running"
)

// ==================== SupplierSyncTask 供应商同步任务 ====================

// SyncRunner 同步执行者，由 service.SupplierSyncService 实现
type SyncRunner interface {
	Run(ctx context.Context, trigger model.SyncTrigger) (*service.SyncReport, error)
}

// SupplierSyncTask 供应商同步定时任务
// 定时、HTTP、命令行三种触发共用一把运行锁
type SupplierSyncTask struct {
	runner  SyncRunner
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	logger  *zap.Logger

	runMu sync.Mutex // 持有期间表示有同步在执行
	wg    sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc

	lastMu sync.RWMutex
	last   *service.SyncReport
}

// NewSupplierSyncTask 创建同步任务
// spec: 带秒字段的 cron 表达式；timeout: 单次运行上限，0 表示不限
func NewSupplierSyncTask(runner SyncRunner, spec string, timeout time.Duration, logger *zap.Logger) *SupplierSyncTask {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SupplierSyncTask{
		runner:  runner,
		cron:    cron.New(cron.WithSeconds()),
		spec:    spec,
		timeout: timeout,
		logger:  logger.Named("task"),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Start 启动定时任务
func (t *SupplierSyncTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		if err := t.TriggerAsync(model.SyncTriggerCron); err != nil {
			t.logger.Warn("[SupplierSyncTask] 上一次同步尚未结束，本次跳过")
		}
	})
	if err != nil {
		t.logger.Error("[SupplierSyncTask] 定时任务启动失败", zap.String("spec", t.spec), zap.Error(err))
		return err
	}

	t.cron.Start()
	t.logger.Info("[SupplierSyncTask] 已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 停止调度并取消正在执行的同步，等待其落库退出
func (t *SupplierSyncTask) Stop() {
	ctx := t.cron.Stop()
	t.cancel()
	<-ctx.Done()
	t.wg.Wait()
	t.logger.Info("[SupplierSyncTask] 已停止")
}

// RunNow 同步执行一次，已有运行时返回 ErrSyncRunning
func (t *SupplierSyncTask) RunNow(ctx context.Context, trigger model.SyncTrigger) (*service.SyncReport, error) {
	if !t.runMu.TryLock() {
		return nil, ErrSyncRunning
	}
	defer t.runMu.Unlock()

	return t.run(ctx, trigger)
}

// TriggerAsync 后台执行一次，已有运行时返回 ErrSyncRunning
func (t *SupplierSyncTask) TriggerAsync(trigger model.SyncTrigger) error {
	if !t.runMu.TryLock() {
		return ErrSyncRunning
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.runMu.Unlock()

		if _, err := t.run(t.baseCtx, trigger); err != nil {
			t.logger.Warn("[SupplierSyncTask] 同步异常结束", zap.String("trigger", string(trigger)), zap.Error(err))
		}
	}()
	return nil
}

// Running 是否有同步在执行
func (t *SupplierSyncTask) Running() bool {
	if t.runMu.TryLock() {
		t.runMu.Unlock()
		return false
	}
	return true
}

// LastReport 最近一次运行结果
func (t *SupplierSyncTask) LastReport() *service.SyncReport {
	t.lastMu.RLock()
	defer t.lastMu.RUnlock()
	return t.last
}

func (t *SupplierSyncTask) run(ctx context.Context, trigger model.SyncTrigger) (*service.SyncReport, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.logger.Info("[SupplierSyncTask] 开始同步", zap.String("trigger", string(trigger)))
	report, err := t.runner.Run(ctx, trigger)

	if report != nil {
		t.lastMu.Lock()
		t.last = report
		t.lastMu.Unlock()
	}
	return report, err
}
