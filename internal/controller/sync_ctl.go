package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resto_supplier_sync/internal/api/dto"
	"resto_supplier_sync/internal/model"
	"resto_supplier_sync/internal/repository"
	"resto_supplier_sync/internal/service"
	"resto_supplier_sync/internal/task"
)

// SyncTrigger 同步触发入口，由 task.SupplierSyncTask 实现
type SyncTrigger interface {
	TriggerAsync(trigger model.SyncTrigger) error
	Running() bool
	LastReport() *service.SyncReport
}

// SyncController 同步控制器
type SyncController struct {
	trigger SyncTrigger
	runs    repository.SyncRunRepository
}

// NewSyncController 创建同步控制器
func NewSyncController(trigger SyncTrigger, runs repository.SyncRunRepository) *SyncController {
	return &SyncController{trigger: trigger, runs: runs}
}

// ==================== Handler 实现 ====================

// TriggerSupplierSync 手动触发供应商同步
// 后台执行，立即返回 202；已有同步在执行时返回 409
func (c *SyncController) TriggerSupplierSync(ctx *gin.Context) {
	err := c.trigger.TriggerAsync(model.SyncTriggerHTTP)
	if errors.Is(err, task.ErrSyncRunning) {
		ctx.JSON(http.StatusConflict, gin.H{"code": 409, "message": "供应商同步正在执行中"})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{
		"code":    202,
		"message": "供应商同步已触发",
	})
}

// Status 当前是否在同步，以及最近一次结果
func (c *SyncController) Status(ctx *gin.Context) {
	resp := dto.SyncStatusResp{Running: c.trigger.Running()}
	if report := c.trigger.LastReport(); report != nil {
		resp.Last = reportToResp(report)
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": resp})
}

// ListRuns 最近的运行记录
func (c *SyncController) ListRuns(ctx *gin.Context) {
	var req dto.ListSyncRunsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	runs, err := c.runs.ListRecent(ctx.Request.Context(), req.Limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	list := make([]dto.SyncRunResp, 0, len(runs))
	for i := range runs {
		list = append(list, runToResp(&runs[i]))
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": list})
}

// GetRun 单条运行记录
func (c *SyncController) GetRun(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	run, err := c.runs.GetByID(ctx.Request.Context(), id)
	if err != nil {
		respondLookupError(ctx, err, "运行记录不存在")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": runToResp(run)})
}

// ==================== 辅助函数 ====================

func runToResp(run *model.SyncRun) dto.SyncRunResp {
	return dto.SyncRunResp{
		ID:          run.ID,
		Trigger:     string(run.Trigger),
		Status:      string(run.Status),
		StopReason:  string(run.StopReason),
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		Pages:       run.Pages,
		Fetched:     run.Fetched,
		Written:     run.Written,
		Skipped:     run.Skipped,
		Failed:      run.Failed,
		FailedPages: run.FailedPages,
		ErrorMsg:    run.ErrorMsg,

		FailedSupplierIDs: run.FailedSupplierIDs,
	}
}

func reportToResp(r *service.SyncReport) *dto.SyncRunResp {
	resp := &dto.SyncRunResp{
		ID:          r.RunID,
		Trigger:     string(r.Trigger),
		Status:      string(model.SyncRunStatusSuccess),
		StopReason:  string(r.StopReason),
		StartedAt:   r.StartedAt,
		Pages:       r.Pages,
		Fetched:     r.Fetched,
		Written:     r.Written,
		Skipped:     r.Skipped,
		Failed:      r.Failed,
		FailedPages: r.FailedPages,

		FailedSupplierIDs: r.FailedSupplierIDs,
	}
	if !r.Succeeded() {
		resp.Status = string(model.SyncRunStatusFailed)
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt
		resp.FinishedAt = &finished
	}
	if r.Err != nil {
		resp.ErrorMsg = r.Err.Error()
	}
	return resp
}

// parseID 解析路径中的正整数 ID，失败时已写入 400
func parseID(ctx *gin.Context, key string) int64 {
	id, err := strconv.ParseInt(ctx.Param(key), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "无效的 ID"})
		return 0
	}
	return id
}
