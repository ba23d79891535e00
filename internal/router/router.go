package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"resto_supplier_sync/internal/controller"
	"resto_supplier_sync/internal/middleware"
	"resto_supplier_sync/pkg/metrics"
)

// Controllers 路由依赖的控制器
type Controllers struct {
	Supplier *controller.SupplierController
	Sync     *controller.SyncController
	Health   *controller.HealthController
}

// Options 路由选项
type Options struct {
	Limiter         *middleware.SyncRateLimiter
	TriggerCooldown time.Duration // 手动触发冷却，0 表示不限
}

// New 创建 engine 并注册全部路由
func New(ctls Controllers, opts Options, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.AccessLog(logger))
	InitRoutes(r, ctls, opts)
	return r
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctls Controllers, opts Options) {
	if opts.Limiter == nil {
		opts.Limiter = middleware.NewSyncRateLimiter()
	}

	r.GET("/health", ctls.Health.Check)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/v1")
	{
		// 供应商查询
		suppliers := api.Group("/suppliers")
		{
			// GET /api/v1/suppliers?page=&page_size=&keyword=&is_enabled=
			suppliers.GET("", ctls.Supplier.List)
			suppliers.GET("/:id", ctls.Supplier.GetByID)
		}

		// 同步
		sync := api.Group("/sync")
		{
			// POST /api/v1/sync/suppliers 后台触发，冷却期内 429，执行中 409
			sync.POST("/suppliers",
				middleware.SyncRateLimit(opts.Limiter, middleware.SyncTypeSupplier, opts.TriggerCooldown),
				ctls.Sync.TriggerSupplierSync,
			)
			sync.GET("/status", ctls.Sync.Status)
			sync.GET("/runs", ctls.Sync.ListRuns)
			sync.GET("/runs/:id", ctls.Sync.GetRun)
		}
	}
}
