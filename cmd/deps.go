package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"resto_supplier_sync/internal/config"
	"resto_supplier_sync/internal/controller"
	"resto_supplier_sync/internal/repository"
	"resto_supplier_sync/internal/router"
	"resto_supplier_sync/internal/service"
	"resto_supplier_sync/internal/task"
	"resto_supplier_sync/pkg/database"
	"resto_supplier_sync/pkg/logger"
	"resto_supplier_sync/pkg/resto"
)

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB

	Repos    *Repositories
	Services *Services
	Task     *task.SupplierSyncTask
}

// Repositories 仓库集合
type Repositories struct {
	Supplier repository.SupplierRepository
	SyncRun  repository.SyncRunRepository
}

// Services 服务集合
type Services struct {
	Fetcher *service.SupplierFetcher
	Sync    *service.SupplierSyncService
}

// loadConfig 配置错误直接退出
func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// initDatabase 连接数据库并建表，任一步失败都不会进入同步
func initDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger, minConns int) (*gorm.DB, error) {
	opts := database.Options{
		DSN:          cfg.DB.DSN(),
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		LogLevel:     cfg.DB.LogLevel,
	}
	if opts.MaxOpenConns < minConns {
		opts.MaxOpenConns = minConns
	}

	db, err := database.Open(opts, log)
	if err != nil {
		return nil, err
	}

	if err := database.NewProvisioner(db, log, database.Models()...).EnsureSchema(ctx); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}
	return db, nil
}

// initDependencies 组装仓库、服务与任务
func initDependencies(cfg *config.Config, log *zap.Logger, db *gorm.DB) *Dependencies {
	repos := &Repositories{
		Supplier: repository.NewSupplierRepository(db),
		SyncRun:  repository.NewSyncRunRepository(db),
	}

	fetcher := service.NewSupplierFetcher(&service.SupplierFetcherConfig{
		Scheme:   cfg.API.Scheme,
		Host:     cfg.API.Host,
		Path:     cfg.API.Path,
		Timeout:  cfg.API.Timeout,
		QPS:      cfg.API.QPS,
		ProxyURL: cfg.API.ProxyURL,
		Credentials: resto.Credentials{
			AppKey:        cfg.API.AppKey,
			SecretKey:     cfg.API.SecretKey,
			CorporationID: cfg.API.CorporationID,
			OrgCode:       cfg.API.OrgCode,
		},
	}, log)

	syncSvc := service.NewSupplierSyncService(&service.SupplierSyncConfig{
		PageDelay:    cfg.Sync.PageDelay,
		MaxPages:     cfg.Sync.MaxPages,
		MaxDuration:  cfg.Sync.MaxDuration,
		OnFetchError: service.FetchErrorPolicy(cfg.Sync.OnFetchError),
		FetchRetries: cfg.Sync.FetchRetries,
		RetryBackoff: cfg.Sync.RetryBackoff,
		WriteMode:    repository.WriteMode(cfg.Sync.WriteMode),
	}, fetcher, repos.Supplier, repos.SyncRun, log)

	return &Dependencies{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Repos:    repos,
		Services: &Services{Fetcher: fetcher, Sync: syncSvc},
		Task:     task.NewSupplierSyncTask(syncSvc, cfg.Sync.Cron, 0, log),
	}
}

// initControllers HTTP 控制器
func initControllers(deps *Dependencies) router.Controllers {
	return router.Controllers{
		Supplier: controller.NewSupplierController(deps.Repos.Supplier),
		Sync:     controller.NewSyncController(deps.Task, deps.Repos.SyncRun),
		Health:   controller.NewHealthController(deps.DB),
	}
}

// Close 释放资源
func (d *Dependencies) Close() {
	if err := database.Close(d.DB); err != nil {
		d.Logger.Warn("[Main] 关闭数据库失败", zap.Error(err))
	}
	_ = d.Logger.Sync()
}
