package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"resto_supplier_sync/internal/middleware"
	"resto_supplier_sync/internal/model"
	"resto_supplier_sync/internal/router"
	"resto_supplier_sync/pkg/database"
)

// serve 模式下查询接口与同步共用连接池
const serveMinConns = 4

func main() {
	app := &cli.App{
		Name:  "supplier-sync",
		Usage: "从 Resto 开放平台同步供应商数据到本地数据库",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML 配置文件路径，不传则只读环境变量",
				EnvVars: []string{"RESTO_CONFIG"},
			},
		},
		Action: syncCommand,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "只建表，不同步",
				Action: migrateCommand,
			},
			{
				Name:   "sync",
				Usage:  "同步一次后退出",
				Action: syncCommand,
			},
			{
				Name:   "schedule",
				Usage:  "按 sync.cron 定时同步，直到收到退出信号",
				Action: scheduleCommand,
			},
			{
				Name:   "serve",
				Usage:  "定时同步并提供 HTTP 接口",
				Action: serveCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ==================== 命令实现 ====================

func migrateCommand(c *cli.Context) error {
	cfg, log, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := initDatabase(c.Context, cfg, log, 1)
	if err != nil {
		return err
	}
	log.Info("[Main] 表结构已就绪")
	return database.Close(db)
}

func syncCommand(c *cli.Context) error {
	deps, err := bootstrap(c, 1)
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := deps.Task.RunNow(ctx, model.SyncTriggerCLI)
	if report == nil {
		return err
	}

	deps.Logger.Info(fmt.Sprintf("[Main] 同步结束，共写入 %d 个供应商", report.Written),
		zap.String("stop_reason", string(report.StopReason)),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	if !report.Succeeded() {
		return cli.Exit(fmt.Sprintf("同步未完成: %s: %v", report.StopReason, report.Err), 1)
	}
	return nil
}

func scheduleCommand(c *cli.Context) error {
	deps, err := bootstrap(c, 1)
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.Task.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	deps.Logger.Info("[Main] 正在停止定时同步...")
	deps.Task.Stop()
	return nil
}

func serveCommand(c *cli.Context) error {
	deps, err := bootstrap(c, serveMinConns)
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.Task.Start(); err != nil {
		return err
	}

	gin.SetMode(deps.Config.Server.Mode)
	r := router.New(initControllers(deps), router.Options{
		Limiter:         middleware.NewSyncRateLimiter(),
		TriggerCooldown: deps.Config.Sync.TriggerCooldown,
	}, deps.Logger)

	return startServer(c.Context, deps, r)
}

// ==================== 启动流程 ====================

// bootstrap 加载配置、连库建表、组装依赖
func bootstrap(c *cli.Context, minConns int) (*Dependencies, error) {
	cfg, log, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	db, err := initDatabase(c.Context, cfg, log, minConns)
	if err != nil {
		log.Error("[Main] 数据库初始化失败", zap.Error(err))
		_ = log.Sync()
		return nil, err
	}

	return initDependencies(cfg, log, db), nil
}

func startServer(ctx context.Context, deps *Dependencies, r *gin.Engine) error {
	log := deps.Logger
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    deps.Config.Server.Addr,
		Handler: r,
	}

	// 异步启动服务
	errCh := make(chan error, 1)
	go func() {
		log.Info("[Main] 服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
		log.Error("[Main] 服务启动失败", zap.Error(serveErr))
	case <-sigCtx.Done():
	}

	log.Info("[Main] 正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("[Main] 服务强制关闭", zap.Error(err))
	}
	deps.Task.Stop()

	log.Info("[Main] 服务已退出")
	return serveErr
}
