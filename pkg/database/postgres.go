package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options 连接参数
type Options struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	LogLevel     string // silent / error / warn / info
}

// ParseLogLevel gorm SQL 日志级别，未知值按 warn 处理
func ParseLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Open 打开 postgres 连接并设置连接池
func Open(opts Options, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(opts.DSN), GormConfig(opts.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	if err := ConfigurePool(db, opts); err != nil {
		return nil, err
	}

	if log != nil {
		log.Info("[DB] 数据库连接成功", zap.Int("max_open_conns", opts.MaxOpenConns))
	}
	return db, nil
}

// GormConfig 统一的 gorm 配置，测试的 sqlite 连接也走这里
func GormConfig(level string) *gorm.Config {
	return &gorm.Config{
		Logger:                                   logger.Default.LogMode(ParseLogLevel(level)),
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

// ConfigurePool 连接池参数
func ConfigurePool(db *gorm.DB, opts Options) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 SQL DB 失败: %w", err)
	}

	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 1
	}
	if opts.MaxIdleConns <= 0 || opts.MaxIdleConns > opts.MaxOpenConns {
		opts.MaxIdleConns = opts.MaxOpenConns
	}

	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return nil
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
