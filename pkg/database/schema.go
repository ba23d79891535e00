package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"resto_supplier_sync/internal/model"
)

// Models 需要建表的全部模型
func Models() []interface{} {
	return []interface{}{
		&model.Supplier{},
		&model.SupplierAccount{},
		&model.SupplierTax{},
		&model.SyncRun{},
	}
}

// Provisioner 表结构初始化器
// 只做 CREATE TABLE IF NOT EXISTS 及补齐缺失列/索引，不做版本化迁移
type Provisioner struct {
	db     *gorm.DB
	models []interface{}
	logger *zap.Logger
}

// NewProvisioner 创建初始化器，models 为空时使用 Models()
func NewProvisioner(db *gorm.DB, logger *zap.Logger, models ...interface{}) *Provisioner {
	if len(models) == 0 {
		models = Models()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{db: db, models: models, logger: logger.Named("schema")}
}

// EnsureSchema 同步开始前调用一次，失败时调用方应直接退出
func (p *Provisioner) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	p.logger.Info("[DB] 开始初始化表结构", zap.Int("tables", len(p.models)))

	if err := p.db.WithContext(ctx).AutoMigrate(p.models...); err != nil {
		return fmt.Errorf("初始化表结构失败: %w", err)
	}

	p.logger.Info("[DB] 表结构初始化完成", zap.Duration("elapsed", time.Since(start)))
	return nil
}
