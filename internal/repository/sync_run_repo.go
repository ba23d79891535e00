package repository

import (
	"context"

	"gorm.io/gorm"

	"resto_supplier_sync/internal/model"
)

// SyncRunRepository 同步运行记录仓储
type SyncRunRepository interface {
	Create(ctx context.Context, run *model.SyncRun) error
	Update(ctx context.Context, run *model.SyncRun) error
	GetByID(ctx context.Context, id int64) (*model.SyncRun, error)
	ListRecent(ctx context.Context, limit int) ([]model.SyncRun, error)
}

type syncRunRepo struct {
	db *gorm.DB
}

// NewSyncRunRepository 创建运行记录仓储
func NewSyncRunRepository(db *gorm.DB) SyncRunRepository {
	return &syncRunRepo{db: db}
}

func (r *syncRunRepo) Create(ctx context.Context, run *model.SyncRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *syncRunRepo) Update(ctx context.Context, run *model.SyncRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *syncRunRepo) GetByID(ctx context.Context, id int64) (*model.SyncRun, error) {
	var run model.SyncRun
	if err := r.db.WithContext(ctx).First(&run, id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRecent 最近的运行记录，新的在前
func (r *syncRunRepo) ListRecent(ctx context.Context, limit int) ([]model.SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []model.SyncRun
	err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
