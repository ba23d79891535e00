package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resto_supplier_sync/internal/model"
)

// ==================== 写入模式 ====================

// WriteMode 单页写入的事务隔离策略
type WriteMode string

const (
	// WriteModeLegacy 主表失败逐条隔离，子表失败整页回滚
	WriteModeLegacy WriteMode = "legacy"
	// WriteModeAtomic 主表与子表同一保存点，失败只回滚该条
	WriteModeAtomic WriteMode = "atomic"
)

// RecordFailure 单条写入失败
type RecordFailure struct {
	SupplierID int64
	Err        error
}

// PageWriteResult 单页写入统计
type PageWriteResult struct {
	Written  int
	Skipped  int
	Failed   int
	Failures []RecordFailure
}

// ==================== 接口定义 ====================

// SupplierRepository 供应商仓储接口
type SupplierRepository interface {
	// 同步写入
	SavePage(ctx context.Context, records []model.NormalizedSupplier, mode WriteMode) (PageWriteResult, error)

	// 查询
	GetByID(ctx context.Context, id int64) (*model.Supplier, error)
	List(ctx context.Context, filter SupplierFilter) ([]model.Supplier, int64, error)
	Count(ctx context.Context) (int64, error)

	// 事务
	WithTx(tx *gorm.DB) SupplierRepository
	Transaction(ctx context.Context, fn func(txRepo SupplierRepository) error) error
}

// ==================== 过滤条件 ====================

// SupplierFilter 供应商列表过滤条件
type SupplierFilter struct {
	Keyword   string // 匹配编码或名称
	IsEnabled *int8
	Page      int
	PageSize  int
}

// ==================== 仓储实现 ====================

type supplierRepo struct {
	db *gorm.DB
}

// NewSupplierRepository 创建供应商仓储
func NewSupplierRepository(db *gorm.DB) SupplierRepository {
	return &supplierRepo{db: db}
}

// SavePage 一页数据一个事务，整页提交一次
func (r *supplierRepo) SavePage(ctx context.Context, records []model.NormalizedSupplier, mode WriteMode) (PageWriteResult, error) {
	var result PageWriteResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result = PageWriteResult{}

		for i := range records {
			rec := &records[i]
			if !rec.HasID {
				result.Skipped++
				continue
			}

			if mode == WriteModeAtomic {
				err := tx.Transaction(func(sp *gorm.DB) error {
					if err := upsertSupplier(sp, &rec.Supplier); err != nil {
						return err
					}
					return replaceChildren(sp, rec)
				})
				if err != nil {
					result.fail(rec.Supplier.ID, err)
					continue
				}
				result.Written++
				continue
			}

			// legacy: 主表写入放进保存点，失败不影响外层事务
			if err := tx.Transaction(func(sp *gorm.DB) error {
				return upsertSupplier(sp, &rec.Supplier)
			}); err != nil {
				result.fail(rec.Supplier.ID, err)
				continue
			}

			if err := replaceChildren(tx, rec); err != nil {
				return fmt.Errorf("供应商 %d 子表写入失败: %w", rec.Supplier.ID, err)
			}
			result.Written++
		}
		return nil
	})
	if err != nil {
		// 整页回滚，没有任何行落库
		return PageWriteResult{}, err
	}
	return result, nil
}

func (p *PageWriteResult) fail(supplierID int64, err error) {
	p.Failed++
	p.Failures = append(p.Failures, RecordFailure{SupplierID: supplierID, Err: err})
}

// upsertSupplier 按主键 REPLACE 主表，所有列整体覆盖
func upsertSupplier(tx *gorm.DB, s *model.Supplier) error {
	return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(s).Error
}

// replaceChildren 子表列表非空时先删后插，空列表保留已有行
func replaceChildren(tx *gorm.DB, rec *model.NormalizedSupplier) error {
	id := rec.Supplier.ID

	if len(rec.Accounts) > 0 {
		if err := tx.Where("supplier_id = ?", id).Delete(&model.SupplierAccount{}).Error; err != nil {
			return err
		}
		for i := range rec.Accounts {
			rec.Accounts[i].ID = 0
			rec.Accounts[i].SupplierID = id
		}
		if err := tx.Create(&rec.Accounts).Error; err != nil {
			return err
		}
	}

	if len(rec.Taxes) > 0 {
		if err := tx.Where("supplier_id = ?", id).Delete(&model.SupplierTax{}).Error; err != nil {
			return err
		}
		for i := range rec.Taxes {
			rec.Taxes[i].ID = 0
			rec.Taxes[i].SupplierID = id
		}
		if err := tx.Create(&rec.Taxes).Error; err != nil {
			return err
		}
	}

	return nil
}

func (r *supplierRepo) GetByID(ctx context.Context, id int64) (*model.Supplier, error) {
	var supplier model.Supplier
	err := r.db.WithContext(ctx).
		Preload("Accounts", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Taxes", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&supplier, id).Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *supplierRepo) List(ctx context.Context, filter SupplierFilter) ([]model.Supplier, int64, error) {
	var suppliers []model.Supplier
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Supplier{})

	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		query = query.Where("supplier_code LIKE ? OR supplier_name LIKE ?", like, like)
	}
	if filter.IsEnabled != nil {
		query = query.Where("is_enabled = ?", *filter.IsEnabled)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	err := query.Order("id ASC").Offset(offset).Limit(filter.PageSize).Find(&suppliers).Error
	return suppliers, total, err
}

func (r *supplierRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Supplier{}).Count(&total).Error
	return total, err
}

// ==================== 事务支持 ====================

func (r *supplierRepo) WithTx(tx *gorm.DB) SupplierRepository {
	return &supplierRepo{db: tx}
}

func (r *supplierRepo) Transaction(ctx context.Context, fn func(txRepo SupplierRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
