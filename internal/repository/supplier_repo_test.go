package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resto_supplier_sync/internal/model"
)

func setupSupplierTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	// 内存库每个连接独立，固定单连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&model.Supplier{}, &model.SupplierAccount{}, &model.SupplierTax{}, &model.SyncRun{})
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

// newRecord 构造一条待写入记录，accounts 为账户名列表
func newRecord(id int64, name string, accounts ...string) model.NormalizedSupplier {
	rec := model.NormalizedSupplier{
		HasID: id != 0,
		Supplier: model.Supplier{
			ID:           id,
			SupplierName: strPtr(name),
			IsEnabled:    model.SupplierEnabled,
		},
	}
	for _, acc := range accounts {
		rec.Accounts = append(rec.Accounts, model.SupplierAccount{SupplierID: id, AccountName: strPtr(acc)})
	}
	return rec
}

func withTaxes(rec model.NormalizedSupplier, names ...string) model.NormalizedSupplier {
	for _, n := range names {
		rec.Taxes = append(rec.Taxes, model.SupplierTax{
			SupplierID: rec.Supplier.ID,
			TaxName:    strPtr(n),
			TaxType:    intPtr(model.TaxTypeByValue),
		})
	}
	return rec
}

func accountNames(t *testing.T, db *gorm.DB, supplierID int64) []string {
	t.Helper()
	var rows []model.SupplierAccount
	require.NoError(t, db.Where("supplier_id = ?", supplierID).Order("id ASC").Find(&rows).Error)
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, *r.AccountName)
	}
	return names
}

func countRows(t *testing.T, db *gorm.DB, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

// failCreate 注册一个 create 回调，命中条件时让该语句失败
func failCreate(t *testing.T, db *gorm.DB, name string, match func(dest any) bool) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if match(tx.Statement.Dest) {
			tx.AddError(errors.New("injected failure"))
		}
	})
	require.NoError(t, err)
}

func supplierIs(id int64) func(dest any) bool {
	return func(dest any) bool {
		s, ok := dest.(*model.Supplier)
		return ok && s.ID == id
	}
}

func accountsOf(id int64) func(dest any) bool {
	return func(dest any) bool {
		rows, ok := dest.(*[]model.SupplierAccount)
		return ok && len(*rows) > 0 && (*rows)[0].SupplierID == id
	}
}

// ==================== SavePage ====================

func TestSupplierRepo_SavePage_SkipsMissingID(t *testing.T) {
	db := setupSupplierTestDB(t)
	repo := NewSupplierRepository(db)

	res, err := repo.SavePage(context.Background(), []model.NormalizedSupplier{
		newRecord(0, "无ID", "acc"),
		newRecord(1, "A"),
	}, WriteModeLegacy)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Written)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, int64(1), countRows(t, db, &model.Supplier{}))
	assert.Equal(t, int64(0), countRows(t, db, &model.SupplierAccount{}))
}

func TestSupplierRepo_SavePage_ReplacesParent(t *testing.T) {
	db := setupSupplierTestDB(t)
	repo := NewSupplierRepository(db)
	ctx := context.Background()

	first := newRecord(7, "旧名称")
	first.Supplier.SupplierCode = strPtr("S7")
	_, err := repo.SavePage(ctx, []model.NormalizedSupplier{first}, WriteModeLegacy)
	require.NoError(t, err)

	// 第二次写入缺少 supplier_code，整行覆盖为 NULL
	second := newRecord(7, "新名称")
	second.Supplier.IsEnabled = model.SupplierDisabled
	_, err = repo.SavePage(ctx, []model.NormalizedSupplier{second}, WriteModeLegacy)
	require.NoError(t, err)

	assert.Equal(t, int64(1), countRows(t, db, &model.Supplier{}))

	got, err := repo.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "新名称", *got.SupplierName)
	assert.Nil(t, got.SupplierCode)
	assert.Equal(t, model.SupplierDisabled, got.IsEnabled)
	assert.False(t, got.SyncTime.IsZero())
}

func TestSupplierRepo_SavePage_ChildReplacement(t *testing.T) {
	db := setupSupplierTestDB(t)
	repo := NewSupplierRepository(db)
	ctx := context.Background()

	_, err := repo.SavePage(ctx, []model.NormalizedSupplier{
		withTaxes(newRecord(1, "A", "a1", "a2", "a3"), "VAT"),
		newRecord(2, "B", "b1"),
	}, WriteModeLegacy)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3"}, accountNames(t, db, 1))

	// 新列表 2 条：恰好替换为 2 条且保持顺序；税率列表为空时保留原有行
	_, err = repo.SavePage(ctx, []model.NormalizedSupplier{
		newRecord(1, "A", "x2", "x1"),
	}, WriteModeLegacy)
	require.NoError(t, err)

	assert.Equal(t, []string{"x2", "x1"}, accountNames(t, db, 1))
	assert.Equal(t, []string{"b1"}, accountNames(t, db, 2))

	var taxes []model.SupplierTax
	require.NoError(t, db.Where("supplier_id = ?", 1).Find(&taxes).Error)
	require.Len(t, taxes, 1)
	assert.Equal(t, "VAT", *taxes[0].TaxName)
}

func TestSupplierRepo_SavePage_EmptyListKeepsRows(t *testing.T) {
	db := setupSupplierTestDB(t)
	repo := NewSupplierRepository(db)
	ctx := context.Background()

	_, err := repo.SavePage(ctx, []model.NormalizedSupplier{newRecord(3, "C", "c1", "c2")}, WriteModeLegacy)
	require.NoError(t, err)

	_, err = repo.SavePage(ctx, []model.NormalizedSupplier{newRecord(3, "C2")}, WriteModeLegacy)
	require.NoError(t, err)

	assert.Equal(t, []string{"c1", "c2"}, accountNames(t, db, 3))
}

func TestSupplierRepo_SavePage_ParentFailureIsolated(t *testing.T) {
	for _, mode := range []WriteMode{WriteModeLegacy, WriteModeAtomic} {
		t.Run(string(mode), func(t *testing.T) {
			db := setupSupplierTestDB(t)
			failCreate(t, db, "test:fail_supplier_2", supplierIs(2))
			repo := NewSupplierRepository(db)

			res, err := repo.SavePage(context.Background(), []model.NormalizedSupplier{
				newRecord(1, "A", "a1"),
				newRecord(2, "B", "b1"),
				newRecord(3, "C", "c1"),
			}, mode)
			require.NoError(t, err)

			assert.Equal(t, 2, res.Written)
			assert.Equal(t, 1, res.Failed)
			require.Len(t, res.Failures, 1)
			assert.Equal(t, int64(2), res.Failures[0].SupplierID)

			var ids []int64
			require.NoError(t, db.Model(&model.Supplier{}).Order("id").Pluck("id", &ids).Error)
			assert.Equal(t, []int64{1, 3}, ids)

			// 主表失败的记录不写子表
			assert.Empty(t, accountNames(t, db, 2))
			assert.Equal(t, []string{"c1"}, accountNames(t, db, 3))
		})
	}
}

func TestSupplierRepo_SavePage_LegacyChildFailureRollsBackPage(t *testing.T) {
	db := setupSupplierTestDB(t)
	repo := NewSupplierRepository(db)
	ctx := context.Background()

	_, err := repo.SavePage(ctx, []model.NormalizedSupplier{newRecord(2, "B-旧", "old")}, WriteModeLegacy)
	require.NoError(t, err)

	failCreate(t, db, "test:fail_accounts_2", accountsOf(2))

	res, err := repo.SavePage(ctx, []model.NormalizedSupplier{
		newRecord(1, "A", "a1"),
		newRecord(2, "B-新", "b1"),
		newRecord(3, "C", "c1"),
	}, WriteModeLegacy)
	require.Error(t, err)
	assert.Equal(t, PageWriteResult{}, res)

	// 整页回滚：本页任何行都不落库，旧数据保持原样
	assert.Equal(t, int64(1), countRows(t, db, &model.Supplier{}))
	got, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "B-旧", *got.SupplierName)
	assert.Equal(t, []string{"old"}, accountNames(t, db, 2))
}

func TestSupplierRepo_SavePage_AtomicChildFailureRollsBackRecord(t *testing.T) {
	db := setupSupplierTestDB(t)
	repo := NewSupplierRepository(db)
	ctx := context.Background()

	_, err := repo.SavePage(ctx, []model.NormalizedSupplier{newRecord(2, "B-旧", "old")}, WriteModeAtomic)
	require.NoError(t, err)

	failCreate(t, db, "test:fail_accounts_2", accountsOf(2))

	res, err := repo.SavePage(ctx, []model.NormalizedSupplier{
		newRecord(1, "A", "a1"),
		newRecord(2, "B-新", "b1"),
		newRecord(3, "C", "c1"),
	}, WriteModeAtomic)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 1, res.Failed)

	assert.Equal(t, int64(3), countRows(t, db, &model.Supplier{}))
	got, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "B-旧", *got.SupplierName)
	assert.Equal(t, []string{"old"}, accountNames(t, db, 2))
	assert.Equal(t, []string{"a1"}, accountNames(t, db, 1))
}

// ==================== 查询 ====================

func TestSupplierRepo_GetByID_WithChildren(t *testing.T) {
	db := setupSupplierTestDB(t)
	repo := NewSupplierRepository(db)
	ctx := context.Background()

	_, err := repo.SavePage(ctx, []model.NormalizedSupplier{
		withTaxes(newRecord(5, "E", "e1", "e2"), "VAT", "GST"),
	}, WriteModeLegacy)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got.Accounts, 2)
	require.Len(t, got.Taxes, 2)
	assert.Equal(t, "e1", *got.Accounts[0].AccountName)
	assert.Equal(t, "GST", *got.Taxes[1].TaxName)

	_, err = repo.GetByID(ctx, 404)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSupplierRepo_List(t *testing.T) {
	db := setupSupplierTestDB(t)
	repo := NewSupplierRepository(db)
	ctx := context.Background()

	var page []model.NormalizedSupplier
	for i := int64(1); i <= 5; i++ {
		rec := newRecord(i, "供应商")
		if i%2 == 0 {
			rec.Supplier.SupplierName = strPtr("冷链物流")
			rec.Supplier.IsEnabled = model.SupplierDisabled
		}
		page = append(page, rec)
	}
	_, err := repo.SavePage(ctx, page, WriteModeLegacy)
	require.NoError(t, err)

	tests := []struct {
		name      string
		filter    SupplierFilter
		wantTotal int64
		wantLen   int
	}{
		{"全部", SupplierFilter{}, 5, 5},
		{"分页", SupplierFilter{Page: 2, PageSize: 2}, 5, 2},
		{"关键字", SupplierFilter{Keyword: "冷链"}, 2, 2},
		{"启用状态", SupplierFilter{IsEnabled: func() *int8 { v := model.SupplierEnabled; return &v }()}, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			assert.Len(t, list, tt.wantLen)
		})
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestSupplierRepo_Transaction(t *testing.T) {
	db := setupSupplierTestDB(t)
	repo := NewSupplierRepository(db)
	ctx := context.Background()

	err := repo.Transaction(ctx, func(txRepo SupplierRepository) error {
		if _, err := txRepo.SavePage(ctx, []model.NormalizedSupplier{newRecord(9, "I")}, WriteModeLegacy); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)
	assert.Equal(t, int64(0), countRows(t, db, &model.Supplier{}))
}
