package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resto_supplier_sync/internal/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig("silent"))
	require.NoError(t, err)
	require.NoError(t, ConfigurePool(db, Options{MaxOpenConns: 1}))
	return db
}

func TestProvisioner_EnsureSchema(t *testing.T) {
	db := openTestDB(t)
	p := NewProvisioner(db, nil)

	require.NoError(t, p.EnsureSchema(context.Background()))
	// 幂等
	require.NoError(t, p.EnsureSchema(context.Background()))

	for _, table := range []string{"supplier_main", "supplier_account", "supplier_tax", "supplier_sync_runs"} {
		assert.True(t, db.Migrator().HasTable(table), "缺少表 %s", table)
	}
	assert.True(t, db.Migrator().HasIndex(&model.Supplier{}, "idx_supplier_code"))
	assert.True(t, db.Migrator().HasIndex(&model.SupplierAccount{}, "idx_supplier_account_supplier_id"))
	assert.True(t, db.Migrator().HasIndex(&model.SupplierTax{}, "idx_supplier_tax_supplier_id"))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logger.LogLevel
	}{
		{"silent", logger.Silent},
		{"error", logger.Error},
		{"warn", logger.Warn},
		{"info", logger.Info},
		{"", logger.Warn},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLogLevel(tt.in), tt.in)
	}
}

func TestConfigurePool(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, ConfigurePool(db, Options{MaxOpenConns: 4, MaxIdleConns: 10}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 4, sqlDB.Stats().MaxOpenConnections)
	require.NoError(t, Close(db))
}
