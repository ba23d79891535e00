package model

import "time"

// 启用状态
const (
	SupplierDisabled int8 = 0
	SupplierEnabled  int8 = 1
)

// 税种类型
const (
	TaxTypeByValue    = 1 // 按价
	TaxTypeByQuantity = 2 // 按量
)

// Supplier 供应商主表
// ID 由开放平台分配，本地从不生成
type Supplier struct {
	ID           int64   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	SupplierCode *string `gorm:"size:64;index:idx_supplier_code" json:"supplier_code"`
	SupplierName *string `gorm:"size:128" json:"supplier_name"`
	ShortName    *string `gorm:"size:64" json:"short_name"`
	IsEnabled    int8    `gorm:"type:smallint;not null" json:"is_enabled"` // 1启用 0禁用
	CategoryCode *string `gorm:"size:64" json:"category_code"`
	CategoryName *string `gorm:"size:128" json:"category_name"`

	// --- 联系人 ---
	ContactName   *string `gorm:"size:64" json:"contact_name"`
	ContactPhone  *string `gorm:"size:32" json:"contact_phone"`
	Email         *string `gorm:"size:128" json:"email"`
	RegionName    *string `gorm:"size:64" json:"region_name"`
	ProvinceName  *string `gorm:"size:64" json:"province_name"`
	CityName      *string `gorm:"size:64" json:"city_name"`
	DistrictName  *string `gorm:"size:64" json:"district_name"`
	AddressDetail string  `gorm:"size:255;not null" json:"address_detail"` // 街道+门牌拼接，无片段时为空串

	// --- 财务 ---
	TaxEntityName       *string `gorm:"size:128" json:"tax_entity_name"`
	TaxIdentificationNo *string `gorm:"size:64" json:"tax_identification_no"`

	SyncTime time.Time `gorm:"autoUpdateTime" json:"sync_time"`

	// --- 关联 (只读展示，写入走 SavePage) ---
	Accounts []SupplierAccount `gorm:"foreignKey:SupplierID;references:ID" json:"accounts,omitempty"`
	Taxes    []SupplierTax     `gorm:"foreignKey:SupplierID;references:ID" json:"taxes,omitempty"`
}

func (Supplier) TableName() string {
	return "supplier_main"
}

// SupplierAccount 供应商账户信息
type SupplierAccount struct {
	ID          int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	SupplierID  int64   `gorm:"not null;index:idx_supplier_account_supplier_id" json:"supplier_id"`
	AccountName *string `gorm:"size:128" json:"account_name"`
	AccountNo   *string `gorm:"size:64" json:"account_no"`
	ChannelName *string `gorm:"size:128" json:"channel_name"` // 银行/渠道名称
	IsDefault   *int    `gorm:"type:smallint" json:"is_default"`
}

func (SupplierAccount) TableName() string {
	return "supplier_account"
}

// SupplierTax 供应商税率信息
type SupplierTax struct {
	ID         int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	SupplierID int64   `gorm:"not null;index:idx_supplier_tax_supplier_id" json:"supplier_id"`
	TaxName    *string `gorm:"size:64" json:"tax_name"`
	TaxCode    *string `gorm:"size:64" json:"tax_code"`
	TaxType    *int    `json:"tax_type"`
	TaxValue   *string `gorm:"size:32" json:"tax_value"` // 数值与百分比混用，按文本存
}

func (SupplierTax) TableName() string {
	return "supplier_tax"
}

// NormalizedSupplier 一条上游供应商记录规整后的待写入数据
// HasID 为 false 时整条跳过，子表顺序与上游列表一致
type NormalizedSupplier struct {
	Supplier Supplier
	Accounts []SupplierAccount
	Taxes    []SupplierTax
	HasID    bool
}
