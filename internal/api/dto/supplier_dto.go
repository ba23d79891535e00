package dto

import "time"

// ==================== 供应商查询 ====================

// ListSuppliersRequest 供应商列表请求
type ListSuppliersRequest struct {
	Keyword   string `form:"keyword"`    // 编码或名称
	IsEnabled *int8  `form:"is_enabled"` // 1启用 0禁用，不传为全部
	Page      int    `form:"page,default=1" binding:"min=1"`
	PageSize  int    `form:"page_size,default=20" binding:"min=1,max=200"`
}

// ListSuppliersResponse 供应商列表响应
type ListSuppliersResponse struct {
	Total int64              `json:"total"`
	List  []SupplierListItem `json:"list"`
}

// SupplierListItem 供应商列表项
type SupplierListItem struct {
	ID           int64     `json:"id"`
	SupplierCode *string   `json:"supplier_code"`
	SupplierName *string   `json:"supplier_name"`
	ShortName    *string   `json:"short_name"`
	IsEnabled    int8      `json:"is_enabled"`
	CategoryName *string   `json:"category_name"`
	ContactName  *string   `json:"contact_name"`
	ContactPhone *string   `json:"contact_phone"`
	SyncTime     time.Time `json:"sync_time"`
}

// SupplierDetailResp 供应商详情
type SupplierDetailResp struct {
	SupplierListItem
	CategoryCode        *string `json:"category_code"`
	Email               *string `json:"email"`
	RegionName          *string `json:"region_name"`
	ProvinceName        *string `json:"province_name"`
	CityName            *string `json:"city_name"`
	DistrictName        *string `json:"district_name"`
	AddressDetail       string  `json:"address_detail"`
	TaxEntityName       *string `json:"tax_entity_name"`
	TaxIdentificationNo *string `json:"tax_identification_no"`

	Accounts []SupplierAccountResp `json:"accounts"`
	Taxes    []SupplierTaxResp     `json:"taxes"`
}

// SupplierAccountResp 账户
type SupplierAccountResp struct {
	AccountName *string `json:"account_name"`
	AccountNo   *string `json:"account_no"`
	ChannelName *string `json:"channel_name"`
	IsDefault   *int    `json:"is_default"`
}

// SupplierTaxResp 税率
type SupplierTaxResp struct {
	TaxName  *string `json:"tax_name"`
	TaxCode  *string `json:"tax_code"`
	TaxType  *int    `json:"tax_type"`
	TaxValue *string `json:"tax_value"`
}

// ==================== 同步运行 ====================

// ListSyncRunsRequest 运行记录请求
type ListSyncRunsRequest struct {
	Limit int `form:"limit,default=20" binding:"min=1,max=100"`
}

// SyncRunResp 运行记录
type SyncRunResp struct {
	ID          int64      `json:"id"`
	Trigger     string     `json:"trigger"`
	Status      string     `json:"status"`
	StopReason  string     `json:"stop_reason"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	Pages       int        `json:"pages"`
	Fetched     int        `json:"fetched"`
	Written     int        `json:"written"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	FailedPages int        `json:"failed_pages"`
	ErrorMsg    string     `json:"error_msg,omitempty"`

	FailedSupplierIDs []int64 `json:"failed_supplier_ids,omitempty"`
}

// SyncStatusResp 当前同步状态
type SyncStatusResp struct {
	Running bool         `json:"running"`
	Last    *SyncRunResp `json:"last,omitempty"`
}
