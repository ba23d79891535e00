package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"resto_supplier_sync/internal/model"
	"resto_supplier_sync/pkg/resto"
)

// NormalizeSupplier 解析单条原始供应商 JSON 并规整为待写入结构
// 数字按 json.Number 解码，数字与字符串两种表示都能保留
func NormalizeSupplier(raw json.RawMessage) (*model.NormalizedSupplier, error) {
	var data resto.SupplierData
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("解析供应商数据失败: %w", err)
	}
	return ToSupplierRecord(data), nil
}

// ToSupplierRecord 将原始结构转换为主表 + 子表行
func ToSupplierRecord(data resto.SupplierData) *model.NormalizedSupplier {
	id, ok := parseSupplierID(data.ID)
	if !ok {
		return &model.NormalizedSupplier{HasID: false}
	}

	contact := data.ContactInfo
	if contact == nil {
		contact = &resto.ContactInfo{}
	}
	finance := data.FinanceExtInfo
	if finance == nil {
		finance = &resto.FinanceExtInfo{}
	}

	rec := &model.NormalizedSupplier{
		HasID: true,
		Supplier: model.Supplier{
			ID:           id,
			SupplierCode: data.SupplierCode.Ptr(),
			SupplierName: data.SupplierName.Ptr(),
			ShortName:    data.ShortName.Ptr(),
			IsEnabled:    enabledFlag(data.IsEnabled),
			CategoryCode: data.CategoryCode.Ptr(),
			CategoryName: data.CategoryName.Ptr(),

			// 联系人
			ContactName:   contact.ContactBy.Ptr(),
			ContactPhone:  contact.ContactNumber.Ptr(),
			Email:         contact.Email.Ptr(),
			RegionName:    contact.RegionName.Ptr(),
			ProvinceName:  contact.ProvinceName.Ptr(),
			CityName:      contact.CityName.Ptr(),
			DistrictName:  contact.DistrictName.Ptr(),
			AddressDetail: ComposeAddress(contact.Street1, contact.Street2, contact.HouseNumber),

			// 财务
			TaxEntityName:       finance.TaxEntityName.Ptr(),
			TaxIdentificationNo: finance.TaxIdentificationNo.Ptr(),
		},
	}

	for _, acc := range data.AccountList {
		rec.Accounts = append(rec.Accounts, model.SupplierAccount{
			SupplierID:  id,
			AccountName: acc.AccountName.Ptr(),
			AccountNo:   acc.AccountNo.Ptr(),
			ChannelName: acc.ChannelName.Ptr(),
			IsDefault:   defaultFlag(acc.IsDefault),
		})
	}

	for _, tax := range data.TaxList {
		rec.Taxes = append(rec.Taxes, model.SupplierTax{
			SupplierID: id,
			TaxName:    tax.TaxName.Ptr(),
			TaxCode:    tax.TaxCode.Ptr(),
			TaxType:    intOrNil(tax.TaxType),
			TaxValue:   tax.TaxValue.Ptr(),
		})
	}

	return rec
}

// ComposeAddress 按顺序拼接非空地址片段，单个空格分隔，全部缺失时返回空串
func ComposeAddress(parts ...resto.Text) string {
	var fragments []string
	for _, p := range parts {
		if p.Present() {
			fragments = append(fragments, p.Value)
		}
	}
	return strings.Join(fragments, " ")
}

// ==================== 字段转换 ====================

// parseSupplierID 数字或数字字符串，0/空/非数字均视为缺失
func parseSupplierID(v any) (int64, bool) {
	var id int64
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}
		id = n
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, false
		}
		id = n
	default:
		return 0, false
	}
	return id, id != 0
}

// enabledFlag 仅布尔 true 记为启用
func enabledFlag(v any) int8 {
	if b, ok := v.(bool); ok && b {
		return model.SupplierEnabled
	}
	return model.SupplierDisabled
}

// defaultFlag 布尔映射为 1/0，数字取整，其它为 NULL
func defaultFlag(v any) *int {
	switch x := v.(type) {
	case bool:
		n := 0
		if x {
			n = 1
		}
		return &n
	case json.Number:
		if n, err := x.Int64(); err == nil {
			i := int(n)
			return &i
		}
		if f, err := x.Float64(); err == nil {
			i := int(f)
			return &i
		}
	}
	return nil
}

// intOrNil 整数或整数字符串，其它为 NULL
func intOrNil(v any) *int {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	default:
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
