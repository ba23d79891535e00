package resto

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// SuccessCode 开放平台业务成功码
const SuccessCode = "0"

// ==================== 响应信封 ====================

// Envelope 开放平台统一响应信封
type Envelope struct {
	Code    string   `json:"openapi-code"`
	Message string   `json:"openapi-msg"`
	BizData *BizData `json:"biz-data"`
}

// BizData querySuppliers 业务数据
// 供应商列表保留原始 JSON，逐条解析，单条脏数据不影响整页
type BizData struct {
	SupplierList []json.RawMessage `json:"supplierList"`
}

// Suppliers 取出供应商列表，路径缺失时返回空列表
func (e *Envelope) Suppliers() []json.RawMessage {
	if e == nil || e.BizData == nil {
		return nil
	}
	return e.BizData.SupplierList
}

// ErrorMessage 业务报错信息，平台未返回时给默认值
func (e *Envelope) ErrorMessage() string {
	if e.Message == "" {
		return "Unknown Error"
	}
	return e.Message
}

// ==================== 供应商原始结构 ====================

// SupplierData 单个供应商原始数据
// 类型不确定的字段用 any 接收，解码时需开启 UseNumber
type SupplierData struct {
	ID             any               `json:"id"`
	SupplierCode   Text              `json:"supplierCode"`
	SupplierName   Text              `json:"supplierName"`
	ShortName      Text              `json:"shortName"`
	IsEnabled      any               `json:"isEnabled"`
	CategoryCode   Text              `json:"categoryCode"`
	CategoryName   Text              `json:"categoryName"`
	ContactInfo    *ContactInfo      `json:"contactInfo"`
	FinanceExtInfo *FinanceExtInfo   `json:"financeExtInfo"`
	AccountList    []AccountInfoData `json:"accountInfoList"`
	TaxList        []TaxInfoData     `json:"taxInfoList"`
}

// ContactInfo 联系人信息
type ContactInfo struct {
	ContactBy     Text `json:"contactBy"`
	ContactNumber Text `json:"contactNumber"`
	Email         Text `json:"email"`
	RegionName    Text `json:"regionName"`
	ProvinceName  Text `json:"provinceName"`
	CityName      Text `json:"cityName"`
	DistrictName  Text `json:"districtName"`
	Street1       Text `json:"street1"`
	Street2       Text `json:"street2"`
	HouseNumber   Text `json:"houseNumber"`
}

// FinanceExtInfo 财务扩展信息
type FinanceExtInfo struct {
	TaxEntityName       Text `json:"taxEntityName"`
	TaxIdentificationNo Text `json:"taxIdentificationNo"`
}

// AccountInfoData 账户信息
type AccountInfoData struct {
	AccountName Text `json:"accountName"`
	AccountNo   Text `json:"accountNo"`
	ChannelName Text `json:"channelName"`
	IsDefault   any  `json:"isDefault"`
}

// TaxInfoData 税率信息
type TaxInfoData struct {
	TaxName  Text `json:"taxName"`
	TaxCode  Text `json:"taxCode"`
	TaxType  any  `json:"taxType"` // 1:按价 2:按量
	TaxValue Text `json:"taxValue"`
}

// ==================== 宽松文本 ====================

var textType = reflect.TypeOf("")

// Text 宽松文本字段：接受字符串、数字、布尔，null 或缺省视为无值
type Text struct {
	Value string
	Valid bool
}

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		t.Value, t.Valid = s, true
		return nil
	}

	// 数字与布尔按字面量原样保留
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch v.(type) {
	case json.Number, bool:
		t.Value, t.Valid = string(data), true
		return nil
	}
	return &json.UnmarshalTypeError{Value: string(data), Type: textType}
}

// Ptr 转换为可空字符串
func (t Text) Ptr() *string {
	if !t.Valid {
		return nil
	}
	v := t.Value
	return &v
}

// Present 有值且非空串
func (t Text) Present() bool {
	return t.Valid && t.Value != ""
}
