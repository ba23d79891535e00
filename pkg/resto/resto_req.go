package resto

import (
	"bytes"
	"encoding/json"
)

// PageSize 每页固定条数，签名体中的 pageSize 与翻页终止判断共用此值
const PageSize = 50

// QuerySuppliersReq querySuppliers 请求体
// 字段顺序即序列化顺序，签名依赖该顺序，不要调整
type QuerySuppliersReq struct {
	CorporationID int64  `json:"corporationId"`
	PageNo        int    `json:"pageNo"`
	PageSize      int    `json:"pageSize"`
	OrgCode       string `json:"orgCode,omitempty"` // 为空时字段整体缺省
}

// NewQuerySuppliersReq 构建分页查询请求
func NewQuerySuppliersReq(corporationID int64, pageNo int, orgCode string) QuerySuppliersReq {
	return QuerySuppliersReq{
		CorporationID: corporationID,
		PageNo:        pageNo,
		PageSize:      PageSize,
		OrgCode:       orgCode,
	}
}

// Marshal 紧凑序列化：无空白、不转义 HTML、不追加换行
func (r QuerySuppliersReq) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
