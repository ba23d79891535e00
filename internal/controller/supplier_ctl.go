package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resto_supplier_sync/internal/api/dto"
	"resto_supplier_sync/internal/model"
	"resto_supplier_sync/internal/repository"
)

// SupplierController 供应商查询
type SupplierController struct {
	repo repository.SupplierRepository
}

// NewSupplierController 创建供应商控制器
func NewSupplierController(repo repository.SupplierRepository) *SupplierController {
	return &SupplierController{repo: repo}
}

// List 供应商列表
func (c *SupplierController) List(ctx *gin.Context) {
	var req dto.ListSuppliersRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	suppliers, total, err := c.repo.List(ctx.Request.Context(), repository.SupplierFilter{
		Keyword:   req.Keyword,
		IsEnabled: req.IsEnabled,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	list := make([]dto.SupplierListItem, 0, len(suppliers))
	for i := range suppliers {
		list = append(list, toListItem(&suppliers[i]))
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": dto.ListSuppliersResponse{Total: total, List: list},
	})
}

// GetByID 供应商详情，含账户和税率
func (c *SupplierController) GetByID(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		return
	}

	supplier, err := c.repo.GetByID(ctx.Request.Context(), id)
	if err != nil {
		respondLookupError(ctx, err, "供应商不存在")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": buildSupplierDetail(supplier)})
}

// ==================== 辅助函数 ====================

func respondLookupError(ctx *gin.Context, err error, notFound string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": notFound})
		return
	}
	ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
}

func toListItem(s *model.Supplier) dto.SupplierListItem {
	return dto.SupplierListItem{
		ID:           s.ID,
		SupplierCode: s.SupplierCode,
		SupplierName: s.SupplierName,
		ShortName:    s.ShortName,
		IsEnabled:    s.IsEnabled,
		CategoryName: s.CategoryName,
		ContactName:  s.ContactName,
		ContactPhone: s.ContactPhone,
		SyncTime:     s.SyncTime,
	}
}

func buildSupplierDetail(s *model.Supplier) dto.SupplierDetailResp {
	resp := dto.SupplierDetailResp{
		SupplierListItem:    toListItem(s),
		CategoryCode:        s.CategoryCode,
		Email:               s.Email,
		RegionName:          s.RegionName,
		ProvinceName:        s.ProvinceName,
		CityName:            s.CityName,
		DistrictName:        s.DistrictName,
		AddressDetail:       s.AddressDetail,
		TaxEntityName:       s.TaxEntityName,
		TaxIdentificationNo: s.TaxIdentificationNo,
		Accounts:            make([]dto.SupplierAccountResp, 0, len(s.Accounts)),
		Taxes:               make([]dto.SupplierTaxResp, 0, len(s.Taxes)),
	}

	for _, a := range s.Accounts {
		resp.Accounts = append(resp.Accounts, dto.SupplierAccountResp{
			AccountName: a.AccountName,
			AccountNo:   a.AccountNo,
			ChannelName: a.ChannelName,
			IsDefault:   a.IsDefault,
		})
	}
	for _, t := range s.Taxes {
		resp.Taxes = append(resp.Taxes, dto.SupplierTaxResp{
			TaxName:  t.TaxName,
			TaxCode:  t.TaxCode,
			TaxType:  t.TaxType,
			TaxValue: t.TaxValue,
		})
	}
	return resp
}
