package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qoo10_sync_v1_202609/internal/api/dto"
	"qoo10_sync_v1_202609/internal/repository"
)

type ProductController struct {
	productRepo repository.ProductRepository
}

func NewProductController(productRepo repository.ProductRepository) *ProductController {
	return &ProductController{productRepo: productRepo}
}

// GetProducts 分页查询商品同步状态
// GET /api/products?sync_status=SYNC_FAILED&keyword=냉장고&page=1&page_size=20
func (c *ProductController) GetProducts(ctx *gin.Context) {
	var req dto.ProductListReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	rows, total, err := c.productRepo.List(ctx.Request.Context(), repository.ProductFilter{
		SyncStatus: req.SyncStatus,
		Keyword:    req.Keyword,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]dto.ProductItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.ProductItem{
			ID:               row.ID,
			SourceItemID:     row.SourceItemID,
			Title:            row.Title,
			CategoryPath3:    row.CategoryPath3,
			TargetCategoryID: row.TargetCategoryID,
			MatchType:        row.CategoryMatchType,
			SalePrice:        row.SalePrice,
			RemoteListingID:  row.RemoteListingID,
			SyncStatus:       row.SyncStatus,
			Dirty:            row.Dirty,
			SyncError:        row.SyncError,
		})
	}

	ctx.JSON(http.StatusOK, dto.ProductListResp{Total: total, Items: items})
}
