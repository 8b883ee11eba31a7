package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qoo10_sync_v1_202609/internal/api/dto"
	"qoo10_sync_v1_202609/internal/model"
	"qoo10_sync_v1_202609/internal/repository"
	"qoo10_sync_v1_202609/internal/service"
)

// RefDataController 参考数据维护：目标分类树、重量段运费表
type RefDataController struct {
	taxonomyRepo repository.TaxonomyRepository
	rateRepo     repository.ShippingRateRepository
	refdata      *service.ReferenceData
}

func NewRefDataController(
	taxonomyRepo repository.TaxonomyRepository,
	rateRepo repository.ShippingRateRepository,
	refdata *service.ReferenceData,
) *RefDataController {
	return &RefDataController{
		taxonomyRepo: taxonomyRepo,
		rateRepo:     rateRepo,
		refdata:      refdata,
	}
}

// ImportTaxonomy 批量导入目标市场分类树
// POST /api/refdata/taxonomy
// 按 target_id upsert，已有节点更新，新节点插入
func (c *RefDataController) ImportTaxonomy(ctx *gin.Context) {
	var req dto.TaxonomyImportReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	nodes := make([]model.CategoryNode, 0, len(req.Nodes))
	for _, n := range req.Nodes {
		nodes = append(nodes, model.CategoryNode{
			TargetID:  n.TargetID,
			ParentID:  n.ParentID,
			Depth:     n.Depth,
			Name:      n.Name,
			FullPath:  n.FullPath,
			IsLeaf:    n.IsLeaf,
			SortOrder: n.SortOrder,
		})
	}

	if err := c.taxonomyRepo.BatchUpsert(ctx.Request.Context(), nodes); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// 导入后让缓存失效，下一轮运行重新加载
	c.refdata.Reset()
	ctx.JSON(http.StatusOK, dto.ImportResp{Imported: len(nodes)})
}

// ReplaceRateTable 整表替换重量段运费表
// PUT /api/refdata/shipping-rates
// 运费表是整体维护的小表，替换而非逐行修补
func (c *RefDataController) ReplaceRateTable(ctx *gin.Context) {
	var req dto.RateTableReplaceReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	bands := make([]model.ShippingRateBand, 0, len(req.Bands))
	for _, b := range req.Bands {
		if b.LowerKg < 0 || b.UpperKg <= b.LowerKg {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "运费段区间不合法"})
			return
		}
		bands = append(bands, model.ShippingRateBand{
			LowerKg: b.LowerKg,
			UpperKg: b.UpperKg,
			Fee:     b.Fee,
		})
	}

	if err := c.rateRepo.ReplaceAll(ctx.Request.Context(), bands); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.refdata.Reset()
	ctx.JSON(http.StatusOK, dto.ImportResp{Imported: len(bands)})
}
