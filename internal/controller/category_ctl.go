package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"qoo10_sync_v1_202609/internal/api/dto"
	"qoo10_sync_v1_202609/internal/model"
	"qoo10_sync_v1_202609/internal/repository"
	"qoo10_sync_v1_202609/internal/service"
)

type CategoryController struct {
	mappingRepo repository.MappingRepository
	productRepo repository.ProductRepository
	refdata     *service.ReferenceData
}

func NewCategoryController(
	mappingRepo repository.MappingRepository,
	productRepo repository.ProductRepository,
	refdata *service.ReferenceData,
) *CategoryController {
	return &CategoryController{
		mappingRepo: mappingRepo,
		productRepo: productRepo,
		refdata:     refdata,
	}
}

// ListSuggestions 列出待人工复核的 AUTO 建议
// GET /api/categories/suggestions?page=1&page_size=20
func (c *CategoryController) ListSuggestions(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("page_size", "20"))

	rows, total, err := c.mappingRepo.ListByMatchType(ctx.Request.Context(), model.MatchTypeAuto, page, pageSize)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]dto.MappingItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.MappingItem{
			ID:               row.ID,
			SourceKey:        row.SourceKey,
			TargetCategoryID: row.TargetCategoryID,
			MatchType:        row.MatchType,
			Confidence:       row.Confidence,
			TargetFullPath:   row.TargetFullPath,
			CreatedBy:        row.CreatedBy,
		})
	}

	ctx.JSON(http.StatusOK, dto.MappingListResp{Total: total, Items: items})
}

// CreateManualMapping 运营确认人工映射
// POST /api/categories/mappings
// 人工条目权威：之后的解析遇到同源路径一律命中该条目，
// 同时把同源路径的已上架商品标脏。
func (c *CategoryController) CreateManualMapping(ctx *gin.Context) {
	var req dto.ManualMappingReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	sourceKey := service.NormalizeCategoryPath(req.SourcePath)
	if sourceKey == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "源路径规范化后为空"})
		return
	}

	operator := req.Operator
	if operator == "" {
		operator = "ops"
	}

	mapping := &model.CategoryMapping{
		SourceKey:        sourceKey,
		TargetCategoryID: req.TargetCategoryID,
		MatchType:        model.MatchTypeManual,
		Confidence:       1.0,
		TargetFullPath:   req.TargetFullPath,
	}
	mapping.CreatedBy = operator

	if err := c.refdata.AppendMapping(ctx.Request.Context(), mapping); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	marked, err := c.productRepo.MarkDirtyByCategoryKey(ctx.Request.Context(), sourceKey)
	if err != nil {
		// 映射已落库，标脏失败只记录在响应里，不回滚
		ctx.JSON(http.StatusOK, dto.ManualMappingResp{SourceKey: sourceKey, DirtyMarked: 0})
		return
	}

	ctx.JSON(http.StatusOK, dto.ManualMappingResp{SourceKey: sourceKey, DirtyMarked: marked})
}
