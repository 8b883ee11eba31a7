package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"qoo10_sync_v1_202609/internal/controller"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	syncCtl *controller.SyncController,
	categoryCtl *controller.CategoryController,
	productCtl *controller.ProductController,
	refdataCtl *controller.RefDataController) {

	// 健康检查
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// sync 同步运行
		sync := api.Group("/sync")
		{
			// POST /api/sync/run
			sync.POST("/run", syncCtl.RunSync)
		}

		// categories 分类映射复核
		categories := api.Group("/categories")
		{
			// GET /api/categories/suggestions
			categories.GET("/suggestions", categoryCtl.ListSuggestions)
			// POST /api/categories/mappings
			categories.POST("/mappings", categoryCtl.CreateManualMapping)
		}

		// products 商品状态查询
		products := api.Group("/products")
		{
			// GET /api/products
			products.GET("", productCtl.GetProducts)
		}

		// refdata 参考数据维护
		refdata := api.Group("/refdata")
		{
			// POST /api/refdata/taxonomy
			refdata.POST("/taxonomy", refdataCtl.ImportTaxonomy)
			// PUT /api/refdata/shipping-rates
			refdata.PUT("/shipping-rates", refdataCtl.ReplaceRateTable)
		}
	}
}
