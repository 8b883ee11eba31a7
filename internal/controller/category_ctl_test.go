package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"qoo10_sync_v1_202609/internal/model"
	"qoo10_sync_v1_202609/internal/repository"
	"qoo10_sync_v1_202609/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 测试辅助 ====================

func setupCategoryTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	err = db.AutoMigrate(&model.Product{}, &model.CategoryMapping{}, &model.CategoryNode{}, &model.ShippingRateBand{})
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	mappingRepo := repository.NewMappingRepository(db)
	productRepo := repository.NewProductRepository(db)
	refdata := service.NewReferenceData(
		mappingRepo,
		repository.NewTaxonomyRepository(db),
		repository.NewShippingRateRepository(db),
	)

	r := gin.New()
	ctl := NewCategoryController(mappingRepo, productRepo, refdata)
	r.GET("/api/categories/suggestions", ctl.ListSuggestions)
	r.POST("/api/categories/mappings", ctl.CreateManualMapping)
	return r, db
}

func performJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ==================== 参数验证 ====================

func TestCreateManualMapping_InvalidParams(t *testing.T) {
	router, _ := setupCategoryTestRouter(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"空请求体", nil},
		{"缺少 source_path", map[string]interface{}{"target_category_id": "Q-100"}},
		{"缺少 target_category_id", map[string]interface{}{"source_path": "가전 > 냉장고"}},
		{"源路径规范化后为空", map[string]interface{}{"source_path": " > > ", "target_category_id": "Q-100"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(router, "POST", "/api/categories/mappings", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

// ==================== 人工映射 ====================

func TestCreateManualMapping_MarksDirty(t *testing.T) {
	router, db := setupCategoryTestRouter(t)

	// 同源路径的已上架商品：映射确认后应被标脏
	listed := model.Product{
		SourceItemID:    "item-1",
		CategoryKey:     "가전 > 냉장고 > 양문형",
		RemoteListingID: "900001",
		SyncStatus:      model.SyncStatusSyncedClean,
	}
	assert.NoError(t, db.Create(&listed).Error)

	// 原始路径带多余空白，控制器负责规范化
	w := performJSON(router, "POST", "/api/categories/mappings", map[string]interface{}{
		"source_path":        "가전>냉장고  >  양문형",
		"target_category_id": "Q-REF-01",
		"operator":           "ops-kim",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "가전 > 냉장고 > 양문형", resp["source_key"])
	assert.Equal(t, float64(1), resp["dirty_marked"])

	// 映射落库为 MANUAL
	var mapping model.CategoryMapping
	assert.NoError(t, db.Where("source_key = ?", "가전 > 냉장고 > 양문형").First(&mapping).Error)
	assert.Equal(t, model.MatchTypeManual, mapping.MatchType)
	assert.Equal(t, "Q-REF-01", mapping.TargetCategoryID)
	assert.Equal(t, "ops-kim", mapping.CreatedBy)

	// 商品被标脏
	var saved model.Product
	assert.NoError(t, db.Where("source_item_id = ?", "item-1").First(&saved).Error)
	assert.True(t, saved.Dirty)
	assert.Equal(t, model.SyncStatusSyncedDirty, saved.SyncStatus)
}

// ==================== 建议列表 ====================

func TestListSuggestions(t *testing.T) {
	router, db := setupCategoryTestRouter(t)

	rows := []model.CategoryMapping{
		{SourceKey: "가전 > 냉장고 > 양문형", TargetCategoryID: "Q-100", MatchType: model.MatchTypeAuto, Confidence: 0.8},
		{SourceKey: "가전 > 냉장고 > 양문형", TargetCategoryID: "Q-200", MatchType: model.MatchTypeAuto, Confidence: 0.5},
		{SourceKey: "패션 > 가방", TargetCategoryID: "Q-300", MatchType: model.MatchTypeManual, Confidence: 1.0},
	}
	assert.NoError(t, db.Create(&rows).Error)

	w := performJSON(router, "GET", "/api/categories/suggestions?page=1&page_size=10", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total int64 `json:"total"`
		Items []struct {
			MatchType string `json:"match_type"`
		} `json:"items"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// 只返回 AUTO 建议，MANUAL 不混入
	assert.Equal(t, int64(2), resp.Total)
	for _, item := range resp.Items {
		assert.Equal(t, model.MatchTypeAuto, item.MatchType)
	}
}
