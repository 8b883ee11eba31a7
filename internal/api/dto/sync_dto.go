package dto

import "qoo10_sync_v1_202609/internal/model"

// ==================== 同步运行 ====================

// SyncRunReq 手动触发一轮同步
type SyncRunReq struct {
	Limit  int  `json:"limit"`   // <=0 不限条数
	DryRun bool `json:"dry_run"` // 试运行：只算决策，不调远程不落库
}

// SyncRunResp 同步运行结果
type SyncRunResp struct {
	RunID     string               `json:"run_id"`
	Total     int                  `json:"total"`
	DryRun    bool                 `json:"dry_run"`
	Counts    map[string]int       `json:"counts"`
	Decisions []model.SyncDecision `json:"decisions,omitempty"`
}

// ==================== 商品列表 ====================

// ProductListReq 商品列表查询
type ProductListReq struct {
	SyncStatus string `form:"sync_status"`
	Keyword    string `form:"keyword"`
	Page       int    `form:"page,default=1"`
	PageSize   int    `form:"page_size,default=20"`
}

// ProductItem 商品列表项
type ProductItem struct {
	ID               int64  `json:"id"`
	SourceItemID     string `json:"source_item_id"`
	Title            string `json:"title"`
	CategoryPath3    string `json:"category_path3"`
	TargetCategoryID string `json:"target_category_id"`
	MatchType        string `json:"match_type"`
	SalePrice        int64  `json:"sale_price"`
	RemoteListingID  string `json:"remote_listing_id"`
	SyncStatus       string `json:"sync_status"`
	Dirty            bool   `json:"dirty"`
	SyncError        string `json:"sync_error,omitempty"`
}

// ProductListResp 商品列表响应
type ProductListResp struct {
	Total int64         `json:"total"`
	Items []ProductItem `json:"items"`
}
