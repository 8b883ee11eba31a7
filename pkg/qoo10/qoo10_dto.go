package qoo10

import "encoding/json"

// APIResponse QAPI 统一响应外壳
// ResultCode 为 0 表示成功，其余为失败，ResultMsg 携带可读错误信息。
type APIResponse struct {
	ResultCode   int             `json:"ResultCode"`
	ResultMsg    string          `json:"ResultMsg"`
	ResultObject json.RawMessage `json:"ResultObject"`
}

// NewGoodsResult 新建商品返回体
type NewGoodsResult struct {
	GdNo string `json:"GdNo"` // 平台商品号
}

// ItemDetail 商品详情返回体 (字段兜底链的最后一级数据源)
type ItemDetail struct {
	ItemNo       string `json:"ItemNo"`
	ItemTitle    string `json:"ItemTitle"`
	ItemPrice    string `json:"ItemPrice"`
	SellerCode   string `json:"SellerCode"`
	CategoryCode string `json:"SecondSubCat"`
	ImageURL     string `json:"ImageUrl"`
	ItemStatus   string `json:"ItemStatus"`
}
