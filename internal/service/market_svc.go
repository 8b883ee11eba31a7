package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"qoo10_sync_v1_202609/pkg/qoo10"
)

// ==================== 错误类型 ====================

// RemoteCallFailure 目标市场 API 调用失败 (含传输层超时)
type RemoteCallFailure struct {
	Code    int
	Message string
}

func (e *RemoteCallFailure) Error() string {
	return fmt.Sprintf("远程调用失败 [%d]: %s", e.Code, e.Message)
}

// ==================== 接口定义 ====================

// MarketResult 一次远程调用的结果
// Code 为 0 表示成功，其余为失败，Message 携带平台可读信息。
type MarketResult struct {
	Code     int
	Message  string
	RemoteID string // 创建成功时返回的平台商品号
}

func (r *MarketResult) OK() bool {
	return r.Code == 0
}

// MarketClient 目标市场 API 客户端
// 编排器只通过该接口访问远程市场，便于测试替身注入。
type MarketClient interface {
	CreateListing(ctx context.Context, fields map[string]string) (*MarketResult, error)
	UpdateListing(ctx context.Context, remoteID string, fields map[string]string) (*MarketResult, error)
	FetchListing(ctx context.Context, remoteID string) (map[string]string, error)
}

// ==================== Qoo10 实现 ====================

type MarketConfig struct {
	BaseURL string // 默认 https://api.qoo10.jp
	APIKey  string
	Timeout time.Duration
}

type qoo10Client struct {
	cfg    *MarketConfig
	client *resty.Client
}

func NewQoo10Client(cfg *MarketConfig) MarketClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.qoo10.jp"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("GiosisCertificationKey", cfg.APIKey)

	return &qoo10Client{cfg: cfg, client: client}
}

func (c *qoo10Client) CreateListing(ctx context.Context, fields map[string]string) (*MarketResult, error) {
	resp, err := c.call(ctx, "ItemsBasic.SetNewGoods", fields)
	if err != nil {
		return nil, err
	}

	result := &MarketResult{Code: resp.ResultCode, Message: resp.ResultMsg}
	if resp.ResultCode == 0 && len(resp.ResultObject) > 0 {
		var obj qoo10.NewGoodsResult
		if err := json.Unmarshal(resp.ResultObject, &obj); err == nil {
			result.RemoteID = obj.GdNo
		}
	}
	return result, nil
}

func (c *qoo10Client) UpdateListing(ctx context.Context, remoteID string, fields map[string]string) (*MarketResult, error) {
	params := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		params[k] = v
	}
	params["ItemNo"] = remoteID

	resp, err := c.call(ctx, "ItemsBasic.UpdateGoods", params)
	if err != nil {
		return nil, err
	}
	return &MarketResult{Code: resp.ResultCode, Message: resp.ResultMsg}, nil
}

func (c *qoo10Client) FetchListing(ctx context.Context, remoteID string) (map[string]string, error) {
	resp, err := c.call(ctx, "ItemsLookup.GetItemDetailInfo", map[string]string{"ItemNo": remoteID})
	if err != nil {
		return nil, err
	}
	if resp.ResultCode != 0 {
		return nil, &RemoteCallFailure{Code: resp.ResultCode, Message: resp.ResultMsg}
	}

	var detail qoo10.ItemDetail
	if err := json.Unmarshal(resp.ResultObject, &detail); err != nil {
		return nil, fmt.Errorf("解析商品详情失败: %w", err)
	}

	return map[string]string{
		"ItemTitle":    detail.ItemTitle,
		"ItemPrice":    detail.ItemPrice,
		"CategoryCode": detail.CategoryCode,
		"ImageUrl":     detail.ImageURL,
	}, nil
}

// call 调用 QAPI 单个方法，传输层错误统一包装为 RemoteCallFailure
func (c *qoo10Client) call(ctx context.Context, method string, params map[string]string) (*qoo10.APIResponse, error) {
	var result qoo10.APIResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(params).
		SetResult(&result).
		Post("/GMKT.INC.Front.QAPIService/ebayjapan.qapi/" + method)
	if err != nil {
		return nil, &RemoteCallFailure{Code: -1, Message: fmt.Sprintf("网络请求失败: %v", err)}
	}
	if resp.StatusCode() != 200 {
		return nil, &RemoteCallFailure{Code: resp.StatusCode(), Message: resp.String()}
	}

	return &result, nil
}
