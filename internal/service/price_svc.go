package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// ==================== 错误类型 ====================

// ValidationError 业务字段校验失败 (不重试)
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("字段校验失败 [%s]: %s", e.Field, e.Reason)
}

// LookupFailure 参考数据查找失败 (运费段缺失/参考库不可达)
type LookupFailure struct {
	Reason string
}

func (e *LookupFailure) Error() string {
	return fmt.Sprintf("查表失败: %s", e.Reason)
}

// ==================== 配置 ====================

// PriceConfig 定价常量，全部来自配置，不做推导
type PriceConfig struct {
	DomesticShipping float64 // 源站国内运费 (KRW)
	FxRate           float64 // 汇率 KRW/JPY
	CommissionRate   float64 // 平台佣金率
	MinMarginRate    float64 // 最低利润率
	TargetMarginRate float64 // 目标利润率
}

// ==================== 价格引擎 ====================

// PriceEngine 销售价计算
// 公式 (只在最后取整一次，中间项不取整)：
//
//	baseCost   = (cost + domesticShipping) / fxRate + bandFee(weight)
//	required   = baseCost / (1 - commission - minMargin)
//	target     = baseCost * (1 + targetMargin)
//	finalPrice = round(max(required, target))
type PriceEngine struct {
	refdata *ReferenceData
	cfg     PriceConfig
}

func NewPriceEngine(refdata *ReferenceData, cfg PriceConfig) (*PriceEngine, error) {
	if cfg.FxRate <= 0 {
		return nil, fmt.Errorf("定价配置不合法: 汇率必须大于 0")
	}
	if denom := 1 - cfg.CommissionRate - cfg.MinMarginRate; denom <= 0 {
		return nil, fmt.Errorf("定价配置不合法: 佣金率 %.2f + 最低利润率 %.2f 不能达到 100%%",
			cfg.CommissionRate, cfg.MinMarginRate)
	}
	return &PriceEngine{refdata: refdata, cfg: cfg}, nil
}

// ComputePrice 由成本价和重量计算销售价 (JPY 整数)
// 两个入参都是源站原文字符串，可能带千分位分隔符。
func (s *PriceEngine) ComputePrice(ctx context.Context, costPriceRaw, weightKgRaw string) (int64, error) {
	cost, err := parsePositiveNumber("cost_price", costPriceRaw)
	if err != nil {
		return 0, err
	}
	weight, err := parsePositiveNumber("weight_kg", weightKgRaw)
	if err != nil {
		return 0, err
	}

	fee, err := s.shippingFee(ctx, weight)
	if err != nil {
		return 0, err
	}

	baseCost := (cost+s.cfg.DomesticShipping)/s.cfg.FxRate + float64(fee)
	required := baseCost / (1 - s.cfg.CommissionRate - s.cfg.MinMarginRate)
	target := baseCost * (1 + s.cfg.TargetMarginRate)

	return int64(math.Round(math.Max(required, target))), nil
}

// shippingFee 重量段运费查表：按下界升序取第一个闭区间命中的段
func (s *PriceEngine) shippingFee(ctx context.Context, weightKg float64) (int64, error) {
	bands, err := s.refdata.RateBands(ctx)
	if err != nil {
		return 0, &LookupFailure{Reason: err.Error()}
	}

	for i := range bands {
		if bands[i].Contains(weightKg) {
			return bands[i].Fee, nil
		}
	}
	return 0, &LookupFailure{Reason: fmt.Sprintf("重量 %.3fkg 没有匹配的运费段", weightKg)}
}

// ==================== 数值解析 ====================

// parsePositiveNumber 边界解析：去掉千分位分隔符和空白后按数值解析，
// 必须是有限的正数。源站数据是字符串，算术一律在解析后的数值上做。
func parsePositiveNumber(field, raw string) (float64, error) {
	cleaned := sanitizeNumber(raw)
	if cleaned == "" {
		return 0, &ValidationError{Field: field, Reason: "值为空"}
	}

	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: fmt.Sprintf("无法解析为数值: %q", raw)}
	}
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, &ValidationError{Field: field, Reason: "不是有限数值"}
	}
	if val <= 0 {
		return 0, &ValidationError{Field: field, Reason: fmt.Sprintf("必须为正数，实际 %v", val)}
	}
	return val, nil
}

// sanitizeNumber 去掉千分位逗号、空白，全角数字折叠为半角
func sanitizeNumber(raw string) string {
	folded := width.Fold.String(raw)
	var b strings.Builder
	for _, r := range folded {
		switch {
		case r == ',' || r == '_':
			continue
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
