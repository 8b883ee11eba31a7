package service

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"qoo10_sync_v1_202609/internal/model"
)

// ==================== 快照与比对结果 ====================

// Snapshot 参与比对的快照字段
type Snapshot struct {
	SalePrice        int64
	OptionsSignature string
}

// DiffResult 比对结果
// 某项基线缺失 (价格为 0 / 签名为空) 时该项不参与比对，视为"无基线"而非"有变更"。
type DiffResult struct {
	Flags             []model.ChangeFlag
	PreviousPrice     int64
	PreviousSignature string
}

// HasChanges 是否存在有效变更
func (d *DiffResult) HasChanges() bool {
	return len(d.Flags) > 0
}

// ==================== 变更跟踪 ====================

// ChangeTracker 字段级变更检测
type ChangeTracker struct{}

func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{}
}

// Signature 选项数据的稳定签名
// 先做规范化 (键小写、多值列表排序、去首尾空白)，再对规范化 JSON 取
// SHA-1。语义相同的选项集无论源站给出的顺序如何，签名必然一致。
func (s *ChangeTracker) Signature(optionsRaw []byte) (string, error) {
	if len(optionsRaw) == 0 {
		return "", nil
	}

	var parsed interface{}
	if err := json.Unmarshal(optionsRaw, &parsed); err != nil {
		return "", fmt.Errorf("选项数据不是合法 JSON: %w", err)
	}

	canonical, err := json.Marshal(normalizeOptions(parsed))
	if err != nil {
		return "", err
	}

	sum := sha1.Sum(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Diff 比对旧快照与新观测
func (s *ChangeTracker) Diff(prev, next Snapshot) DiffResult {
	result := DiffResult{}

	// 价格：双方都有正值基线才比对
	if prev.SalePrice > 0 && next.SalePrice > 0 && prev.SalePrice != next.SalePrice {
		if next.SalePrice > prev.SalePrice {
			result.Flags = append(result.Flags, model.ChangePriceUp)
		} else {
			result.Flags = append(result.Flags, model.ChangePriceDown)
		}
		result.PreviousPrice = prev.SalePrice
	}

	// 选项签名：双方都有签名才比对
	if prev.OptionsSignature != "" && next.OptionsSignature != "" &&
		prev.OptionsSignature != next.OptionsSignature {
		result.Flags = append(result.Flags, model.ChangeOptionsChanged)
		result.PreviousSignature = prev.OptionsSignature
	}

	return result
}

// ==================== 选项规范化 ====================

// normalizeOptions 递归规范化：map 键转小写并去空白 (编组时按键排序)，
// 字符串列表排序，字符串值去首尾空白。
func normalizeOptions(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			key := strings.ToLower(strings.TrimSpace(k))
			out[key] = normalizeOptions(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeOptions(item)
		}
		// 纯字符串列表视为无序集合，排序后参与签名
		if ss, ok := asStringSlice(out); ok {
			sort.Strings(ss)
			generic := make([]interface{}, len(ss))
			for i, s := range ss {
				generic[i] = s
			}
			return generic
		}
		return out
	case string:
		return strings.TrimSpace(val)
	default:
		return val
	}
}

func asStringSlice(items []interface{}) ([]string, bool) {
	ss := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		ss[i] = s
	}
	return ss, true
}
