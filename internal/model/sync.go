package model

// ==================== 单条处理结果常量 ====================

const (
	OutcomeSuccess  = "SUCCESS"   // 创建/更新成功
	OutcomeWarning  = "WARNING"   // 成功，但使用了兜底分类，需人工复核
	OutcomeNoChange = "NO_CHANGE" // 无变更，未发起任何远程调用
	OutcomeSkipped  = "SKIPPED"   // 缺少必填字段，未发起远程调用
	OutcomeFailed   = "FAILED"    // 校验/查表/远程调用失败
	OutcomeDryRun   = "DRY_RUN"   // 试运行，仅计算不落库不调用
)

// ==================== 变更标记 ====================

type ChangeFlag string

const (
	ChangePriceUp        ChangeFlag = "PRICE_UP"
	ChangePriceDown      ChangeFlag = "PRICE_DOWN"
	ChangeOptionsChanged ChangeFlag = "OPTIONS_CHANGED"
)

// ==================== 决策输出 ====================

// CategoryResolution 分类解析结果
type CategoryResolution struct {
	TargetCategoryID string              `json:"target_category_id"` // 永不为空
	MatchType        string              `json:"match_type"`
	Confidence       float64             `json:"confidence"`
	TargetFullPath   string              `json:"target_full_path"`
	Candidates       []CategoryCandidate `json:"candidates,omitempty"` // 建议候选，最多 3 个
}

// CategoryCandidate 打分候选
type CategoryCandidate struct {
	TargetCategoryID string  `json:"target_category_id"`
	FullPath         string  `json:"full_path"`
	Score            float64 `json:"score"`
	Depth            int     `json:"depth"`
	IsLeaf           bool    `json:"is_leaf"`
}

// SyncDecision 单个商品一轮编排的完整输出
type SyncDecision struct {
	SourceItemID string              `json:"source_item_id"`
	Outcome      string              `json:"outcome"` // Outcome* 常量
	Action       string              `json:"action"`  // CREATE / UPDATE / NONE
	Category     *CategoryResolution `json:"category,omitempty"`
	SalePrice    int64               `json:"sale_price,omitempty"`
	Changes      []ChangeFlag        `json:"changes,omitempty"`
	Payload      map[string]string   `json:"payload,omitempty"` // 出站字段
	RemoteID     string              `json:"remote_id,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// RunSummary 一次批量运行的汇总
type RunSummary struct {
	RunID    string         `json:"run_id"`
	Total    int            `json:"total"`
	DryRun   bool           `json:"dry_run"`
	Counts   map[string]int `json:"counts"` // outcome -> 数量
	Decision []SyncDecision `json:"decisions,omitempty"`
}

// Add 累计一条决策
func (s *RunSummary) Add(d SyncDecision) {
	if s.Counts == nil {
		s.Counts = make(map[string]int)
	}
	s.Total++
	s.Counts[d.Outcome]++
	s.Decision = append(s.Decision, d)
}
