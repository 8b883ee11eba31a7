package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"qoo10_sync_v1_202609/internal/model"
)

// ==================== 配置 ====================

type ResolverConfig struct {
	FallbackCategoryID string // 兜底分类，保证解析结果永不为空
	FallbackFullPath   string
}

// 候选打分参数
const (
	scoreLeafBonus   = 0.1  // 叶子节点加分
	scoreDepthBonus  = 0.05 // 深度 >= 3 加分
	scoreMinKeep     = 0.25 // 低于该分数的候选丢弃
	maxCandidates    = 3
	candidateMinDeep = 3
)

// ==================== 路径规范化 ====================

// NormalizeCategoryPath 把源站分类路径规范化为字典键
// 全角符号折叠为半角，按 ">" 切段，段内去首尾空白并压缩连续空白，
// 空段丢弃，再以 " > " 重新拼接。幂等：normalize(normalize(x)) == normalize(x)。
func NormalizeCategoryPath(path string) string {
	folded := width.Fold.String(path)

	segments := strings.Split(folded, ">")
	cleaned := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.Join(strings.Fields(seg), " ")
		if seg == "" {
			continue
		}
		cleaned = append(cleaned, seg)
	}
	return strings.Join(cleaned, " > ")
}

// tokenize 把若干路径拆成去重后的小写 token 集合，先出现的优先
func tokenize(paths ...string) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, p := range paths {
		folded := strings.ToLower(width.Fold.String(p))
		fields := strings.FieldsFunc(folded, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		for _, tok := range fields {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// ==================== 解析器 ====================

// CategoryResolver 分类解析器
// 合同：永不失败，返回的 TargetCategoryID 永不为空。
// MANUAL 映射命中时直接采用；否则对目标分类树打分生成 AUTO 建议
// (仅供人工复核，不自动采用)，最终结果回退到兜底分类。
type CategoryResolver struct {
	refdata *ReferenceData
	cfg     ResolverConfig
}

func NewCategoryResolver(refdata *ReferenceData, cfg ResolverConfig) *CategoryResolver {
	return &CategoryResolver{refdata: refdata, cfg: cfg}
}

// Resolve 解析一个源站分类路径
// recordSuggestions 为 false 时 (试运行) 不落库 AUTO 建议。
func (s *CategoryResolver) Resolve(ctx context.Context, path2, path3, sourceCategoryID string, recordSuggestions bool) *model.CategoryResolution {
	key := NormalizeCategoryPath(path3)

	// 空路径：无从匹配，直接兜底
	if key == "" {
		return s.fallback(nil)
	}

	// 1. 字典命中：MANUAL 权威，立即返回
	if manual := s.lookupManual(ctx, key); manual != nil {
		confidence := manual.Confidence
		if confidence == 0 {
			confidence = 1.0
		}
		return &model.CategoryResolution{
			TargetCategoryID: manual.TargetCategoryID,
			MatchType:        model.MatchTypeManual,
			Confidence:       confidence,
			TargetFullPath:   manual.TargetFullPath,
		}
	}

	// 2. 打分生成候选
	candidates := s.scoreCandidates(ctx, path2, path3)

	// 3. 候选落库为 AUTO 建议 (仅建议，不改变本次解析结果)
	if recordSuggestions && len(candidates) > 0 {
		s.recordSuggestions(ctx, key, candidates)
	}

	return s.fallback(candidates)
}

// lookupManual 在字典中找该键的权威 MANUAL 行
// 同键多行时 MANUAL 优先于 AUTO，有目标 ID 的行优先于没有的；
// 多条 MANUAL 共存时以最近一次人工改判为准 (字典只追加不删除，
// 重新指派同键时会出现新旧两行)。
func (s *CategoryResolver) lookupManual(ctx context.Context, key string) *model.CategoryMapping {
	mappings, err := s.refdata.Mappings(ctx)
	if err != nil {
		// 字典不可达不阻断解析，按无命中处理
		log.Printf("[CategoryResolver] 读取映射字典失败，按未命中处理: %v", err)
		return nil
	}

	var best *model.CategoryMapping
	for i := range mappings {
		m := &mappings[i]
		if m.SourceKey != key || !m.IsManual() {
			continue
		}
		if m.TargetCategoryID == "" {
			continue
		}
		if best == nil || m.CreatedAt.After(best.CreatedAt) ||
			(m.CreatedAt.Equal(best.CreatedAt) && m.ID > best.ID) {
			best = m
		}
	}
	return best
}

// scoreCandidates 对目标分类树全量打分，返回 >= 阈值的前 3 名
func (s *CategoryResolver) scoreCandidates(ctx context.Context, path2, path3 string) []model.CategoryCandidate {
	sourceTokens := tokenize(path3, path2)
	if len(sourceTokens) == 0 {
		return nil
	}

	nodes, err := s.refdata.Nodes(ctx)
	if err != nil {
		log.Printf("[CategoryResolver] 读取目标分类树失败: %v", err)
		return nil
	}

	var candidates []model.CategoryCandidate
	for i := range nodes {
		node := &nodes[i]
		score := scoreNode(sourceTokens, node)
		if score < scoreMinKeep {
			continue
		}
		candidates = append(candidates, model.CategoryCandidate{
			TargetCategoryID: node.TargetID,
			FullPath:         node.FullPath,
			Score:            score,
			Depth:            node.Depth,
			IsLeaf:           node.IsLeaf,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Depth != candidates[j].Depth {
			return candidates[i].Depth > candidates[j].Depth
		}
		return candidates[i].IsLeaf && !candidates[j].IsLeaf
	})

	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}

// scoreNode 单节点打分：token 重合率 + 叶子/深度加分，封顶 1.0
func scoreNode(sourceTokens []string, node *model.CategoryNode) float64 {
	targetText := node.FullPath
	if targetText == "" {
		targetText = node.Name
	}
	targetTokens := tokenize(targetText)
	if len(targetTokens) == 0 {
		return 0
	}

	matched := 0
	for _, st := range sourceTokens {
		for _, tt := range targetTokens {
			if strings.Contains(tt, st) {
				matched++
				break
			}
		}
	}

	score := float64(matched) / float64(len(sourceTokens))
	if node.IsLeaf {
		score += scoreLeafBonus
	}
	if node.Depth >= candidateMinDeep {
		score += scoreDepthBonus
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// recordSuggestions 把候选写入字典 (AUTO)，已有同键同目标的建议不重复写
func (s *CategoryResolver) recordSuggestions(ctx context.Context, key string, candidates []model.CategoryCandidate) {
	mappings, err := s.refdata.Mappings(ctx)
	if err != nil {
		return
	}

	existing := make(map[string]struct{})
	for i := range mappings {
		m := &mappings[i]
		if m.SourceKey == key && m.MatchType == model.MatchTypeAuto {
			existing[m.TargetCategoryID] = struct{}{}
		}
	}

	for _, c := range candidates {
		if _, ok := existing[c.TargetCategoryID]; ok {
			continue
		}
		mapping := &model.CategoryMapping{
			SourceKey:        key,
			TargetCategoryID: c.TargetCategoryID,
			MatchType:        model.MatchTypeAuto,
			Confidence:       c.Score,
			TargetFullPath:   c.FullPath,
			AuditMixin:       model.AuditMixin{CreatedBy: "resolver"},
		}
		if err := s.refdata.AppendMapping(ctx, mapping); err != nil {
			log.Printf("[CategoryResolver] 写入 AUTO 建议失败 key=%s target=%s: %v", key, c.TargetCategoryID, err)
		}
	}
}

// fallback 兜底结果，候选仅随带展示
func (s *CategoryResolver) fallback(candidates []model.CategoryCandidate) *model.CategoryResolution {
	return &model.CategoryResolution{
		TargetCategoryID: s.cfg.FallbackCategoryID,
		MatchType:        model.MatchTypeFallback,
		Confidence:       0,
		TargetFullPath:   s.cfg.FallbackFullPath,
		Candidates:       candidates,
	}
}
