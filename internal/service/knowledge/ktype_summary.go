package knowledge

import (
	"encoding/json"
	"sort"
	"strings"
)

// BuildKTypeSummaryText 生成用于向量检索的自然语言摘要
// 优先使用提炼内容，退而求其次用执行摘要。
func BuildKTypeSummaryText(result *KTypeResult) string {
	report := result.FinalReport
	if s := strings.TrimSpace(report.DistilledContent); s != "" {
		return s
	}
	return strings.TrimSpace(report.ExecutiveSummary)
}

// BuildKTypeShortSummary 生成展示用的简短摘要
func BuildKTypeShortSummary(result *KTypeResult) string {
	summary := BuildKTypeSummaryText(result)
	summary = strings.Join(strings.Fields(summary), " ")
	runes := []rune(summary)
	if len(runes) > 120 {
		runes = runes[:120]
	}
	return string(runes)
}

// KTypeMetadata 结构化元数据，用于过滤和展示
type KTypeMetadata struct {
	DominantType     string      `json:"dominant_type"`
	DominantTypes    []string    `json:"dominant_types"`
	TypeScores       KTypeScores `json:"type_scores"`
	KnowledgeModules []string    `json:"knowledge_modules"`
	DikwLevel        string      `json:"dikw_level"`
	LogicPattern     string      `json:"logic_pattern"`
}

// BuildKTypeMetadata 从扫描报告提取结构化元数据
func BuildKTypeMetadata(result *KTypeResult) *KTypeMetadata {
	report := result.FinalReport
	scores := report.Classification.Scores

	type pair struct {
		kind  string
		score float64
	}
	pairs := []pair{
		{"procedural", scores.Procedural},
		{"conceptual", scores.Conceptual},
		{"reasoning", scores.Reasoning},
		{"systemic", scores.Systemic},
		{"narrative", scores.Narrative},
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

	modules := []string{}
	for _, m := range report.KnowledgeModules {
		if m.Score >= 5 && m.CoreValue != "" {
			modules = append(modules, m.CoreValue)
		}
	}

	return &KTypeMetadata{
		DominantType:     pairs[0].kind,
		DominantTypes:    report.Classification.DominantType,
		TypeScores:       scores,
		KnowledgeModules: modules,
		DikwLevel:        report.ScanTrace.DikwLevel,
		LogicPattern:     report.ScanTrace.LogicPattern,
	}
}

// MarshalKTypeMetadata 元数据的 JSON 文本形式，供关系库存储
func MarshalKTypeMetadata(meta *KTypeMetadata) string {
	data, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// MarshalDeepSummary 完整报告的 JSON 文本形式
func MarshalDeepSummary(result *KTypeResult) string {
	data, err := json.Marshal(result.FinalReport)
	if err != nil {
		return "{}"
	}
	return string(data)
}
