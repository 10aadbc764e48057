package knowledge

// K-Type 认知扫描
//
// 主路径通过 ChatModel 做结构化抽取：超长文本先切段逐段扫描再合并。
// 每段先用采样配置 A 调用，命中内容安全拦截时换配置 B 重试。
// 主路径失败时回退到简化报告，只有文本本身不可用才返回 ClassificationError。

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/kaptinlin/jsonrepair"

	"github.com/contextos/context-os/internal/limiter"
)

// LimiterKeyKType 分类调用的限流键
const LimiterKeyKType = "ktype-api"

// 五种认知类型
var ktypeKinds = []string{"procedural", "conceptual", "reasoning", "systemic", "narrative"}

// KTypeScores 五维认知评分
type KTypeScores struct {
	Procedural float64 `json:"procedural"`
	Conceptual float64 `json:"conceptual"`
	Reasoning  float64 `json:"reasoning"`
	Systemic   float64 `json:"systemic"`
	Narrative  float64 `json:"narrative"`
}

// KTypeModule 单个知识模块
type KTypeModule struct {
	Type          string   `json:"type"`
	Score         float64  `json:"score"`
	CoreValue     string   `json:"coreValue"`
	Content       string   `json:"content"`
	Evidence      []string `json:"evidence"`
	SourcePreview string   `json:"sourcePreview"`
}

// KTypeScanTrace 扫描痕迹
type KTypeScanTrace struct {
	DikwLevel          string   `json:"dikwLevel"`
	TacitExplicitRatio string   `json:"tacitExplicitRatio"`
	LogicPattern       string   `json:"logicPattern"`
	Evidence           []string `json:"evidence"`
}

// KTypeClassification 分类结论
type KTypeClassification struct {
	Scores       KTypeScores `json:"scores"`
	DominantType []string    `json:"dominantType"`
	Reason       string      `json:"reason"`
}

// KTypeReport 最终认知扫描报告
type KTypeReport struct {
	Title            string              `json:"title"`
	Classification   KTypeClassification `json:"classification"`
	ScanTrace        KTypeScanTrace      `json:"scanTrace"`
	KnowledgeModules []KTypeModule       `json:"knowledgeModules"`
	ExecutiveSummary string              `json:"executiveSummary"`
	DistilledContent string              `json:"distilledContent"`
}

// KTypeResult 分类结果
type KTypeResult struct {
	FinalReport KTypeReport `json:"finalReport"`
	RelatedTags []string    `json:"relatedTags"`
	Degraded    bool        `json:"degraded"`
}

// llmOutput LLM 原始输出的规整形态，字段与提示词约定的 snake_case 对应
type llmOutput struct {
	ExecutiveSummary string
	RelatedTags      []string
	Scores           KTypeScores
	Reason           string
	TypeSummary      string
	DikwLevel        string
	TacitExplicit    string
	LogicPattern     string
	TraceEvidence    []string
	Modules          []KTypeModule
	DistilledContent string
}

type samplingProfile struct {
	label       string
	temperature float32
	topP        float32
}

var ktypeSamplingProfiles = []samplingProfile{
	{label: "A", temperature: 0.2, topP: 0.6},
	{label: "B", temperature: 0.1, topP: 0.4},
}

const ktypeSystemPrompt = `# 角色
你是一名认知扫描员，负责对输入文本做五维认知类型分析并输出 JSON。

对文本分别从以下五个维度打分（0-10）并抽取对应的知识模块：
1. procedural：操作步骤、方法、可执行流程
2. conceptual：概念、定义、理论原理
3. reasoning：论证、推理、因果分析
4. systemic：系统结构、架构、要素关系
5. narrative：叙事、案例、经历描述

输出严格的 JSON 对象，包含以下字段：
- executive_summary：300 字以内的内容摘要
- related_tags：3-8 个主题标签
- classification：{scores: {procedural, conceptual, reasoning, systemic, narrative}, reason, type_summary}
- scan_trace：{dikw_level, tacit_explicit_ratio（形如 "60%/40%"）, logic_pattern, evidence}
- cognitive_features：{explicit_summary, tacit_summary, logic_pattern_summary}
- knowledge_modules：[{type, score, core_value, content, evidence, source_preview}]
- distilled_content：提炼后的核心内容

只输出 JSON，不要输出任何解释文字。`

// 安全拦截的错误特征与拒答特征
var (
	safetyErrorPatterns = []string{
		"content_filter", "content filter", "content policy", "safety", "policy",
		"guardrail", "blocked", "refuse", "refusal", "refused", "violat",
		"moderation", "unsafe", "sensitive",
		"安全", "审核", "拦截", "违规", "敏感", "禁止", "拒绝",
	}
	safetyRefusalPatterns = []string{
		"抱歉", "对不起", "无法", "不能", "不便", "拒绝", "禁止",
		"内容安全", "安全策略", "policy", "safety", "blocked", "refuse", "violat", "guardrail",
	}
)

// Classifier K-Type 分类器
type Classifier struct {
	chatModel        einomodel.BaseChatModel
	modelName        string
	maxContextLength int
	limiter          *limiter.Pool
}

// NewClassifier 创建分类器
// maxContextLength 是单次调用送入模型的最大字符数，超长文本会被切段。
func NewClassifier(chatModel einomodel.BaseChatModel, modelName string, maxContextLength int, pool *limiter.Pool) *Classifier {
	if maxContextLength <= 0 {
		maxContextLength = 30000
	}
	return &Classifier{
		chatModel:        chatModel,
		modelName:        modelName,
		maxContextLength: maxContextLength,
		limiter:          pool,
	}
}

// Classify 执行认知扫描，主路径失败时返回简化报告
func (c *Classifier) Classify(ctx context.Context, text string) (*KTypeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ClassificationError{Err: ErrEmptyContent}
	}

	result, err := c.classify(ctx, text)
	if err == nil {
		return result, nil
	}
	log.Printf("[ktype] processing failed, returning simplified output: %v", err)

	return c.fallbackReport(), nil
}

func (c *Classifier) classify(ctx context.Context, text string) (*KTypeResult, error) {
	if c.chatModel == nil {
		return nil, fmt.Errorf("chat model not configured")
	}

	segments, err := c.splitSegments(ctx, text)
	if err != nil {
		return nil, err
	}
	log.Printf("[ktype] input length: %d chars, segments: %d", len([]rune(text)), len(segments))

	outputs := make([]*llmOutput, 0, len(segments))
	for i, segment := range segments {
		out, err := c.callLLM(ctx, segment)
		if err != nil {
			return nil, fmt.Errorf("segment %d/%d: %w", i+1, len(segments), err)
		}
		outputs = append(outputs, out)
	}

	merged := mergeOutputs(outputs)
	report := c.buildReport(merged)
	log.Printf("[ktype] dominant types: %s", strings.Join(report.FinalReport.Classification.DominantType, ", "))
	return report, nil
}

// splitSegments 切分超长输入
func (c *Classifier) splitSegments(ctx context.Context, text string) ([]string, error) {
	if len([]rune(text)) <= c.maxContextLength {
		return []string{text}, nil
	}

	splitter, err := recursive.NewSplitter(ctx, &recursive.Config{
		ChunkSize:   c.maxContextLength,
		OverlapSize: 0,
		Separators:  []string{"\n\n", "\n", "。", "，", " "},
		KeepType:    recursive.KeepTypeEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("create splitter: %w", err)
	}

	docs, err := splitter.Transform(ctx, []*schema.Document{{Content: text}})
	if err != nil {
		return nil, fmt.Errorf("split input: %w", err)
	}

	segments := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Content != "" {
			segments = append(segments, d.Content)
		}
	}
	if len(segments) == 0 {
		segments = []string{text}
	}
	return segments, nil
}

// callLLM 单段调用：配置 A 失败于安全拦截时换配置 B 重试
func (c *Classifier) callLLM(ctx context.Context, text string) (*llmOutput, error) {
	messages := []*schema.Message{
		schema.SystemMessage(ktypeSystemPrompt),
		schema.UserMessage(text),
	}

	var lastErr error
	for _, profile := range ktypeSamplingProfiles {
		var reply *schema.Message
		err := c.limiterDo(ctx, func() error {
			var genErr error
			reply, genErr = c.chatModel.Generate(ctx, messages,
				einomodel.WithTemperature(profile.temperature),
				einomodel.WithTopP(profile.topP),
				einomodel.WithMaxTokens(4000),
			)
			return genErr
		})

		if err != nil {
			if isSafetyInterception(err) && profile.label == "A" {
				log.Printf("[ktype] safety block detected, retrying with profile B")
				lastErr = err
				continue
			}
			return nil, err
		}

		content := ""
		if reply != nil {
			content = strings.TrimSpace(reply.Content)
		}
		if content == "" {
			return nil, fmt.Errorf("empty model response")
		}
		if looksLikeSafetyRefusal(content) {
			if profile.label == "A" {
				log.Printf("[ktype] refusal-looking reply, retrying with profile B")
				lastErr = fmt.Errorf("model refused to analyze content")
				continue
			}
			return nil, fmt.Errorf("model refused to analyze content")
		}

		return parseLLMOutput(content), nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("all sampling profiles exhausted")
	}
	return nil, lastErr
}

func (c *Classifier) limiterDo(ctx context.Context, fn func() error) error {
	if c.limiter == nil {
		return fn()
	}
	return c.limiter.Do(ctx, LimiterKeyKType, fn)
}

// fallbackReport 简化报告：所有字段可用，评分取中位默认值
func (c *Classifier) fallbackReport() *KTypeResult {
	return &KTypeResult{
		FinalReport: KTypeReport{
			Title: "Simplified K-Type Report",
			Classification: KTypeClassification{
				Scores:       KTypeScores{Procedural: 5, Conceptual: 5, Reasoning: 5, Systemic: 5, Narrative: 5},
				DominantType: []string{},
				Reason:       "LLM request failed, returning default scores.",
			},
			ScanTrace:        KTypeScanTrace{Evidence: []string{}},
			KnowledgeModules: []KTypeModule{},
			ExecutiveSummary: "K-Type processing failed; no detailed report generated.",
			DistilledContent: "",
		},
		RelatedTags: []string{},
		Degraded:    true,
	}
}

func (c *Classifier) buildReport(out *llmOutput) *KTypeResult {
	return &KTypeResult{
		FinalReport: KTypeReport{
			Title: fmt.Sprintf("CODE-DIKW Cognitive Scan Report (%s)", c.modelName),
			Classification: KTypeClassification{
				Scores:       out.Scores,
				DominantType: dominantTypes(out.Scores),
				Reason:       out.Reason,
			},
			ScanTrace: KTypeScanTrace{
				DikwLevel:          out.DikwLevel,
				TacitExplicitRatio: out.TacitExplicit,
				LogicPattern:       out.LogicPattern,
				Evidence:           out.TraceEvidence,
			},
			KnowledgeModules: out.Modules,
			ExecutiveSummary: out.ExecutiveSummary,
			DistilledContent: out.DistilledContent,
		},
		RelatedTags: out.RelatedTags,
	}
}

// ========== 输出解析与规整 ==========

// parseLLMOutput 解析模型输出
// 先尝试修复并解析 JSON；不是 JSON 时把原文放进 distilled_content 兜底。
func parseLLMOutput(content string) *llmOutput {
	raw := extractJSONBlock(content)

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil || json.Unmarshal([]byte(repaired), &obj) != nil {
			return wrapRawOutput(content)
		}
	}
	return coerceOutput(obj)
}

// extractJSONBlock 剥掉 markdown 代码块围栏
func extractJSONBlock(content string) string {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}

// wrapRawOutput 非结构化回复的兜底形态
func wrapRawOutput(content string) *llmOutput {
	return &llmOutput{
		RelatedTags:      []string{},
		TraceEvidence:    []string{},
		Modules:          []KTypeModule{},
		DistilledContent: strings.TrimSpace(content),
	}
}

// coerceOutput 字段级规整：缺失评分补 5，标量容忍为数组，数字容忍为字符串
func coerceOutput(obj map[string]interface{}) *llmOutput {
	out := &llmOutput{
		ExecutiveSummary: toStr(obj["executive_summary"]),
		RelatedTags:      toStrSlice(obj["related_tags"]),
		DistilledContent: toStr(obj["distilled_content"]),
	}

	if cls, ok := obj["classification"].(map[string]interface{}); ok {
		out.Reason = toStr(cls["reason"])
		out.TypeSummary = toStr(cls["type_summary"])
		if scores, ok := cls["scores"].(map[string]interface{}); ok {
			out.Scores = KTypeScores{
				Procedural: toNum(scores["procedural"]),
				Conceptual: toNum(scores["conceptual"]),
				Reasoning:  toNum(scores["reasoning"]),
				Systemic:   toNum(scores["systemic"]),
				Narrative:  toNum(scores["narrative"]),
			}
		} else {
			out.Scores = defaultScores()
		}
	} else {
		out.Scores = defaultScores()
	}

	if trace, ok := obj["scan_trace"].(map[string]interface{}); ok {
		out.DikwLevel = toStr(trace["dikw_level"])
		out.TacitExplicit = toStr(trace["tacit_explicit_ratio"])
		out.LogicPattern = toStr(trace["logic_pattern"])
		out.TraceEvidence = toStrSlice(trace["evidence"])
	} else {
		out.TraceEvidence = []string{}
	}

	out.Modules = coerceModules(obj["knowledge_modules"])
	return out
}

func coerceModules(raw interface{}) []KTypeModule {
	var items []interface{}
	switch v := raw.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		items = []interface{}{v}
	default:
		return []KTypeModule{}
	}

	modules := make([]KTypeModule, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		kind := toStr(m["type"])
		if !isKTypeKind(kind) {
			kind = "conceptual"
		}
		modules = append(modules, KTypeModule{
			Type:          kind,
			Score:         toNum(m["score"]),
			CoreValue:     toStr(m["core_value"]),
			Content:       toStr(m["content"]),
			Evidence:      toStrSlice(m["evidence"]),
			SourcePreview: toStr(m["source_preview"]),
		})
	}
	return modules
}

func isKTypeKind(kind string) bool {
	for _, k := range ktypeKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func defaultScores() KTypeScores {
	return KTypeScores{Procedural: 5, Conceptual: 5, Reasoning: 5, Systemic: 5, Narrative: 5}
}

func toNum(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
	}
	return 5
}

func toStr(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toStrSlice(value interface{}) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case []interface{}:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s := toStr(item); s != "" {
				result = append(result, s)
			}
		}
		return result
	default:
		if s := toStr(v); s != "" {
			return []string{s}
		}
		return []string{}
	}
}

// ========== 多段合并 ==========

var ratioPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

// mergeOutputs 合并多段扫描结果
// 评分取平均，标签按出现频次排序，dikw/逻辑模式取众数。
func mergeOutputs(outputs []*llmOutput) *llmOutput {
	if len(outputs) == 1 {
		return outputs[0]
	}

	merged := &llmOutput{}

	var summaries []string
	for _, o := range outputs {
		if o.ExecutiveSummary != "" {
			summaries = append(summaries, o.ExecutiveSummary)
		}
	}
	summary := strings.Join(summaries, " ")
	summaryRunes := []rune(strings.Join(strings.Fields(summary), " "))
	if len(summaryRunes) > 500 {
		summaryRunes = summaryRunes[:500]
	}
	merged.ExecutiveSummary = string(summaryRunes)
	if len(summaryRunes) < 300 && len(summaries) > 0 {
		merged.ExecutiveSummary = summaries[0]
	}

	merged.RelatedTags = mergeTags(outputs, 15)

	n := float64(len(outputs))
	var sum KTypeScores
	for _, o := range outputs {
		sum.Procedural += o.Scores.Procedural
		sum.Conceptual += o.Scores.Conceptual
		sum.Reasoning += o.Scores.Reasoning
		sum.Systemic += o.Scores.Systemic
		sum.Narrative += o.Scores.Narrative
	}
	merged.Scores = KTypeScores{
		Procedural: round1(sum.Procedural / n),
		Conceptual: round1(sum.Conceptual / n),
		Reasoning:  round1(sum.Reasoning / n),
		Systemic:   round1(sum.Systemic / n),
		Narrative:  round1(sum.Narrative / n),
	}

	var reasons, typeSummaries, distilled []string
	var dikws, patterns, ratios []string
	for _, o := range outputs {
		if o.Reason != "" {
			reasons = append(reasons, o.Reason)
		}
		if o.TypeSummary != "" {
			typeSummaries = append(typeSummaries, o.TypeSummary)
		}
		if o.DistilledContent != "" {
			distilled = append(distilled, o.DistilledContent)
		}
		if o.DikwLevel != "" {
			dikws = append(dikws, o.DikwLevel)
		}
		if o.LogicPattern != "" {
			patterns = append(patterns, o.LogicPattern)
		}
		if o.TacitExplicit != "" {
			ratios = append(ratios, o.TacitExplicit)
		}
	}
	merged.Reason = strings.Join(reasons, "\n\n")
	merged.TypeSummary = strings.Join(typeSummaries, "\n\n")
	merged.DistilledContent = strings.Join(distilled, "\n\n")
	merged.DikwLevel = pickMostFrequent(dikws)
	merged.LogicPattern = pickMostFrequent(patterns)
	merged.TacitExplicit = mergeRatios(ratios)

	seen := make(map[string]bool)
	for _, o := range outputs {
		for _, e := range o.TraceEvidence {
			if e != "" && !seen[e] && len(merged.TraceEvidence) < 5 {
				seen[e] = true
				merged.TraceEvidence = append(merged.TraceEvidence, e)
			}
		}
	}
	if merged.TraceEvidence == nil {
		merged.TraceEvidence = []string{}
	}

	merged.Modules = mergeModules(outputs, merged.Scores)
	return merged
}

// mergeTags 按频次降序、首次出现顺序稳定排序
func mergeTags(outputs []*llmOutput, max int) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	var order []string
	for _, o := range outputs {
		for _, tag := range o.RelatedTags {
			t := strings.TrimSpace(tag)
			if t == "" {
				continue
			}
			if _, ok := counts[t]; !ok {
				firstSeen[t] = len(order)
				order = append(order, t)
			}
			counts[t]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})
	if len(order) > max {
		order = order[:max]
	}
	if order == nil {
		order = []string{}
	}
	return order
}

// mergeModules 按类型聚合模块：分数取平均，内容取该类型最高分模块
func mergeModules(outputs []*llmOutput, avgScores KTypeScores) []KTypeModule {
	byType := make(map[string][]KTypeModule)
	hasModules := false
	for _, o := range outputs {
		for _, m := range o.Modules {
			hasModules = true
			byType[m.Type] = append(byType[m.Type], m)
		}
	}
	if !hasModules {
		return []KTypeModule{}
	}

	avgByKind := map[string]float64{
		"procedural": avgScores.Procedural,
		"conceptual": avgScores.Conceptual,
		"reasoning":  avgScores.Reasoning,
		"systemic":   avgScores.Systemic,
		"narrative":  avgScores.Narrative,
	}

	merged := make([]KTypeModule, 0, len(ktypeKinds))
	for _, kind := range ktypeKinds {
		modules := byType[kind]
		top := KTypeModule{Type: kind, Score: avgByKind[kind], Evidence: []string{}}
		score := avgByKind[kind]
		if len(modules) > 0 {
			sum := 0.0
			for _, m := range modules {
				sum += m.Score
				if m.Score > top.Score || top.Content == "" {
					top = m
				}
			}
			score = round1(sum / float64(len(modules)))

			var values []string
			valueSeen := make(map[string]bool)
			evidenceSeen := make(map[string]bool)
			var evidence []string
			for _, m := range modules {
				if m.CoreValue != "" && !valueSeen[m.CoreValue] {
					valueSeen[m.CoreValue] = true
					values = append(values, m.CoreValue)
				}
				for _, e := range m.Evidence {
					if e != "" && !evidenceSeen[e] && len(evidence) < 5 {
						evidenceSeen[e] = true
						evidence = append(evidence, e)
					}
				}
			}
			if len(values) > 0 {
				top.CoreValue = strings.Join(values, " / ")
			}
			if len(evidence) > 0 {
				top.Evidence = evidence
			}
		}
		top.Type = kind
		top.Score = score
		merged = append(merged, top)
	}
	return merged
}

func mergeRatios(ratios []string) string {
	var explicitSum, tacitSum float64
	count := 0
	fallback := ""
	for _, r := range ratios {
		if fallback == "" {
			fallback = r
		}
		matches := ratioPattern.FindAllStringSubmatch(r, -1)
		if len(matches) < 2 {
			continue
		}
		explicit, err1 := strconv.ParseFloat(matches[0][1], 64)
		tacit, err2 := strconv.ParseFloat(matches[1][1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		explicitSum += explicit
		tacitSum += tacit
		count++
	}
	if count == 0 {
		return fallback
	}
	return fmt.Sprintf("%.0f%%/%.0f%%", explicitSum/float64(count), tacitSum/float64(count))
}

func pickMostFrequent(values []string) string {
	counts := make(map[string]int)
	best := ""
	bestCount := -1
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// dominantTypes 评分高于 7 的类型为主导类型
func dominantTypes(scores KTypeScores) []string {
	result := []string{}
	pairs := []struct {
		kind  string
		score float64
	}{
		{"procedural", scores.Procedural},
		{"conceptual", scores.Conceptual},
		{"reasoning", scores.Reasoning},
		{"systemic", scores.Systemic},
		{"narrative", scores.Narrative},
	}
	for _, p := range pairs {
		if p.score > 7 {
			result = append(result, p.kind)
		}
	}
	return result
}

// ========== 安全拦截识别 ==========

func isSafetyInterception(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range safetyErrorPatterns {
		if strings.Contains(msg, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// looksLikeSafetyRefusal 短回复且带拒答措辞时视为被拒
func looksLikeSafetyRefusal(content string) bool {
	text := strings.TrimSpace(content)
	if text == "" {
		return false
	}
	hit := false
	for _, pattern := range safetyRefusalPatterns {
		if strings.Contains(strings.ToLower(text), strings.ToLower(pattern)) {
			hit = true
			break
		}
	}
	if !hit {
		return false
	}
	// 正常的分析输出里本来就可能出现这些词，长输出不算拒答
	return len([]rune(text)) < 800
}
