package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// mockChatModel 用于测试的 mock ChatModel
type mockChatModel struct {
	generateFunc func(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

func (m *mockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, input, opts...)
	}
	return schema.AssistantMessage("", nil), nil
}

func (m *mockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported in mock")
}

const validKTypeJSON = `{
	"executive_summary": "一篇关于部署流程的操作指南",
	"related_tags": ["部署", "运维", "流程"],
	"classification": {
		"scores": {"procedural": 9, "conceptual": 4, "reasoning": 3, "systemic": 8, "narrative": 2},
		"reason": "以步骤为主",
		"type_summary": "操作类文档"
	},
	"scan_trace": {
		"dikw_level": "knowledge",
		"tacit_explicit_ratio": "70%/30%",
		"logic_pattern": "sequential",
		"evidence": ["step 1", "step 2"]
	},
	"cognitive_features": {
		"explicit_summary": "明确的操作步骤",
		"tacit_summary": "隐含的运维经验",
		"logic_pattern_summary": "顺序展开"
	},
	"knowledge_modules": [
		{"type": "procedural", "score": 9, "core_value": "部署步骤", "content": "按步骤执行", "evidence": ["第一步"], "source_preview": "..."}
	],
	"distilled_content": "部署分三步：构建、发布、验证。"
}`

func newTestClassifier(m *mockChatModel) *Classifier {
	return NewClassifier(m, "test-model", 30000, nil)
}

// ========== 主路径解析 ==========

func TestClassifyParsesStructuredOutput(t *testing.T) {
	chatModel := &mockChatModel{
		generateFunc: func(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
			return schema.AssistantMessage(validKTypeJSON, nil), nil
		},
	}

	result, err := newTestClassifier(chatModel).Classify(context.Background(), "部署文档正文")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Degraded {
		t.Fatal("primary path must not be degraded")
	}

	report := result.FinalReport
	if report.Classification.Scores.Procedural != 9 {
		t.Errorf("procedural = %v, want 9", report.Classification.Scores.Procedural)
	}
	// 大于 7 的维度才是主导类型
	want := []string{"procedural", "systemic"}
	if len(report.Classification.DominantType) != 2 ||
		report.Classification.DominantType[0] != want[0] ||
		report.Classification.DominantType[1] != want[1] {
		t.Errorf("dominant = %v, want %v", report.Classification.DominantType, want)
	}
	if len(result.RelatedTags) != 3 {
		t.Errorf("tags = %v", result.RelatedTags)
	}
	if report.ScanTrace.DikwLevel != "knowledge" {
		t.Errorf("dikw = %q", report.ScanTrace.DikwLevel)
	}
	if report.DistilledContent == "" {
		t.Error("distilled content missing")
	}
}

func TestClassifyRepairsBrokenJSON(t *testing.T) {
	// 模型输出带代码块围栏和尾逗号
	broken := "```json\n{\"executive_summary\": \"总结\", \"related_tags\": [\"a\", \"b\",], \"classification\": {\"scores\": {\"procedural\": \"8\",}},}\n```"
	chatModel := &mockChatModel{
		generateFunc: func(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
			return schema.AssistantMessage(broken, nil), nil
		},
	}

	result, err := newTestClassifier(chatModel).Classify(context.Background(), "正文")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.FinalReport.ExecutiveSummary != "总结" {
		t.Errorf("summary = %q", result.FinalReport.ExecutiveSummary)
	}
	// 字符串形式的数字要被接受
	if result.FinalReport.Classification.Scores.Procedural != 8 {
		t.Errorf("procedural = %v, want 8", result.FinalReport.Classification.Scores.Procedural)
	}
	// 缺失的评分用 5 兜底
	if result.FinalReport.Classification.Scores.Narrative != 5 {
		t.Errorf("narrative = %v, want 5", result.FinalReport.Classification.Scores.Narrative)
	}
}

func TestClassifyWrapsPlainTextReply(t *testing.T) {
	plain := "这是一段不符合 JSON 格式的分析，模型直接写了总结性的文字，描述了文档的主要内容和结构特点，并给出了一些延伸的观察。"
	chatModel := &mockChatModel{
		generateFunc: func(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
			return schema.AssistantMessage(plain, nil), nil
		},
	}

	result, err := newTestClassifier(chatModel).Classify(context.Background(), "正文")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.FinalReport.DistilledContent != plain {
		t.Errorf("plain reply should be kept as distilled content, got %q", result.FinalReport.DistilledContent)
	}
}

// ========== 采样配置重试 ==========

func TestClassifyRetriesWithProfileBOnRefusal(t *testing.T) {
	calls := 0
	chatModel := &mockChatModel{
		generateFunc: func(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
			calls++
			if calls == 1 {
				return schema.AssistantMessage("抱歉，无法对该内容进行分析。", nil), nil
			}
			o := einomodel.GetCommonOptions(&einomodel.Options{}, opts...)
			if o.Temperature == nil || *o.Temperature != 0.1 {
				t.Errorf("retry must use profile B temperature 0.1, got %v", o.Temperature)
			}
			if o.TopP == nil || *o.TopP != 0.4 {
				t.Errorf("retry must use profile B topP 0.4, got %v", o.TopP)
			}
			return schema.AssistantMessage(validKTypeJSON, nil), nil
		},
	}

	result, err := newTestClassifier(chatModel).Classify(context.Background(), "正文")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if result.Degraded {
		t.Fatal("profile B success must not degrade")
	}
}

func TestClassifyFallsBackWhenBothProfilesFail(t *testing.T) {
	chatModel := &mockChatModel{
		generateFunc: func(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
			return nil, errors.New("request blocked by content moderation")
		},
	}

	result, err := newTestClassifier(chatModel).Classify(context.Background(), "正文")
	if err != nil {
		t.Fatalf("fallback must not return error, got %v", err)
	}
	if !result.Degraded {
		t.Fatal("result must be marked degraded")
	}
	scores := result.FinalReport.Classification.Scores
	if scores.Procedural != 5 || scores.Narrative != 5 {
		t.Errorf("fallback scores = %+v, want all 5", scores)
	}
	if result.FinalReport.ExecutiveSummary == "" {
		t.Error("fallback must still populate the summary")
	}
	if result.RelatedTags == nil || result.FinalReport.KnowledgeModules == nil {
		t.Error("fallback slices must be non-nil")
	}
}

func TestClassifyEmptyTextFails(t *testing.T) {
	_, err := newTestClassifier(&mockChatModel{}).Classify(context.Background(), "   \n ")
	if err == nil {
		t.Fatal("expected error for empty text")
	}
	var clsErr *ClassificationError
	if !errors.As(err, &clsErr) {
		t.Fatalf("err = %T, want *ClassificationError", err)
	}
}

// ========== 多段合并 ==========

func TestMergeOutputs(t *testing.T) {
	a := &llmOutput{
		ExecutiveSummary: strings.Repeat("第一段摘要。", 30),
		RelatedTags:      []string{"架构", "缓存"},
		Scores:           KTypeScores{Procedural: 8, Conceptual: 6, Reasoning: 4, Systemic: 9, Narrative: 2},
		DikwLevel:        "knowledge",
		TacitExplicit:    "60%/40%",
		LogicPattern:     "sequential",
	}
	b := &llmOutput{
		ExecutiveSummary: strings.Repeat("第二段摘要。", 30),
		RelatedTags:      []string{"缓存", "失效"},
		Scores:           KTypeScores{Procedural: 6, Conceptual: 8, Reasoning: 6, Systemic: 7, Narrative: 4},
		DikwLevel:        "knowledge",
		TacitExplicit:    "80%/20%",
		LogicPattern:     "hierarchical",
	}

	merged := mergeOutputs([]*llmOutput{a, b})

	if merged.Scores.Procedural != 7 {
		t.Errorf("procedural avg = %v, want 7", merged.Scores.Procedural)
	}
	if merged.Scores.Narrative != 3 {
		t.Errorf("narrative avg = %v, want 3", merged.Scores.Narrative)
	}
	// 出现两次的标签排最前
	if len(merged.RelatedTags) == 0 || merged.RelatedTags[0] != "缓存" {
		t.Errorf("tags = %v, want 缓存 first", merged.RelatedTags)
	}
	if merged.DikwLevel != "knowledge" {
		t.Errorf("dikw = %q", merged.DikwLevel)
	}
	if merged.TacitExplicit != "70%/30%" {
		t.Errorf("ratio = %q, want 70%%/30%%", merged.TacitExplicit)
	}
}

// ========== 摘要与元数据 ==========

func TestBuildKTypeSummaryText(t *testing.T) {
	result := &KTypeResult{FinalReport: KTypeReport{
		ExecutiveSummary: "执行摘要",
		DistilledContent: "提炼内容",
	}}
	if got := BuildKTypeSummaryText(result); got != "提炼内容" {
		t.Errorf("summary = %q, want distilled content first", got)
	}

	result.FinalReport.DistilledContent = ""
	if got := BuildKTypeSummaryText(result); got != "执行摘要" {
		t.Errorf("summary = %q, want executive summary fallback", got)
	}
}

func TestBuildKTypeMetadata(t *testing.T) {
	result := &KTypeResult{FinalReport: KTypeReport{
		Classification: KTypeClassification{
			Scores:       KTypeScores{Procedural: 3, Conceptual: 9, Reasoning: 5, Systemic: 4, Narrative: 2},
			DominantType: []string{"conceptual"},
		},
		ScanTrace: KTypeScanTrace{DikwLevel: "wisdom", LogicPattern: "deductive"},
		KnowledgeModules: []KTypeModule{
			{Type: "conceptual", Score: 8, CoreValue: "核心概念"},
			{Type: "narrative", Score: 2, CoreValue: "低分模块"},
		},
	}}

	meta := BuildKTypeMetadata(result)
	if meta.DominantType != "conceptual" {
		t.Errorf("dominant_type = %q, want conceptual", meta.DominantType)
	}
	// 低于 5 分的模块不进元数据
	if len(meta.KnowledgeModules) != 1 || meta.KnowledgeModules[0] != "核心概念" {
		t.Errorf("modules = %v", meta.KnowledgeModules)
	}
	if meta.DikwLevel != "wisdom" {
		t.Errorf("dikw = %q", meta.DikwLevel)
	}
}
