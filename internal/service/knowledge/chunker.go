package knowledge

import "strings"

// 父子分块器
//
// 父块在自然边界（段落、换行、中文标点）处切分，不修剪、不重叠，
// 按序拼接可以无损还原输入文本；子块在父块内部生成，相邻子块之间
// 带重叠以保留上下文。同样的输入和配置总是产生同样的切分结果。

// 分隔符按优先级排列，空串表示按字符强制切分
var (
	parentSeparators = []string{"\n\n", "\n", "。", "，", " "}
	childSeparators  = []string{"\n", "。", "，", " "}
)

// ChunkerConfig 分块配置，尺寸以字符（rune）计
type ChunkerConfig struct {
	ParentChunkSize   int
	ChildChunkSize    int
	ChildChunkOverlap int
}

// DefaultChunkerConfig 默认分块配置
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		ParentChunkSize:   1024,
		ChildChunkSize:    256,
		ChildChunkOverlap: 50,
	}
}

// ParentChunk 父块
type ParentChunk struct {
	Ordinal int
	Content string
}

// ChildChunk 子块
// ParentIndex 指向所属父块在 Parents 中的下标，子块序号全文档连续。
type ChildChunk struct {
	Ordinal     int
	ParentIndex int
	Content     string
}

// ChunkSet 一次分块的完整结果
type ChunkSet struct {
	Parents  []ParentChunk
	Children []ChildChunk
}

// SplitParentChild 对单篇文本执行父子分块
// 空文本返回空结果；短文本恰好产生一个父块和一个子块。
func SplitParentChild(text string, cfg ChunkerConfig) *ChunkSet {
	set := &ChunkSet{}
	if text == "" {
		return set
	}

	parentTexts := splitLossless(text, cfg.ParentChunkSize, parentSeparators)

	childOrdinal := 0
	for parentIndex, parentContent := range parentTexts {
		set.Parents = append(set.Parents, ParentChunk{
			Ordinal: parentIndex,
			Content: parentContent,
		})

		childTexts := splitLossless(parentContent, cfg.ChildChunkSize, childSeparators)
		childTexts = applyOverlap(childTexts, cfg.ChildChunkOverlap)
		for _, childContent := range childTexts {
			set.Children = append(set.Children, ChildChunk{
				Ordinal:     childOrdinal,
				ParentIndex: parentIndex,
				Content:     childContent,
			})
			childOrdinal++
		}
	}

	return set
}

// SplitParentChildBatch 批量分块
// 每篇文本独立切分，互相之间不共享任何状态。
func SplitParentChildBatch(texts []string, cfg ChunkerConfig) []*ChunkSet {
	sets := make([]*ChunkSet, len(texts))
	for i, text := range texts {
		sets[i] = SplitParentChild(text, cfg)
	}
	return sets
}

// splitLossless 递归按分隔符优先级切分文本
// 不修剪、不重叠，所有片段按序拼接严格等于输入。
func splitLossless(text string, chunkSize int, separators []string) []string {
	if len([]rune(text)) <= chunkSize {
		return []string{text}
	}
	return splitBySeparators(text, chunkSize, separators)
}

func splitBySeparators(text string, chunkSize int, separators []string) []string {
	if len(separators) == 0 {
		return splitByRunes(text, chunkSize)
	}

	sep := separators[0]
	rest := separators[1:]

	segments := splitAfter(text, sep)
	if len(segments) == 1 {
		// 当前分隔符没有出现，降级到下一优先级
		return splitBySeparators(text, chunkSize, rest)
	}

	var chunks []string
	current := ""
	currentLen := 0

	for _, seg := range segments {
		segLen := len([]rune(seg))

		if currentLen > 0 && currentLen+segLen > chunkSize {
			chunks = append(chunks, current)
			current = ""
			currentLen = 0
		}

		if segLen > chunkSize {
			chunks = append(chunks, splitBySeparators(seg, chunkSize, rest)...)
			continue
		}

		current += seg
		currentLen += segLen
	}

	if currentLen > 0 {
		chunks = append(chunks, current)
	}

	return chunks
}

// splitAfter 按分隔符切分并把分隔符保留在前一段的末尾
func splitAfter(text, sep string) []string {
	segments := strings.SplitAfter(text, sep)
	// 文本以分隔符结尾时会产生空尾段，丢弃以免生成空块
	if n := len(segments); n > 0 && segments[n-1] == "" {
		segments = segments[:n-1]
	}
	if len(segments) == 0 {
		segments = []string{""}
	}
	return segments
}

// splitByRunes 按固定字符数强制切分
func splitByRunes(text string, chunkSize int) []string {
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// applyOverlap 给第二个及之后的块加上前一块末尾的重叠内容
func applyOverlap(chunks []string, overlap int) []string {
	if overlap <= 0 || len(chunks) <= 1 {
		return chunks
	}
	result := make([]string, len(chunks))
	result[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		start := len(prev) - overlap
		if start < 0 {
			start = 0
		}
		result[i] = string(prev[start:]) + chunks[i]
	}
	return result
}
