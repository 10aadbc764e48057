package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/contextos/context-os/internal/model"
	"github.com/contextos/context-os/internal/repository"
	"github.com/contextos/context-os/internal/service/vector"
)

// DocumentClassifier 文档分类接口
type DocumentClassifier interface {
	Classify(ctx context.Context, text string) (*KTypeResult, error)
}

// TextEmbedder 文本向量化接口
type TextEmbedder interface {
	EmbedAll(ctx context.Context, texts []string) ([][]float64, error)
}

// DocumentParser 文档解析接口
type DocumentParser interface {
	Parse(ctx context.Context, name string, reader io.Reader) (string, error)
	ParseWebPage(ctx context.Context, url string) (string, error)
}

// FileOpener 文件内容读取接口，由文件存储服务实现
type FileOpener interface {
	Get(ctx context.Context, filePath string) (io.ReadCloser, error)
}

var (
	_ DocumentClassifier = (*Classifier)(nil)
	_ TextEmbedder       = (*EmbeddingClient)(nil)
	_ DocumentParser     = (*Parser)(nil)
)

// ProcessorOptions 处理器依赖与配置
type ProcessorOptions struct {
	Repo       repository.KnowledgeStore
	Store      vector.Store
	Classifier DocumentClassifier
	Embedder   TextEmbedder
	Parser     DocumentParser
	Files      FileOpener
	Notifier   Notifier
	Progress   ProgressReporter
	Chunker    ChunkerConfig
	// Workers 异步处理的并发 worker 数
	Workers int
	// Timeout 单篇文档处理的总超时
	Timeout time.Duration
}

// Processor 文档处理管线
// 串联 解析 -> K-Type 分类 -> 父子分块 -> 向量化 -> 三层写入，
// 任一阶段失败都会把文档标记为 failed 并清理已写入的向量。
type Processor struct {
	repo       repository.KnowledgeStore
	store      vector.Store
	classifier DocumentClassifier
	embedder   TextEmbedder
	parser     DocumentParser
	files      FileOpener
	notifier   Notifier
	progress   ProgressReporter
	chunker    ChunkerConfig
	timeout    time.Duration
	workers    *ants.Pool
}

// NewProcessor 创建文档处理器
func NewProcessor(opts ProcessorOptions) (*Processor, error) {
	if opts.Repo == nil || opts.Store == nil || opts.Classifier == nil || opts.Embedder == nil || opts.Parser == nil {
		return nil, fmt.Errorf("processor: missing required dependency")
	}
	if opts.Chunker.ParentChunkSize <= 0 {
		opts.Chunker = DefaultChunkerConfig()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Minute
	}

	pool, err := ants.NewPool(opts.Workers, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Processor{
		repo:       opts.Repo,
		store:      opts.Store,
		classifier: opts.Classifier,
		embedder:   opts.Embedder,
		parser:     opts.Parser,
		files:      opts.Files,
		notifier:   opts.Notifier,
		progress:   opts.Progress,
		chunker:    opts.Chunker,
		timeout:    opts.Timeout,
		workers:    pool,
	}, nil
}

// Close 等待在途任务完成并释放 worker 池
func (p *Processor) Close() {
	p.workers.Release()
}

// Submit 提交异步处理任务
// worker 池满时阻塞等待空位，任务结果通过回调和文档状态传达。
func (p *Processor) Submit(docID string) error {
	return p.workers.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.Process(ctx, docID); err != nil {
			log.Printf("[processor] document %s failed: %v", docID, err)
		}
	})
}

// Process 同步执行完整处理流程
func (p *Processor) Process(ctx context.Context, docID string) error {
	doc, err := p.repo.GetDocumentByID(docID)
	if err != nil {
		return fmt.Errorf("document %s not found: %w", docID, err)
	}

	if err := p.repo.UpdateDocumentStatus(doc.ID, model.DocumentStatusProcessing, ""); err != nil {
		return fmt.Errorf("mark document %s processing: %w", doc.ID, err)
	}

	if err := p.run(ctx, doc); err != nil {
		p.fail(ctx, doc, err)
		return err
	}
	return nil
}

func (p *Processor) run(ctx context.Context, doc *model.Document) error {
	start := time.Now()

	p.reportProgress(ctx, doc.ID, StageParsing)
	text, err := p.extractText(ctx, doc)
	if err != nil {
		return err
	}

	p.reportProgress(ctx, doc.ID, StageClassifying)
	ktype, err := p.classifier.Classify(ctx, text)
	if err != nil {
		return err
	}

	p.reportProgress(ctx, doc.ID, StageChunking)
	set := SplitParentChild(text, p.chunker)
	if len(set.Parents) == 0 {
		return &ParseError{Source: doc.ID, Err: ErrEmptyContent}
	}

	summaryText := BuildKTypeSummaryText(ktype)
	if summaryText == "" {
		summaryText = firstRunes(text, 500)
	}

	if err := p.store.EnsureCollection(ctx, doc.UserID); err != nil {
		return err
	}

	// 向量化顺序与点位构建顺序一致：摘要、父块、子块
	p.reportProgress(ctx, doc.ID, StageEmbedding)
	texts := make([]string, 0, 1+len(set.Parents)+len(set.Children))
	texts = append(texts, summaryText)
	for _, parent := range set.Parents {
		texts = append(texts, parent.Content)
	}
	for _, child := range set.Children {
		texts = append(texts, child.Content)
	}
	vectors, err := p.embedder.EmbedAll(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("vector count mismatch: expected %d, got %d", len(texts), len(vectors))
	}

	p.reportProgress(ctx, doc.ID, StageIndexing)
	meta := BuildKTypeMetadata(ktype)
	points := buildPoints(doc, meta, summaryText, set, vectors)
	if err := p.store.Upsert(ctx, doc.UserID, points); err != nil {
		return err
	}

	if err := p.repo.ReplaceChunks(doc.ID, chunkRecords(doc.ID, set)); err != nil {
		return fmt.Errorf("persist chunks: %w", err)
	}

	chunkCount := len(set.Parents) + len(set.Children)
	metaJSON := MarshalKTypeMetadata(meta)
	deepJSON := MarshalDeepSummary(ktype)
	if err := p.repo.CompleteDocument(doc.ID, chunkCount, summaryText, metaJSON, deepJSON); err != nil {
		return fmt.Errorf("complete document: %w", err)
	}

	p.reportProgress(ctx, doc.ID, StageCompleted)
	p.notify(ctx, &CallbackPayload{
		DocID:         doc.ID,
		Status:        model.DocumentStatusCompleted,
		KTypeSummary:  summaryText,
		KTypeMetadata: metaJSON,
		DeepSummary:   deepJSON,
		ChunkCount:    chunkCount,
	})

	log.Printf("[processor] document %s completed: %d parents, %d children, degraded=%v, took %s",
		doc.ID, len(set.Parents), len(set.Children), ktype.Degraded, time.Since(start).Round(time.Millisecond))
	return nil
}

// extractText 按来源类型取得原始文本
func (p *Processor) extractText(ctx context.Context, doc *model.Document) (string, error) {
	if doc.SourceType == model.DocumentSourceWebPage {
		if doc.SourceURL == "" {
			return "", &ParseError{Source: doc.ID, Err: errors.New("web document has no source url")}
		}
		return p.parser.ParseWebPage(ctx, doc.SourceURL)
	}

	if doc.FilePath == "" {
		return "", &ParseError{Source: doc.ID, Err: errors.New("document has no file path")}
	}
	if p.files == nil {
		return "", &ParseError{Source: doc.FilePath, Err: errors.New("file storage not configured")}
	}
	reader, err := p.files.Get(ctx, doc.FilePath)
	if err != nil {
		return "", &ParseError{Source: doc.FilePath, Err: err}
	}
	defer reader.Close()

	name := doc.FileName
	if name == "" {
		name = doc.FilePath
	}
	return p.parser.Parse(ctx, name, reader)
}

// fail 失败收尾：标记状态、清理向量、发送回调
// 收尾动作都是尽力而为，失败只记日志。
func (p *Processor) fail(ctx context.Context, doc *model.Document, procErr error) {
	if err := p.repo.UpdateDocumentStatus(doc.ID, model.DocumentStatusFailed, procErr.Error()); err != nil {
		log.Printf("[processor] mark document %s failed: %v", doc.ID, err)
	}
	p.reportProgress(ctx, doc.ID, StageFailed)

	// 清理可能写入了一半的向量
	if err := p.store.DeleteByDocument(ctx, doc.UserID, doc.ID); err != nil {
		log.Printf("[processor] cleanup vectors for document %s: %v", doc.ID, err)
	}

	p.notify(ctx, &CallbackPayload{
		DocID:        doc.ID,
		Status:       model.DocumentStatusFailed,
		ErrorMessage: procErr.Error(),
	})
}

func (p *Processor) reportProgress(ctx context.Context, docID, stage string) {
	if p.progress != nil {
		p.progress.Report(ctx, docID, stage)
	}
}

func (p *Processor) notify(ctx context.Context, payload *CallbackPayload) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, payload); err != nil {
		log.Printf("[processor] callback for document %s: %v", payload.DocID, err)
	}
}

// pointID 生成确定性点位 ID
// 同一文档重新处理时覆盖旧点位而不是堆积新点位。
func pointID(docID, pointType string, ordinal int) string {
	name := fmt.Sprintf("%s/%s/%d", docID, pointType, ordinal)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// buildPoints 构建三层点位：文档摘要、父块、子块
// 点位顺序与 run 中的向量化文本顺序严格对应。
func buildPoints(doc *model.Document, meta *KTypeMetadata, summaryText string, set *ChunkSet, vectors [][]float64) []vector.Point {
	points := make([]vector.Point, 0, len(vectors))

	points = append(points, vector.Point{
		ID:     pointID(doc.ID, vector.PointTypeDocument, 0),
		Vector: vectors[0],
		Payload: map[string]interface{}{
			"doc_id":      doc.ID,
			"kb_id":       doc.KnowledgeBaseID,
			"user_id":     doc.UserID,
			"type":        vector.PointTypeDocument,
			"content":     summaryText,
			"chunk_index": 0,
			"metadata":    map[string]interface{}{"ktype": meta},
		},
	})

	cursor := 1
	for _, parent := range set.Parents {
		points = append(points, vector.Point{
			ID:     pointID(doc.ID, vector.PointTypeParent, parent.Ordinal),
			Vector: vectors[cursor],
			Payload: map[string]interface{}{
				"doc_id":      doc.ID,
				"kb_id":       doc.KnowledgeBaseID,
				"user_id":     doc.UserID,
				"type":        vector.PointTypeParent,
				"content":     parent.Content,
				"chunk_index": parent.Ordinal,
				"metadata":    map[string]interface{}{"file_name": doc.FileName},
			},
		})
		cursor++
	}

	for _, child := range set.Children {
		parentOrdinal := set.Parents[child.ParentIndex].Ordinal
		points = append(points, vector.Point{
			ID:     pointID(doc.ID, vector.PointTypeChild, child.Ordinal),
			Vector: vectors[cursor],
			Payload: map[string]interface{}{
				"doc_id":      doc.ID,
				"kb_id":       doc.KnowledgeBaseID,
				"user_id":     doc.UserID,
				"type":        vector.PointTypeChild,
				"content":     child.Content,
				"chunk_index": child.Ordinal,
				"parent_id":   pointID(doc.ID, vector.PointTypeParent, parentOrdinal),
				"metadata":    map[string]interface{}{"parent_index": child.ParentIndex},
			},
		})
		cursor++
	}

	return points
}

// chunkRecords 把分块结果转成数据库记录
func chunkRecords(docID string, set *ChunkSet) []*model.DocumentChunk {
	chunks := make([]*model.DocumentChunk, 0, len(set.Parents)+len(set.Children))
	for _, parent := range set.Parents {
		chunks = append(chunks, &model.DocumentChunk{
			ID:            uuid.New().String(),
			DocumentID:    docID,
			Kind:          model.ChunkKindParent,
			Ordinal:       parent.Ordinal,
			ParentOrdinal: -1,
			Content:       parent.Content,
			CharCount:     len([]rune(parent.Content)),
		})
	}
	for _, child := range set.Children {
		chunks = append(chunks, &model.DocumentChunk{
			ID:            uuid.New().String(),
			DocumentID:    docID,
			Kind:          model.ChunkKindChild,
			Ordinal:       child.Ordinal,
			ParentOrdinal: set.Parents[child.ParentIndex].Ordinal,
			Content:       child.Content,
			CharCount:     len([]rune(child.Content)),
		})
	}
	return chunks
}

func firstRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}
