// Package knowledge 实现文档入库管线：
// 解析、K-Type 认知扫描、父子分块、向量化、按用户隔离的三层向量写入。
package knowledge

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/contextos/context-os/internal/model"
	"github.com/contextos/context-os/internal/repository"
	"github.com/contextos/context-os/internal/service/vector"
)

// Service 知识库服务
type Service struct {
	repo      repository.KnowledgeStore
	store     vector.Store
	processor *Processor
	progress  ProgressReporter
}

// NewService 创建知识库服务
func NewService(repo repository.KnowledgeStore, store vector.Store, processor *Processor, progress ProgressReporter) *Service {
	return &Service{
		repo:      repo,
		store:     store,
		processor: processor,
		progress:  progress,
	}
}

// ========== 知识库 ==========

// CreateKnowledgeBaseRequest 创建知识库请求
type CreateKnowledgeBaseRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateKnowledgeBase 创建知识库
func (s *Service) CreateKnowledgeBase(ctx context.Context, userID string, req *CreateKnowledgeBaseRequest) (*model.KnowledgeBase, error) {
	kb := &model.KnowledgeBase{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
	}

	if err := s.repo.CreateKnowledgeBase(kb); err != nil {
		return nil, fmt.Errorf("failed to create knowledge base: %w", err)
	}
	return kb, nil
}

// GetKnowledgeBase 获取知识库
func (s *Service) GetKnowledgeBase(ctx context.Context, userID, id string) (*model.KnowledgeBase, error) {
	return s.ownedKnowledgeBase(userID, id)
}

// ListKnowledgeBasesRequest 列出知识库请求
type ListKnowledgeBasesRequest struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// ListKnowledgeBases 列出当前用户的知识库
func (s *Service) ListKnowledgeBases(ctx context.Context, userID string, req *ListKnowledgeBasesRequest) ([]*model.KnowledgeBase, error) {
	offset, limit := pageToRange(req.Page, req.Size)
	return s.repo.ListKnowledgeBases(userID, offset, limit)
}

// UpdateKnowledgeBase 更新知识库
func (s *Service) UpdateKnowledgeBase(ctx context.Context, userID, id string, req *CreateKnowledgeBaseRequest) (*model.KnowledgeBase, error) {
	kb, err := s.ownedKnowledgeBase(userID, id)
	if err != nil {
		return nil, err
	}

	kb.Name = req.Name
	kb.Description = req.Description
	if err := s.repo.UpdateKnowledgeBase(kb); err != nil {
		return nil, fmt.Errorf("failed to update knowledge base: %w", err)
	}
	return kb, nil
}

// DeleteKnowledgeBase 删除知识库及其全部文档、分块和向量
func (s *Service) DeleteKnowledgeBase(ctx context.Context, userID, id string) error {
	if _, err := s.ownedKnowledgeBase(userID, id); err != nil {
		return err
	}

	if err := s.repo.DeleteKnowledgeBase(id); err != nil {
		return fmt.Errorf("failed to delete knowledge base: %w", err)
	}

	// 向量清理尽力而为，失败不回滚已删除的关系数据
	if err := s.store.DeleteByKnowledgeBase(ctx, userID, id); err != nil {
		log.Printf("[knowledge] cleanup vectors for knowledge base %s: %v", id, err)
	}
	return nil
}

// ========== 文档 ==========

// UploadDocumentRequest 上传文档请求
// 文件来源填 FileName/FilePath，网页来源填 SourceURL。
type UploadDocumentRequest struct {
	KnowledgeBaseID string `json:"knowledge_base_id" binding:"required"`
	Title           string `json:"title"`
	FileName        string `json:"file_name"`
	FilePath        string `json:"file_path"`
	FileSize        int64  `json:"file_size"`
	SourceType      string `json:"source_type"`
	SourceURL       string `json:"source_url"`
}

// UploadDocument 登记文档并提交异步处理
func (s *Service) UploadDocument(ctx context.Context, userID string, req *UploadDocumentRequest) (*model.Document, error) {
	if _, err := s.ownedKnowledgeBase(userID, req.KnowledgeBaseID); err != nil {
		return nil, err
	}

	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = model.DocumentSourceFile
	}
	switch sourceType {
	case model.DocumentSourceFile:
		if req.FilePath == "" {
			return nil, fmt.Errorf("file document requires file_path")
		}
	case model.DocumentSourceWebPage:
		if req.SourceURL == "" {
			return nil, fmt.Errorf("web document requires source_url")
		}
	default:
		return nil, fmt.Errorf("unknown source type: %s", sourceType)
	}

	title := req.Title
	if title == "" {
		title = req.FileName
	}
	if title == "" {
		title = req.SourceURL
	}

	doc := &model.Document{
		ID:              uuid.New().String(),
		KnowledgeBaseID: req.KnowledgeBaseID,
		UserID:          userID,
		Title:           title,
		FileName:        req.FileName,
		FilePath:        req.FilePath,
		FileSize:        req.FileSize,
		SourceType:      sourceType,
		SourceURL:       req.SourceURL,
		Status:          model.DocumentStatusQueued,
	}
	if err := s.repo.CreateDocument(doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	if s.processor != nil {
		if err := s.processor.Submit(doc.ID); err != nil {
			log.Printf("[knowledge] submit document %s: %v", doc.ID, err)
		}
	}
	return doc, nil
}

// GetDocument 获取文档
func (s *Service) GetDocument(ctx context.Context, userID, id string) (*model.Document, error) {
	return s.ownedDocument(userID, id)
}

// ListDocumentsRequest 列出文档请求
type ListDocumentsRequest struct {
	KnowledgeBaseID string `json:"knowledge_base_id" binding:"required"`
	Page            int    `json:"page"`
	Size            int    `json:"size"`
}

// ListDocuments 列出知识库下的文档
func (s *Service) ListDocuments(ctx context.Context, userID string, req *ListDocumentsRequest) ([]*model.Document, error) {
	if _, err := s.ownedKnowledgeBase(userID, req.KnowledgeBaseID); err != nil {
		return nil, err
	}
	offset, limit := pageToRange(req.Page, req.Size)
	return s.repo.ListDocuments(req.KnowledgeBaseID, offset, limit)
}

// DeleteDocument 删除文档及其分块和向量
func (s *Service) DeleteDocument(ctx context.Context, userID, id string) error {
	doc, err := s.ownedDocument(userID, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteDocument(id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if err := s.store.DeleteByDocument(ctx, userID, doc.ID); err != nil {
		log.Printf("[knowledge] cleanup vectors for document %s: %v", id, err)
	}
	return nil
}

// ReprocessDocument 重新执行文档处理
// 处理中的文档拒绝重复提交；确定性点位 ID 保证重跑覆盖旧向量。
func (s *Service) ReprocessDocument(ctx context.Context, userID, id string) error {
	doc, err := s.ownedDocument(userID, id)
	if err != nil {
		return err
	}
	if doc.Status == model.DocumentStatusProcessing {
		return fmt.Errorf("document %s is already processing", id)
	}
	if s.processor == nil {
		return fmt.Errorf("document processor not configured")
	}
	return s.processor.Submit(doc.ID)
}

// GetDocumentProgress 查询文档处理进度
func (s *Service) GetDocumentProgress(ctx context.Context, userID, id string) (*DocumentProgress, error) {
	doc, err := s.ownedDocument(userID, id)
	if err != nil {
		return nil, err
	}
	if s.progress == nil {
		return &DocumentProgress{DocID: doc.ID, Stage: doc.Status, Percent: stagePercent[doc.Status]}, nil
	}
	progress, err := s.progress.Get(ctx, doc.ID)
	if err != nil {
		// 没有进度记录时退回文档状态
		return &DocumentProgress{DocID: doc.ID, Stage: doc.Status, Percent: stagePercent[doc.Status]}, nil
	}
	return progress, nil
}

// ========== 分块与点位浏览 ==========

// GetChunks 获取文档的全部分块记录
func (s *Service) GetChunks(ctx context.Context, userID, docID string) ([]*model.DocumentChunk, error) {
	if _, err := s.ownedDocument(userID, docID); err != nil {
		return nil, err
	}
	return s.repo.GetChunksByDocumentID(docID)
}

// ListPointsRequest 浏览向量点位请求
type ListPointsRequest struct {
	DocumentID string      `json:"document_id" binding:"required"`
	PointType  string      `json:"point_type"`
	Limit      int         `json:"limit"`
	Offset     interface{} `json:"offset"`
}

// ListDocumentPoints 翻页浏览文档的向量点位
func (s *Service) ListDocumentPoints(ctx context.Context, userID string, req *ListPointsRequest) ([]vector.ScrolledPoint, interface{}, error) {
	if _, err := s.ownedDocument(userID, req.DocumentID); err != nil {
		return nil, nil, err
	}

	filter := vector.DocFilter(req.DocumentID)
	if req.PointType != "" {
		filter = vector.DocTypeFilter(req.DocumentID, req.PointType)
	}
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.Scroll(ctx, userID, filter, limit, req.Offset)
}

// CountDocumentPoints 统计文档的向量点位数
func (s *Service) CountDocumentPoints(ctx context.Context, userID, docID string) (int64, error) {
	if _, err := s.ownedDocument(userID, docID); err != nil {
		return 0, err
	}
	return s.store.Count(ctx, userID, vector.DocFilter(docID))
}

// ========== 处理结果回调 ==========

// ProcessingResultRequest 外部 worker 上报的处理结果
// 字段命名与出站回调的 CallbackPayload 保持一致。
type ProcessingResultRequest struct {
	DocID         string `json:"docId" binding:"required"`
	Status        string `json:"status" binding:"required"`
	KTypeSummary  string `json:"ktypeSummary"`
	KTypeMetadata string `json:"ktypeMetadata"`
	DeepSummary   string `json:"deepSummary"`
	ChunkCount    int    `json:"chunkCount"`
	ErrorMessage  string `json:"errorMessage"`
}

// ApplyProcessingResult 应用处理结果回调
// completed 必须带摘要和分块数；failed 记录错误信息；其余状态连同错误信息原样落库。
func (s *Service) ApplyProcessingResult(ctx context.Context, req *ProcessingResultRequest) error {
	if _, err := s.repo.GetDocumentByID(req.DocID); err != nil {
		return fmt.Errorf("document not found: %w", err)
	}

	switch req.Status {
	case model.DocumentStatusCompleted:
		if req.KTypeSummary == "" {
			return fmt.Errorf("%w: completed callback requires ktypeSummary", ErrInvalidCallback)
		}
		if req.ChunkCount <= 0 {
			return fmt.Errorf("%w: completed callback requires chunkCount", ErrInvalidCallback)
		}
		meta := req.KTypeMetadata
		if meta == "" {
			meta = "{}"
		}
		deep := req.DeepSummary
		if deep == "" {
			deep = "{}"
		}
		return s.repo.CompleteDocument(req.DocID, req.ChunkCount, req.KTypeSummary, meta, deep)

	case model.DocumentStatusFailed:
		return s.repo.UpdateDocumentStatus(req.DocID, model.DocumentStatusFailed, req.ErrorMessage)

	default:
		return s.repo.UpdateDocumentStatus(req.DocID, req.Status, req.ErrorMessage)
	}
}

// ========== 内部辅助 ==========

// ownedKnowledgeBase 读取知识库并校验归属
// 他人的知识库与不存在的知识库返回同样的错误，不泄露存在性。
func (s *Service) ownedKnowledgeBase(userID, id string) (*model.KnowledgeBase, error) {
	kb, err := s.repo.GetKnowledgeBaseByID(id)
	if err != nil {
		return nil, fmt.Errorf("knowledge base not found: %w", err)
	}
	if kb.UserID != userID {
		return nil, fmt.Errorf("knowledge base not found: %s", id)
	}
	return kb, nil
}

// ownedDocument 读取文档并校验归属
func (s *Service) ownedDocument(userID, id string) (*model.Document, error) {
	doc, err := s.repo.GetDocumentByID(id)
	if err != nil {
		return nil, fmt.Errorf("document not found: %w", err)
	}
	if doc.UserID != userID {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	return doc, nil
}

func pageToRange(page, size int) (offset, limit int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return (page - 1) * size, size
}
