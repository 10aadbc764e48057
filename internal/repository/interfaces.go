// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能
package repository

import "github.com/contextos/context-os/internal/model"

// ========== KnowledgeStore 接口 ==========

// KnowledgeStore 知识库数据访问接口
// 接口定义使 Service 层可以轻松 mock 进行单元测试
type KnowledgeStore interface {
	// 知识库操作
	CreateKnowledgeBase(kb *model.KnowledgeBase) error
	GetKnowledgeBaseByID(id string) (*model.KnowledgeBase, error)
	ListKnowledgeBases(userID string, offset, limit int) ([]*model.KnowledgeBase, error)
	UpdateKnowledgeBase(kb *model.KnowledgeBase) error
	DeleteKnowledgeBase(id string) error

	// 文档操作
	CreateDocument(doc *model.Document) error
	GetDocumentByID(id string) (*model.Document, error)
	ListDocuments(kbID string, offset, limit int) ([]*model.Document, error)
	UpdateDocument(doc *model.Document) error
	UpdateDocumentStatus(id, status, errorMsg string) error
	CompleteDocument(id string, chunkCount int, ktypeSummary, ktypeMetadata, deepSummary string) error
	DeleteDocument(id string) error

	// 分块操作
	ReplaceChunks(docID string, chunks []*model.DocumentChunk) error
	GetChunksByDocumentID(docID string) ([]*model.DocumentChunk, error)
	GetChunkByID(chunkID string) (*model.DocumentChunk, error)
	DeleteChunksByDocumentID(docID string) error
}

// 确保 KnowledgeRepository 实现了接口
var _ KnowledgeStore = (*KnowledgeRepository)(nil)
