package repository

import (
	"time"

	"github.com/contextos/context-os/internal/model"
	"gorm.io/gorm"
)

// KnowledgeRepository 知识库数据访问
type KnowledgeRepository struct {
	db *gorm.DB
}

// NewKnowledgeRepository 创建知识库仓库
func NewKnowledgeRepository(db *gorm.DB) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

// CreateKnowledgeBase 创建知识库
func (r *KnowledgeRepository) CreateKnowledgeBase(kb *model.KnowledgeBase) error {
	return r.db.Create(kb).Error
}

// GetKnowledgeBaseByID 获取知识库
func (r *KnowledgeRepository) GetKnowledgeBaseByID(id string) (*model.KnowledgeBase, error) {
	var kb model.KnowledgeBase
	err := r.db.Preload("Documents").Where("id = ?", id).First(&kb).Error
	if err != nil {
		return nil, err
	}
	return &kb, nil
}

// ListKnowledgeBases 列出某个用户的知识库
func (r *KnowledgeRepository) ListKnowledgeBases(userID string, offset, limit int) ([]*model.KnowledgeBase, error) {
	var kbs []*model.KnowledgeBase
	query := r.db.Order("created_at DESC").Offset(offset).Limit(limit)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	err := query.Find(&kbs).Error
	return kbs, err
}

// UpdateKnowledgeBase 更新知识库
func (r *KnowledgeRepository) UpdateKnowledgeBase(kb *model.KnowledgeBase) error {
	return r.db.Save(kb).Error
}

// DeleteKnowledgeBase 删除知识库及其全部文档与分块
func (r *KnowledgeRepository) DeleteKnowledgeBase(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var docIDs []string
		if err := tx.Model(&model.Document{}).Where("knowledge_base_id = ?", id).
			Pluck("id", &docIDs).Error; err != nil {
			return err
		}
		if len(docIDs) > 0 {
			if err := tx.Delete(&model.DocumentChunk{}, "document_id IN ?", docIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&model.Document{}, "id IN ?", docIDs).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.KnowledgeBase{}, "id = ?", id).Error
	})
}

// CreateDocument 创建文档
func (r *KnowledgeRepository) CreateDocument(doc *model.Document) error {
	return r.db.Create(doc).Error
}

// GetDocumentByID 获取文档
func (r *KnowledgeRepository) GetDocumentByID(id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments 列出文档
func (r *KnowledgeRepository) ListDocuments(kbID string, offset, limit int) ([]*model.Document, error) {
	var docs []*model.Document
	query := r.db.Order("created_at DESC").Offset(offset).Limit(limit)
	if kbID != "" {
		query = query.Where("knowledge_base_id = ?", kbID)
	}
	err := query.Find(&docs).Error
	return docs, err
}

// UpdateDocument 更新文档
func (r *KnowledgeRepository) UpdateDocument(doc *model.Document) error {
	return r.db.Save(doc).Error
}

// UpdateDocumentStatus 更新文档状态
// errorMsg 仅在 failed 时有意义，其余状态会清空旧的错误信息。
func (r *KnowledgeRepository) UpdateDocumentStatus(id, status, errorMsg string) error {
	updates := map[string]interface{}{
		"status":     status,
		"error_msg":  errorMsg,
		"updated_at": time.Now(),
	}
	return r.db.Model(&model.Document{}).Where("id = ?", id).Updates(updates).Error
}

// CompleteDocument 将文档置为 completed，并原子地写入分块数与 K-Type 结果
func (r *KnowledgeRepository) CompleteDocument(id string, chunkCount int, ktypeSummary, ktypeMetadata, deepSummary string) error {
	updates := map[string]interface{}{
		"status":         model.DocumentStatusCompleted,
		"chunk_count":    chunkCount,
		"ktype_summary":  ktypeSummary,
		"ktype_metadata": ktypeMetadata,
		"deep_summary":   deepSummary,
		"error_msg":      "",
		"updated_at":     time.Now(),
	}
	return r.db.Model(&model.Document{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteDocument 删除文档及其分块
func (r *KnowledgeRepository) DeleteDocument(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.DocumentChunk{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Document{}, "id = ?", id).Error
	})
}

// ReplaceChunks 以新的分块集合替换文档现有分块
// 重新入库走删除后写入，保证同一文档不会残留旧批次的分块。
func (r *KnowledgeRepository) ReplaceChunks(docID string, chunks []*model.DocumentChunk) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.DocumentChunk{}, "document_id = ?", docID).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.CreateInBatches(chunks, 100).Error
	})
}

// GetChunksByDocumentID 获取文档分块，按层级和序号排序
func (r *KnowledgeRepository) GetChunksByDocumentID(docID string) ([]*model.DocumentChunk, error) {
	var chunks []*model.DocumentChunk
	err := r.db.Where("document_id = ?", docID).
		Order("kind ASC").Order("ordinal ASC").Find(&chunks).Error
	return chunks, err
}

// GetChunkByID 获取单个分块
func (r *KnowledgeRepository) GetChunkByID(chunkID string) (*model.DocumentChunk, error) {
	var chunk model.DocumentChunk
	err := r.db.Where("id = ?", chunkID).First(&chunk).Error
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// DeleteChunksByDocumentID 删除文档的所有分块
func (r *KnowledgeRepository) DeleteChunksByDocumentID(docID string) error {
	return r.db.Delete(&model.DocumentChunk{}, "document_id = ?", docID).Error
}
