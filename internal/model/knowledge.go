package model

import "time"

// 文档处理状态
const (
	DocumentStatusQueued     = "queued"
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

// 文档来源类型
const (
	DocumentSourceFile    = "file"
	DocumentSourceWebPage = "webpage"
)

// 分块层级
const (
	ChunkKindParent = "parent"
	ChunkKindChild  = "child"
)

// KnowledgeBase 知识库
type KnowledgeBase struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	UserID      string     `gorm:"index;size:36" json:"user_id"`
	Name        string     `gorm:"size:100" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Documents   []Document `gorm:"foreignKey:KnowledgeBaseID" json:"documents,omitempty"`
}

// Document 文档
// Status 只会处于 queued/processing/completed/failed 之一；
// ChunkCount 与 K-Type 字段仅在进入 completed 时一并写入。
type Document struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	KnowledgeBaseID string          `gorm:"index;size:36" json:"knowledge_base_id"`
	UserID          string          `gorm:"index;size:36" json:"user_id"`
	Title           string          `gorm:"size:255" json:"title"`
	FileName        string          `gorm:"size:255" json:"file_name"`
	FilePath        string          `gorm:"size:500" json:"file_path"`
	FileSize        int64           `gorm:"default:0" json:"file_size"`
	SourceType      string          `gorm:"size:20;default:file" json:"source_type"`
	SourceURL       string          `gorm:"size:1000" json:"source_url"`
	Status          string          `gorm:"size:20;index;default:queued" json:"status"`
	ChunkCount      int             `gorm:"default:0" json:"chunk_count"`
	ErrorMsg        string          `gorm:"type:text" json:"error_msg"`
	KTypeSummary    string          `gorm:"type:text" json:"ktype_summary"`
	KTypeMetadata   string          `gorm:"type:jsonb;default:'{}'" json:"ktype_metadata"`
	DeepSummary     string          `gorm:"type:jsonb;default:'{}'" json:"deep_summary"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	Chunks          []DocumentChunk `gorm:"foreignKey:DocumentID" json:"chunks,omitempty"`
}

// DocumentChunk 文档分块
// 父块按序拼接可无损还原原文；子块通过 ParentOrdinal 归属到某个父块。
type DocumentChunk struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	DocumentID    string    `gorm:"index;size:36" json:"document_id"`
	Kind          string    `gorm:"size:10;index" json:"kind"`
	Ordinal       int       `gorm:"index" json:"ordinal"`
	ParentOrdinal int       `gorm:"default:-1" json:"parent_ordinal"`
	Content       string    `gorm:"type:text" json:"content"`
	CharCount     int       `gorm:"default:0" json:"char_count"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (KnowledgeBase) TableName() string {
	return "knowledge_bases"
}

func (Document) TableName() string {
	return "documents"
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
