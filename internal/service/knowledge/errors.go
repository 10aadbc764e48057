package knowledge

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat 文件格式不受支持
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrEmptyContent 解析后没有可用文本
var ErrEmptyContent = errors.New("document has no extractable text")

// ErrInvalidCallback 回调消息缺少必要字段
var ErrInvalidCallback = errors.New("invalid callback payload")

// ParseError 文档解析失败
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ClassificationError K-Type 主路径和降级路径都失败
type ClassificationError struct {
	DocumentID string
	Err        error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify document %s: %v", e.DocumentID, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// EmbeddingError 向量化失败，带上批次范围便于排查
type EmbeddingError struct {
	BatchStart int
	BatchEnd   int
	Err        error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embed batch [%d,%d): %v", e.BatchStart, e.BatchEnd, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
