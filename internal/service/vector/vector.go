// Package vector 封装按用户隔离的向量存储。
// 每个用户的数据落在独立集合 user_{id}_vectors 中，
// 点位通过 payload 中的 doc_id / kb_id / type 进行过滤。
package vector

import (
	"context"
	"fmt"
)

// 点位类型，对应文档的三层向量布局
const (
	PointTypeDocument = "document"
	PointTypeParent   = "parent"
	PointTypeChild    = "child"
)

// Point 待写入的向量点位
type Point struct {
	ID      string                 `json:"id"`
	Vector  []float64              `json:"vector"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ScrolledPoint 读取到的点位（不含向量）
type ScrolledPoint struct {
	ID      string                 `json:"id"`
	Payload map[string]interface{} `json:"payload"`
}

// Filter 点位过滤条件，语义为 must 全部命中
type Filter struct {
	Must []Condition `json:"must,omitempty"`
}

// Condition 单个字段的精确匹配条件
type Condition struct {
	Key   string     `json:"key"`
	Match MatchValue `json:"match"`
}

// MatchValue 匹配值
type MatchValue struct {
	Value interface{} `json:"value"`
}

// DocFilter 按文档过滤
func DocFilter(docID string) *Filter {
	return &Filter{Must: []Condition{{Key: "doc_id", Match: MatchValue{Value: docID}}}}
}

// DocTypeFilter 按文档和点位类型过滤
func DocTypeFilter(docID, pointType string) *Filter {
	return &Filter{Must: []Condition{
		{Key: "doc_id", Match: MatchValue{Value: docID}},
		{Key: "type", Match: MatchValue{Value: pointType}},
	}}
}

// KBFilter 按知识库过滤
func KBFilter(kbID string) *Filter {
	return &Filter{Must: []Condition{{Key: "kb_id", Match: MatchValue{Value: kbID}}}}
}

// Store 向量存储接口
// 接口定义使处理管线可以轻松 mock 进行单元测试。
type Store interface {
	// EnsureCollection 确保用户集合存在，可重复调用
	EnsureCollection(ctx context.Context, userID string) error
	// Upsert 批量写入点位，同一 ID 重复写入会覆盖
	Upsert(ctx context.Context, userID string, points []Point) error
	// DeleteByDocument 删除某个文档的全部点位，集合不存在视为成功
	DeleteByDocument(ctx context.Context, userID, docID string) error
	// DeleteByKnowledgeBase 删除某个知识库的全部点位
	DeleteByKnowledgeBase(ctx context.Context, userID, kbID string) error
	// Scroll 按过滤条件翻页读取点位
	Scroll(ctx context.Context, userID string, filter *Filter, limit int, offset interface{}) ([]ScrolledPoint, interface{}, error)
	// Count 按过滤条件统计点位数
	Count(ctx context.Context, userID string, filter *Filter) (int64, error)
}

// StoreError 向量存储操作错误
type StoreError struct {
	Op         string
	Collection string
	Status     int
	Message    string
}

func (e *StoreError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("vector store %s on %s: status %d: %s", e.Op, e.Collection, e.Status, e.Message)
	}
	return fmt.Sprintf("vector store %s on %s: %s", e.Op, e.Collection, e.Message)
}

// CollectionName 返回用户的集合名
func CollectionName(userID string) string {
	return fmt.Sprintf("user_%s_vectors", userID)
}

// MockStore 用于测试的 mock 向量存储，未设置的方法默认成功
type MockStore struct {
	EnsureFunc    func(ctx context.Context, userID string) error
	UpsertFunc    func(ctx context.Context, userID string, points []Point) error
	DeleteDocFunc func(ctx context.Context, userID, docID string) error
	DeleteKBFunc  func(ctx context.Context, userID, kbID string) error
	ScrollFunc    func(ctx context.Context, userID string, filter *Filter, limit int, offset interface{}) ([]ScrolledPoint, interface{}, error)
	CountFunc     func(ctx context.Context, userID string, filter *Filter) (int64, error)
}

var _ Store = (*MockStore)(nil)

func (m *MockStore) EnsureCollection(ctx context.Context, userID string) error {
	if m.EnsureFunc != nil {
		return m.EnsureFunc(ctx, userID)
	}
	return nil
}

func (m *MockStore) Upsert(ctx context.Context, userID string, points []Point) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, userID, points)
	}
	return nil
}

func (m *MockStore) DeleteByDocument(ctx context.Context, userID, docID string) error {
	if m.DeleteDocFunc != nil {
		return m.DeleteDocFunc(ctx, userID, docID)
	}
	return nil
}

func (m *MockStore) DeleteByKnowledgeBase(ctx context.Context, userID, kbID string) error {
	if m.DeleteKBFunc != nil {
		return m.DeleteKBFunc(ctx, userID, kbID)
	}
	return nil
}

func (m *MockStore) Scroll(ctx context.Context, userID string, filter *Filter, limit int, offset interface{}) ([]ScrolledPoint, interface{}, error) {
	if m.ScrollFunc != nil {
		return m.ScrollFunc(ctx, userID, filter, limit, offset)
	}
	return nil, nil, nil
}

func (m *MockStore) Count(ctx context.Context, userID string, filter *Filter) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, userID, filter)
	}
	return 0, nil
}
