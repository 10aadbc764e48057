package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// 处理阶段，进度百分比只服务于前端展示
const (
	StageQueued      = "queued"
	StageParsing     = "parsing"
	StageClassifying = "classifying"
	StageChunking    = "chunking"
	StageEmbedding   = "embedding"
	StageIndexing    = "indexing"
	StageCompleted   = "completed"
	StageFailed      = "failed"
)

var stagePercent = map[string]int{
	StageQueued:      0,
	StageParsing:     10,
	StageClassifying: 35,
	StageChunking:    55,
	StageEmbedding:   75,
	StageIndexing:    90,
	StageCompleted:   100,
	StageFailed:      100,
}

// ProgressReporter 进度上报接口
type ProgressReporter interface {
	Report(ctx context.Context, docID, stage string)
	Get(ctx context.Context, docID string) (*DocumentProgress, error)
}

// DocumentProgress 文档处理进度
type DocumentProgress struct {
	DocID     string    `json:"doc_id"`
	Stage     string    `json:"stage"`
	Percent   int       `json:"percent"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressStore 基于 Redis 的进度存储
type ProgressStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ProgressReporter = (*ProgressStore)(nil)

// NewProgressStore 创建进度存储
func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func progressKey(docID string) string {
	return "context-os:doc:progress:" + docID
}

// Report 记录当前处理阶段
// 进度只是展示层信息，写入失败只记日志不影响处理流程。
func (s *ProgressStore) Report(ctx context.Context, docID, stage string) {
	if s.client == nil {
		return
	}

	progress := &DocumentProgress{
		DocID:     docID,
		Stage:     stage,
		Percent:   stagePercent[stage],
		UpdatedAt: time.Now(),
	}
	data, err := json.Marshal(progress)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, progressKey(docID), data, s.ttl).Err(); err != nil {
		log.Printf("[progress] failed to store progress for %s: %v", docID, err)
	}
}

// Get 读取处理进度
func (s *ProgressStore) Get(ctx context.Context, docID string) (*DocumentProgress, error) {
	if s.client == nil {
		return nil, fmt.Errorf("progress store not configured")
	}

	data, err := s.client.Get(ctx, progressKey(docID)).Bytes()
	if err != nil {
		return nil, err
	}
	var progress DocumentProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}
