package knowledge

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/contextos/context-os/internal/limiter"
)

// LimiterKeyEmbedding 向量化调用的限流键
const LimiterKeyEmbedding = "embedding-api"

// EmbeddingClient 批量向量化客户端
// 按批提交并保持输入顺序，瞬时故障带退避重试，所有调用经过限流器。
type EmbeddingClient struct {
	embedder   embedding.Embedder
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	limiter    *limiter.Pool
}

// NewEmbeddingClient 创建向量化客户端
func NewEmbeddingClient(embedder embedding.Embedder, batchSize int, pool *limiter.Pool) *EmbeddingClient {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &EmbeddingClient{
		embedder:   embedder,
		batchSize:  batchSize,
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
		limiter:    pool,
	}
}

// EmbedAll 向量化全部文本
// 返回向量与输入一一对应；不可恢复的失败返回 EmbeddingError。
func (c *EmbeddingClient) EmbedAll(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batchVectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, &EmbeddingError{BatchStart: start, BatchEnd: end, Err: err}
		}
		vectors = append(vectors, batchVectors...)
		log.Printf("[embed] batch %d: %d vectors", start/c.batchSize+1, len(batchVectors))
	}
	return vectors, nil
}

func (c *EmbeddingClient) embedBatch(ctx context.Context, batch []string) ([][]float64, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay << (attempt - 1)
			log.Printf("[embed] transient failure, retry %d/%d in %s: %v", attempt, c.maxRetries, delay, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var vectors [][]float64
		err := c.limiterDo(ctx, func() error {
			var embedErr error
			vectors, embedErr = c.embedder.EmbedStrings(ctx, batch)
			return embedErr
		})
		if err == nil {
			if len(vectors) != len(batch) {
				return nil, errors.New("vector count mismatch with batch size")
			}
			return vectors, nil
		}

		if !isTransientError(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *EmbeddingClient) limiterDo(ctx context.Context, fn func() error) error {
	if c.limiter == nil {
		return fn()
	}
	return c.limiter.Do(ctx, LimiterKeyEmbedding, fn)
}

// isTransientError 判断是否值得重试
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"429", "rate limit", "too many requests",
		"502", "503", "504", "bad gateway", "service unavailable", "gateway timeout",
		"timeout", "temporar", "connection reset", "connection refused", "unexpected eof",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
