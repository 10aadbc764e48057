package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/contextos/context-os/internal/limiter"
)

// mockEmbedder 用于测试的 mock Embedder
type mockEmbedder struct {
	embedFunc func(ctx context.Context, texts []string) ([][]float64, error)
}

func (m *mockEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if m.embedFunc != nil {
		return m.embedFunc(ctx, texts)
	}
	vectors := make([][]float64, len(texts))
	for i := range vectors {
		vectors[i] = []float64{float64(i)}
	}
	return vectors, nil
}

func newFastClient(embedder embedding.Embedder, batchSize int, pool *limiter.Pool) *EmbeddingClient {
	client := NewEmbeddingClient(embedder, batchSize, pool)
	client.retryDelay = time.Millisecond
	return client
}

// ========== 分批与顺序 ==========

func TestEmbedAllBatchesAndPreservesOrder(t *testing.T) {
	var mu sync.Mutex
	var batchSizes []int

	embedder := &mockEmbedder{
		embedFunc: func(ctx context.Context, texts []string) ([][]float64, error) {
			mu.Lock()
			batchSizes = append(batchSizes, len(texts))
			mu.Unlock()
			vectors := make([][]float64, len(texts))
			for i, text := range texts {
				// 用文本内容编码向量，验证输出顺序与输入一致
				vectors[i] = []float64{float64(len(text))}
			}
			return vectors, nil
		},
	}

	texts := make([]string, 7)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0) // 长度递增的文本
	}

	client := newFastClient(embedder, 3, nil)
	vectors, err := client.EmbedAll(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}

	if len(vectors) != 7 {
		t.Fatalf("vectors = %d, want 7", len(vectors))
	}
	for i, v := range vectors {
		if v[0] != float64(i+1) {
			t.Errorf("vector %d = %v, order not preserved", i, v)
		}
	}
	if len(batchSizes) != 3 || batchSizes[0] != 3 || batchSizes[1] != 3 || batchSizes[2] != 1 {
		t.Errorf("batch sizes = %v, want [3 3 1]", batchSizes)
	}
}

func TestEmbedAllEmptyInput(t *testing.T) {
	client := newFastClient(&mockEmbedder{}, 10, nil)
	vectors, err := client.EmbedAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	if vectors != nil {
		t.Errorf("vectors = %v, want nil", vectors)
	}
}

// ========== 重试策略 ==========

func TestEmbedRetriesTransientFailure(t *testing.T) {
	attempts := 0
	embedder := &mockEmbedder{
		embedFunc: func(ctx context.Context, texts []string) ([][]float64, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("429 too many requests")
			}
			return [][]float64{{1}}, nil
		},
	}

	client := newFastClient(embedder, 10, nil)
	vectors, err := client.EmbedAll(context.Background(), []string{"text"})
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(vectors) != 1 {
		t.Errorf("vectors = %d, want 1", len(vectors))
	}
}

func TestEmbedNonTransientFailsImmediately(t *testing.T) {
	attempts := 0
	embedder := &mockEmbedder{
		embedFunc: func(ctx context.Context, texts []string) ([][]float64, error) {
			attempts++
			return nil, errors.New("invalid api key")
		},
	}

	client := newFastClient(embedder, 10, nil)
	_, err := client.EmbedAll(context.Background(), []string{"text"})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, non-transient error must not retry", attempts)
	}

	var embedErr *EmbeddingError
	if !errors.As(err, &embedErr) {
		t.Fatalf("err = %T, want *EmbeddingError", err)
	}
	if embedErr.BatchStart != 0 || embedErr.BatchEnd != 1 {
		t.Errorf("batch range = [%d,%d), want [0,1)", embedErr.BatchStart, embedErr.BatchEnd)
	}
}

func TestEmbedTransientExhaustsRetries(t *testing.T) {
	attempts := 0
	embedder := &mockEmbedder{
		embedFunc: func(ctx context.Context, texts []string) ([][]float64, error) {
			attempts++
			return nil, errors.New("connection reset by peer")
		},
	}

	client := newFastClient(embedder, 10, nil)
	_, err := client.EmbedAll(context.Background(), []string{"text"})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	// 首次 + 3 次重试
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}
}

func TestEmbedCountMismatchFails(t *testing.T) {
	embedder := &mockEmbedder{
		embedFunc: func(ctx context.Context, texts []string) ([][]float64, error) {
			return [][]float64{{1}}, nil // 少返回了一个
		},
	}

	client := newFastClient(embedder, 10, nil)
	_, err := client.EmbedAll(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected mismatch error")
	}
}

// ========== 限流 ==========

func TestEmbedGoesThroughLimiter(t *testing.T) {
	pool := limiter.NewPool(map[string]int{LimiterKeyEmbedding: 1})

	inFlight := 0
	maxInFlight := 0
	var mu sync.Mutex
	embedder := &mockEmbedder{
		embedFunc: func(ctx context.Context, texts []string) ([][]float64, error) {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
			return make([][]float64, len(texts)), nil
		},
	}

	client := newFastClient(embedder, 10, pool)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.EmbedAll(context.Background(), []string{"x"})
		}()
	}
	wg.Wait()

	if maxInFlight != 1 {
		t.Errorf("max in flight = %d, limiter must serialize calls", maxInFlight)
	}
}
