package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/contextos/context-os/internal/config"
)

// QdrantClient Qdrant REST API 客户端
type QdrantClient struct {
	baseURL         string
	apiKey          string
	httpClient      *http.Client
	vectorDim       int
	upsertBatchSize int
	hnswM           int
	hnswEfConstruct int
}

var _ Store = (*QdrantClient)(nil)

// NewQdrantClient 创建 Qdrant 客户端
func NewQdrantClient(cfg *config.QdrantConfig) *QdrantClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &QdrantClient{
		baseURL:         cfg.URL,
		apiKey:          cfg.APIKey,
		httpClient:      &http.Client{Timeout: timeout},
		vectorDim:       cfg.VectorDim,
		upsertBatchSize: cfg.UpsertBatchSize,
		hnswM:           cfg.HNSWM,
		hnswEfConstruct: cfg.HNSWEfConstruct,
	}
}

// EnsureCollection 确保用户集合存在
// 集合不存在时创建，并为 doc_id / kb_id / type 建立 payload 索引。
func (c *QdrantClient) EnsureCollection(ctx context.Context, userID string) error {
	collection := CollectionName(userID)

	status, _, err := c.do(ctx, http.MethodGet, "/collections/"+collection, nil)
	if err != nil {
		return &StoreError{Op: "ensure", Collection: collection, Message: err.Error()}
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return &StoreError{Op: "ensure", Collection: collection, Status: status, Message: "unexpected status checking collection"}
	}

	createBody := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     c.vectorDim,
			"distance": "Cosine",
		},
		"hnsw_config": map[string]interface{}{
			"m":            c.hnswM,
			"ef_construct": c.hnswEfConstruct,
		},
	}
	status, respBody, err := c.do(ctx, http.MethodPut, "/collections/"+collection, createBody)
	if err != nil {
		return &StoreError{Op: "create", Collection: collection, Message: err.Error()}
	}
	// 并发调用时另一个请求可能已建好集合
	if status != http.StatusOK && status != http.StatusConflict {
		return &StoreError{Op: "create", Collection: collection, Status: status, Message: string(respBody)}
	}
	log.Printf("[vector] created collection %s (dim=%d)", collection, c.vectorDim)

	for _, field := range []string{"doc_id", "kb_id", "type"} {
		indexBody := map[string]interface{}{
			"field_name":   field,
			"field_schema": "keyword",
		}
		status, respBody, err := c.do(ctx, http.MethodPut, "/collections/"+collection+"/index", indexBody)
		if err != nil {
			return &StoreError{Op: "index", Collection: collection, Message: err.Error()}
		}
		if status != http.StatusOK && status != http.StatusConflict {
			return &StoreError{Op: "index", Collection: collection, Status: status, Message: string(respBody)}
		}
	}
	return nil
}

// Upsert 分批写入点位
// 点位 ID 由调用方确定，重复写入同一 ID 为覆盖语义。
func (c *QdrantClient) Upsert(ctx context.Context, userID string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	collection := CollectionName(userID)

	batchSize := c.upsertBatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}
		body := map[string]interface{}{"points": points[start:end]}
		status, respBody, err := c.do(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", body)
		if err != nil {
			return &StoreError{Op: "upsert", Collection: collection, Message: err.Error()}
		}
		if status != http.StatusOK {
			return &StoreError{Op: "upsert", Collection: collection, Status: status, Message: string(respBody)}
		}
		log.Printf("[vector] upserted %d/%d points into %s", end, len(points), collection)
	}
	return nil
}

// DeleteByDocument 删除文档的全部点位
// 集合不存在时视为无事可做。
func (c *QdrantClient) DeleteByDocument(ctx context.Context, userID, docID string) error {
	return c.deleteByFilter(ctx, userID, DocFilter(docID))
}

// DeleteByKnowledgeBase 删除知识库的全部点位
func (c *QdrantClient) DeleteByKnowledgeBase(ctx context.Context, userID, kbID string) error {
	return c.deleteByFilter(ctx, userID, KBFilter(kbID))
}

func (c *QdrantClient) deleteByFilter(ctx context.Context, userID string, filter *Filter) error {
	collection := CollectionName(userID)
	body := map[string]interface{}{"filter": filter}
	status, respBody, err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/delete?wait=true", body)
	if err != nil {
		return &StoreError{Op: "delete", Collection: collection, Message: err.Error()}
	}
	if status == http.StatusNotFound {
		return nil
	}
	if status != http.StatusOK {
		return &StoreError{Op: "delete", Collection: collection, Status: status, Message: string(respBody)}
	}
	return nil
}

// Scroll 按过滤条件翻页读取点位，返回下一页游标
func (c *QdrantClient) Scroll(ctx context.Context, userID string, filter *Filter, limit int, offset interface{}) ([]ScrolledPoint, interface{}, error) {
	collection := CollectionName(userID)
	body := map[string]interface{}{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if filter != nil {
		body["filter"] = filter
	}
	if offset != nil {
		body["offset"] = offset
	}

	status, respBody, err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/scroll", body)
	if err != nil {
		return nil, nil, &StoreError{Op: "scroll", Collection: collection, Message: err.Error()}
	}
	if status == http.StatusNotFound {
		return nil, nil, nil
	}
	if status != http.StatusOK {
		return nil, nil, &StoreError{Op: "scroll", Collection: collection, Status: status, Message: string(respBody)}
	}

	var parsed struct {
		Result struct {
			Points         []ScrolledPoint `json:"points"`
			NextPageOffset interface{}     `json:"next_page_offset"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, nil, &StoreError{Op: "scroll", Collection: collection, Message: "decode response: " + err.Error()}
	}
	return parsed.Result.Points, parsed.Result.NextPageOffset, nil
}

// Count 按过滤条件统计点位数，集合不存在时返回 0
func (c *QdrantClient) Count(ctx context.Context, userID string, filter *Filter) (int64, error) {
	collection := CollectionName(userID)
	body := map[string]interface{}{"exact": true}
	if filter != nil {
		body["filter"] = filter
	}

	status, respBody, err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/count", body)
	if err != nil {
		return 0, &StoreError{Op: "count", Collection: collection, Message: err.Error()}
	}
	if status == http.StatusNotFound {
		return 0, nil
	}
	if status != http.StatusOK {
		return 0, &StoreError{Op: "count", Collection: collection, Status: status, Message: string(respBody)}
	}

	var parsed struct {
		Result struct {
			Count int64 `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return 0, &StoreError{Op: "count", Collection: collection, Message: "decode response: " + err.Error()}
	}
	return parsed.Result.Count, nil
}

// do 发送请求并返回状态码与响应体
func (c *QdrantClient) do(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}
