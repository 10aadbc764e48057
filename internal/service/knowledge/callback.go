package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CallbackPayload 处理完成回调的消息体
// completed 时必须带 KTypeSummary 和 ChunkCount。
type CallbackPayload struct {
	DocID         string `json:"docId"`
	Status        string `json:"status"`
	KTypeSummary  string `json:"ktypeSummary,omitempty"`
	KTypeMetadata string `json:"ktypeMetadata,omitempty"`
	DeepSummary   string `json:"deepSummary,omitempty"`
	ChunkCount    int    `json:"chunkCount,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
}

// Notifier 回调通知接口
type Notifier interface {
	Notify(ctx context.Context, payload *CallbackPayload) error
}

// CallbackClient HTTP 回调客户端
// 未配置回调地址时所有通知都是空操作。
type CallbackClient struct {
	url        string
	httpClient *http.Client
}

var _ Notifier = (*CallbackClient)(nil)

// NewCallbackClient 创建回调客户端
func NewCallbackClient(url string, timeoutSeconds int) *CallbackClient {
	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeoutSeconds <= 0 {
		timeout = 10 * time.Second
	}
	return &CallbackClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Notify 发送回调
func (c *CallbackClient) Notify(ctx context.Context, payload *CallbackPayload) error {
	if c.url == "" {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Context-OS/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("callback request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("callback returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
