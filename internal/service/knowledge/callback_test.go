package knowledge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ========== 回调通知 ==========

func TestNotifyPostsPayload(t *testing.T) {
	var got CallbackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if ua := r.Header.Get("User-Agent"); ua != "Context-OS/1.0" {
			t.Errorf("User-Agent = %q", ua)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewCallbackClient(srv.URL, 5)
	err := client.Notify(context.Background(), &CallbackPayload{
		DocID:         "doc-1",
		Status:        "completed",
		KTypeSummary:  "摘要内容",
		KTypeMetadata: `{"dominant_type":"procedural"}`,
		ChunkCount:    12,
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if got.DocID != "doc-1" || got.Status != "completed" {
		t.Errorf("payload = %+v", got)
	}
	if got.ChunkCount != 12 {
		t.Errorf("chunkCount = %d, want 12", got.ChunkCount)
	}
	if got.KTypeSummary != "摘要内容" {
		t.Errorf("ktypeSummary = %q", got.KTypeSummary)
	}
}

func TestNotifyFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "callback receiver down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewCallbackClient(srv.URL, 5)
	err := client.Notify(context.Background(), &CallbackPayload{DocID: "doc-1", Status: "failed"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestNotifyWithoutURLIsNoop(t *testing.T) {
	client := NewCallbackClient("", 5)
	if err := client.Notify(context.Background(), &CallbackPayload{DocID: "doc-1"}); err != nil {
		t.Fatalf("Notify without url must be a no-op, got %v", err)
	}
}
