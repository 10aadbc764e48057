package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/contextos/context-os/internal/model"
	"github.com/contextos/context-os/internal/service/vector"
)

// ========== 知识库 CRUD ==========

func TestCreateKnowledgeBase(t *testing.T) {
	repo := newMockStore()
	service := NewService(repo, &vector.MockStore{}, nil, nil)

	kb, err := service.CreateKnowledgeBase(context.Background(), "user-1", &CreateKnowledgeBaseRequest{
		Name:        "研发知识库",
		Description: "部署与排障文档",
	})
	if err != nil {
		t.Fatalf("CreateKnowledgeBase: %v", err)
	}
	if kb.ID == "" || kb.UserID != "user-1" || kb.Name != "研发知识库" {
		t.Errorf("kb = %+v", kb)
	}
}

func TestKnowledgeBaseOwnership(t *testing.T) {
	repo := newMockStore()
	repo.kbs["kb-1"] = &model.KnowledgeBase{ID: "kb-1", UserID: "user-1", Name: "私有库"}
	service := NewService(repo, &vector.MockStore{}, nil, nil)

	if _, err := service.GetKnowledgeBase(context.Background(), "user-1", "kb-1"); err != nil {
		t.Fatalf("owner access: %v", err)
	}

	// 他人访问与不存在表现一致
	if _, err := service.GetKnowledgeBase(context.Background(), "user-2", "kb-1"); err == nil {
		t.Fatal("expected error for foreign knowledge base")
	}
	if _, err := service.GetKnowledgeBase(context.Background(), "user-1", "missing"); err == nil {
		t.Fatal("expected error for missing knowledge base")
	}
}

func TestDeleteKnowledgeBaseCascadesVectors(t *testing.T) {
	repo := newMockStore()
	repo.kbs["kb-1"] = &model.KnowledgeBase{ID: "kb-1", UserID: "user-1"}

	deletedKB := ""
	store := &vector.MockStore{
		DeleteKBFunc: func(ctx context.Context, userID, kbID string) error {
			deletedKB = kbID
			return nil
		},
	}
	service := NewService(repo, store, nil, nil)

	if err := service.DeleteKnowledgeBase(context.Background(), "user-1", "kb-1"); err != nil {
		t.Fatalf("DeleteKnowledgeBase: %v", err)
	}
	if len(repo.deletedKBs) != 1 || repo.deletedKBs[0] != "kb-1" {
		t.Errorf("deleted kbs = %v", repo.deletedKBs)
	}
	if deletedKB != "kb-1" {
		t.Errorf("vector cleanup for %q, want kb-1", deletedKB)
	}
}

// ========== 文档登记 ==========

func TestUploadDocumentQueues(t *testing.T) {
	repo := newMockStore()
	repo.kbs["kb-1"] = &model.KnowledgeBase{ID: "kb-1", UserID: "user-1"}
	service := NewService(repo, &vector.MockStore{}, nil, nil)

	doc, err := service.UploadDocument(context.Background(), "user-1", &UploadDocumentRequest{
		KnowledgeBaseID: "kb-1",
		FileName:        "guide.pdf",
		FilePath:        "files/guide.pdf",
		FileSize:        2048,
	})
	if err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}
	if doc.Status != model.DocumentStatusQueued {
		t.Errorf("status = %q, want queued", doc.Status)
	}
	if doc.SourceType != model.DocumentSourceFile {
		t.Errorf("source type = %q, want file", doc.SourceType)
	}
	if doc.Title != "guide.pdf" {
		t.Errorf("title = %q, must default to file name", doc.Title)
	}
	if _, ok := repo.docs[doc.ID]; !ok {
		t.Error("document not persisted")
	}
}

func TestUploadDocumentValidation(t *testing.T) {
	repo := newMockStore()
	repo.kbs["kb-1"] = &model.KnowledgeBase{ID: "kb-1", UserID: "user-1"}
	service := NewService(repo, &vector.MockStore{}, nil, nil)

	tests := []struct {
		name string
		req  *UploadDocumentRequest
	}{
		{"文件来源缺路径", &UploadDocumentRequest{KnowledgeBaseID: "kb-1", FileName: "a.txt"}},
		{"网页来源缺地址", &UploadDocumentRequest{KnowledgeBaseID: "kb-1", SourceType: model.DocumentSourceWebPage}},
		{"未知来源类型", &UploadDocumentRequest{KnowledgeBaseID: "kb-1", SourceType: "ftp", FilePath: "x"}},
		{"知识库不存在", &UploadDocumentRequest{KnowledgeBaseID: "missing", FilePath: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.UploadDocument(context.Background(), "user-1", tt.req); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestUploadWebPageDocument(t *testing.T) {
	repo := newMockStore()
	repo.kbs["kb-1"] = &model.KnowledgeBase{ID: "kb-1", UserID: "user-1"}
	service := NewService(repo, &vector.MockStore{}, nil, nil)

	doc, err := service.UploadDocument(context.Background(), "user-1", &UploadDocumentRequest{
		KnowledgeBaseID: "kb-1",
		SourceType:      model.DocumentSourceWebPage,
		SourceURL:       "https://example.com/post",
	})
	if err != nil {
		t.Fatalf("UploadDocument: %v", err)
	}
	if doc.Title != "https://example.com/post" {
		t.Errorf("title = %q, must default to source url", doc.Title)
	}
}

func TestDeleteKnowledgeBaseVectorFailureDoesNotBlock(t *testing.T) {
	repo := newMockStore()
	repo.kbs["kb-1"] = &model.KnowledgeBase{ID: "kb-1", UserID: "user-1"}

	store := &vector.MockStore{
		DeleteKBFunc: func(ctx context.Context, userID, kbID string) error {
			return errors.New("qdrant unavailable")
		},
	}
	service := NewService(repo, store, nil, nil)

	// 向量清理失败不阻塞关系数据删除
	if err := service.DeleteKnowledgeBase(context.Background(), "user-1", "kb-1"); err != nil {
		t.Fatalf("DeleteKnowledgeBase: %v", err)
	}
	if len(repo.deletedKBs) != 1 || repo.deletedKBs[0] != "kb-1" {
		t.Errorf("deleted kbs = %v", repo.deletedKBs)
	}
}

// ========== 文档删除与重处理 ==========

func TestDeleteDocumentCascadesVectors(t *testing.T) {
	doc := testDocument()
	repo := newMockStore(doc)

	deletedDoc := ""
	store := &vector.MockStore{
		DeleteDocFunc: func(ctx context.Context, userID, docID string) error {
			deletedDoc = docID
			return nil
		},
	}
	service := NewService(repo, store, nil, nil)

	if err := service.DeleteDocument(context.Background(), "user-1", doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if deletedDoc != doc.ID {
		t.Errorf("vector cleanup for %q, want %s", deletedDoc, doc.ID)
	}
}

func TestDeleteDocumentVectorFailureDoesNotBlock(t *testing.T) {
	doc := testDocument()
	repo := newMockStore(doc)

	store := &vector.MockStore{
		DeleteDocFunc: func(ctx context.Context, userID, docID string) error {
			return errors.New("qdrant unavailable")
		},
	}
	service := NewService(repo, store, nil, nil)

	if err := service.DeleteDocument(context.Background(), "user-1", doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if len(repo.deletedDocs) != 1 || repo.deletedDocs[0] != doc.ID {
		t.Errorf("deleted docs = %v, relational record must be gone", repo.deletedDocs)
	}
}

func TestReprocessRejectsProcessingDocument(t *testing.T) {
	doc := testDocument()
	doc.Status = model.DocumentStatusProcessing
	repo := newMockStore(doc)
	service := NewService(repo, &vector.MockStore{}, nil, nil)

	err := service.ReprocessDocument(context.Background(), "user-1", doc.ID)
	if err == nil || !strings.Contains(err.Error(), "already processing") {
		t.Fatalf("err = %v, want already-processing rejection", err)
	}
}

// ========== 处理结果回调 ==========

func TestApplyProcessingResultCompleted(t *testing.T) {
	doc := testDocument()
	repo := newMockStore(doc)
	service := NewService(repo, &vector.MockStore{}, nil, nil)

	err := service.ApplyProcessingResult(context.Background(), &ProcessingResultRequest{
		DocID:        doc.ID,
		Status:       model.DocumentStatusCompleted,
		KTypeSummary: "外部 worker 生成的摘要",
		ChunkCount:   9,
	})
	if err != nil {
		t.Fatalf("ApplyProcessingResult: %v", err)
	}
	if repo.completedID != doc.ID || repo.completedCount != 9 {
		t.Errorf("completed = %q count %d", repo.completedID, repo.completedCount)
	}
	// 缺省的 JSON 字段补成空对象
	if repo.completedMeta != "{}" || repo.completedDeep != "{}" {
		t.Errorf("meta = %q, deep = %q, want {}", repo.completedMeta, repo.completedDeep)
	}
}

func TestApplyProcessingResultValidation(t *testing.T) {
	doc := testDocument()
	repo := newMockStore(doc)
	service := NewService(repo, &vector.MockStore{}, nil, nil)

	tests := []struct {
		name string
		req  *ProcessingResultRequest
	}{
		{"completed 缺摘要", &ProcessingResultRequest{DocID: doc.ID, Status: model.DocumentStatusCompleted, ChunkCount: 3}},
		{"completed 缺分块数", &ProcessingResultRequest{DocID: doc.ID, Status: model.DocumentStatusCompleted, KTypeSummary: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ApplyProcessingResult(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidCallback) {
				t.Fatalf("err = %v, want ErrInvalidCallback", err)
			}
		})
	}

	if err := service.ApplyProcessingResult(context.Background(), &ProcessingResultRequest{
		DocID: "missing", Status: model.DocumentStatusFailed,
	}); err == nil {
		t.Fatal("expected error for unknown document")
	}
}

func TestApplyProcessingResultFailed(t *testing.T) {
	doc := testDocument()
	repo := newMockStore(doc)
	service := NewService(repo, &vector.MockStore{}, nil, nil)

	err := service.ApplyProcessingResult(context.Background(), &ProcessingResultRequest{
		DocID:        doc.ID,
		Status:       model.DocumentStatusFailed,
		ErrorMessage: "embedding provider unavailable",
	})
	if err != nil {
		t.Fatalf("ApplyProcessingResult: %v", err)
	}
	if len(repo.statusUpdates) != 1 || repo.statusUpdates[0] != model.DocumentStatusFailed {
		t.Errorf("status updates = %v", repo.statusUpdates)
	}
}

func TestApplyProcessingResultOtherStatusKeepsErrorMessage(t *testing.T) {
	doc := testDocument()
	repo := newMockStore(doc)
	service := NewService(repo, &vector.MockStore{}, nil, nil)

	err := service.ApplyProcessingResult(context.Background(), &ProcessingResultRequest{
		DocID:        doc.ID,
		Status:       model.DocumentStatusProcessing,
		ErrorMessage: "worker stalled at page 3",
	})
	if err != nil {
		t.Fatalf("ApplyProcessingResult: %v", err)
	}
	if len(repo.statusUpdates) != 1 || repo.statusUpdates[0] != model.DocumentStatusProcessing {
		t.Errorf("status updates = %v", repo.statusUpdates)
	}
	// 中间状态的错误信息也要原样落库
	if repo.statusErrors[0] != "worker stalled at page 3" {
		t.Errorf("error message = %q, want passthrough", repo.statusErrors[0])
	}
}

// ========== 点位浏览 ==========

func TestListDocumentPointsFilters(t *testing.T) {
	doc := testDocument()
	repo := newMockStore(doc)

	var gotFilter *vector.Filter
	store := &vector.MockStore{
		ScrollFunc: func(ctx context.Context, userID string, filter *vector.Filter, limit int, offset interface{}) ([]vector.ScrolledPoint, interface{}, error) {
			gotFilter = filter
			return []vector.ScrolledPoint{{ID: "p-1"}}, nil, nil
		},
	}
	service := NewService(repo, store, nil, nil)

	points, _, err := service.ListDocumentPoints(context.Background(), "user-1", &ListPointsRequest{
		DocumentID: doc.ID,
		PointType:  vector.PointTypeChild,
	})
	if err != nil {
		t.Fatalf("ListDocumentPoints: %v", err)
	}
	if len(points) != 1 {
		t.Errorf("points = %d", len(points))
	}
	if len(gotFilter.Must) != 2 {
		t.Fatalf("filter conditions = %d, want doc_id and type", len(gotFilter.Must))
	}
	if gotFilter.Must[1].Match.Value != vector.PointTypeChild {
		t.Errorf("type condition = %v", gotFilter.Must[1].Match.Value)
	}
}

func TestGetDocumentProgressFallsBackToStatus(t *testing.T) {
	doc := testDocument()
	doc.Status = model.DocumentStatusCompleted
	repo := newMockStore(doc)
	service := NewService(repo, &vector.MockStore{}, nil, nil)

	progress, err := service.GetDocumentProgress(context.Background(), "user-1", doc.ID)
	if err != nil {
		t.Fatalf("GetDocumentProgress: %v", err)
	}
	if progress.Stage != model.DocumentStatusCompleted || progress.Percent != 100 {
		t.Errorf("progress = %+v", progress)
	}
}
