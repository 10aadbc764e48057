package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/contextos/context-os/internal/middleware"
	"github.com/contextos/context-os/internal/service"
	"github.com/contextos/context-os/internal/service/knowledge"
)

// KnowledgeHandler 知识库与文档处理器
type KnowledgeHandler struct {
	svc *service.Services
}

// NewKnowledgeHandler 创建知识库处理器
func NewKnowledgeHandler(svc *service.Services) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

// CreateKnowledgeBase 创建知识库
// POST /api/v1/knowledge-bases
func (h *KnowledgeHandler) CreateKnowledgeBase(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}

	var req knowledge.CreateKnowledgeBaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	kb, err := h.svc.Knowledge.CreateKnowledgeBase(c.Request.Context(), userID, &req)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, kb)
}

// ListKnowledgeBases 列出当前用户的知识库
// GET /api/v1/knowledge-bases
func (h *KnowledgeHandler) ListKnowledgeBases(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}

	page, size := getPagination(c)
	kbs, err := h.svc.Knowledge.ListKnowledgeBases(c.Request.Context(), userID, &knowledge.ListKnowledgeBasesRequest{
		Page: page,
		Size: size,
	})
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, kbs)
}

// GetKnowledgeBase 获取知识库
// GET /api/v1/knowledge-bases/:id
func (h *KnowledgeHandler) GetKnowledgeBase(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}

	kb, err := h.svc.Knowledge.GetKnowledgeBase(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		NotFound(c, err.Error())
		return
	}
	Success(c, kb)
}

// UpdateKnowledgeBase 更新知识库
// PUT /api/v1/knowledge-bases/:id
func (h *KnowledgeHandler) UpdateKnowledgeBase(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}

	var req knowledge.CreateKnowledgeBaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	kb, err := h.svc.Knowledge.UpdateKnowledgeBase(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		if isNotFound(err) {
			NotFound(c, err.Error())
			return
		}
		Error(c, err)
		return
	}
	Success(c, kb)
}

// DeleteKnowledgeBase 删除知识库及其文档和向量
// DELETE /api/v1/knowledge-bases/:id
func (h *KnowledgeHandler) DeleteKnowledgeBase(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}

	if err := h.svc.Knowledge.DeleteKnowledgeBase(c.Request.Context(), userID, c.Param("id")); err != nil {
		if isNotFound(err) {
			NotFound(c, err.Error())
			return
		}
		Error(c, err)
		return
	}
	NoContent(c)
}

// UploadDocument 登记文档并提交异步处理
// POST /api/v1/documents
func (h *KnowledgeHandler) UploadDocument(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}

	var req knowledge.UploadDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	doc, err := h.svc.Knowledge.UploadDocument(c.Request.Context(), userID, &req)
	if err != nil {
		if isNotFound(err) {
			NotFound(c, err.Error())
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Created(c, doc)
}

// ListDocuments 列出知识库下的文档
// GET /api/v1/documents?knowledge_base_id=xxx
func (h *KnowledgeHandler) ListDocuments(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}

	kbID := c.Query("knowledge_base_id")
	if kbID == "" {
		BadRequest(c, "knowledge_base_id is required")
		return
	}

	page, size := getPagination(c)
	docs, err := h.svc.Knowledge.ListDocuments(c.Request.Context(), userID, &knowledge.ListDocumentsRequest{
		KnowledgeBaseID: kbID,
		Page:            page,
		Size:            size,
	})
	if err != nil {
		if isNotFound(err) {
			NotFound(c, err.Error())
			return
		}
		Error(c, err)
		return
	}
	Success(c, docs)
}

// GetDocument 获取文档
// GET /api/v1/documents/:id
func (h *KnowledgeHandler) GetDocument(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}

	doc, err := h.svc.Knowledge.GetDocument(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		NotFound(c, err.Error())
		return
	}
	Success(c, doc)
}

// DeleteDocument 删除文档及其分块和向量
// DELETE /api/v1/documents/:id
func (h *KnowledgeHandler) DeleteDocument(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}

	if err := h.svc.Knowledge.DeleteDocument(c.Request.Context(), userID, c.Param("id")); err != nil {
		if isNotFound(err) {
			NotFound(c, err.Error())
			return
		}
		Error(c, err)
		return
	}
	NoContent(c)
}

// ReprocessDocument 重新执行文档处理
// POST /api/v1/documents/:id/reprocess
func (h *KnowledgeHandler) ReprocessDocument(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}

	if err := h.svc.Knowledge.ReprocessDocument(c.Request.Context(), userID, c.Param("id")); err != nil {
		if isNotFound(err) {
			NotFound(c, err.Error())
			return
		}
		BadRequest(c, err.Error())
		return
	}
	Success(c, gin.H{"status": "queued"})
}

// GetDocumentProgress 查询文档处理进度
// GET /api/v1/documents/:id/progress
func (h *KnowledgeHandler) GetDocumentProgress(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}

	progress, err := h.svc.Knowledge.GetDocumentProgress(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		NotFound(c, err.Error())
		return
	}
	Success(c, progress)
}

// GetChunks 获取文档的全部分块记录
// GET /api/v1/documents/:id/chunks
func (h *KnowledgeHandler) GetChunks(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}

	chunks, err := h.svc.Knowledge.GetChunks(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		NotFound(c, err.Error())
		return
	}
	Success(c, chunks)
}

// ListDocumentPoints 翻页浏览文档的向量点位
// GET /api/v1/documents/:id/points?point_type=child&limit=20&offset=xxx
func (h *KnowledgeHandler) ListDocumentPoints(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	req := &knowledge.ListPointsRequest{
		DocumentID: c.Param("id"),
		PointType:  c.Query("point_type"),
		Limit:      limit,
	}
	if offset := c.Query("offset"); offset != "" {
		req.Offset = offset
	}

	points, nextOffset, err := h.svc.Knowledge.ListDocumentPoints(c.Request.Context(), userID, req)
	if err != nil {
		if isNotFound(err) {
			NotFound(c, err.Error())
			return
		}
		Error(c, err)
		return
	}
	Success(c, gin.H{
		"points":      points,
		"next_offset": nextOffset,
	})
}

// CountDocumentPoints 统计文档的向量点位数
// GET /api/v1/documents/:id/points/count
func (h *KnowledgeHandler) CountDocumentPoints(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}

	count, err := h.svc.Knowledge.CountDocumentPoints(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if isNotFound(err) {
			NotFound(c, err.Error())
			return
		}
		Error(c, err)
		return
	}
	Success(c, gin.H{"count": count})
}

// isNotFound 判断是否为资源不存在错误
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}
