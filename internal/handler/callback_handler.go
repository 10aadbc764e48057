package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/contextos/context-os/internal/service"
	"github.com/contextos/context-os/internal/service/knowledge"
)

// CallbackHandler 处理结果回调处理器
// 供拆分部署的处理 worker 上报文档处理结果。
type CallbackHandler struct {
	svc *service.Services
}

// NewCallbackHandler 创建回调处理器
func NewCallbackHandler(svc *service.Services) *CallbackHandler {
	return &CallbackHandler{svc: svc}
}

// ApplyProcessingResult 应用处理结果回调
// POST /api/v1/callbacks/document
func (h *CallbackHandler) ApplyProcessingResult(c *gin.Context) {
	var req knowledge.ProcessingResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if err := h.svc.Knowledge.ApplyProcessingResult(c.Request.Context(), &req); err != nil {
		if errors.Is(err, knowledge.ErrInvalidCallback) {
			BadRequest(c, err.Error())
			return
		}
		if isNotFound(err) {
			NotFound(c, err.Error())
			return
		}
		Error(c, err)
		return
	}
	Success(c, gin.H{"docId": req.DocID, "status": req.Status})
}
