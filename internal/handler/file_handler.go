package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/contextos/context-os/internal/middleware"
	"github.com/contextos/context-os/internal/service"
	"github.com/contextos/context-os/internal/service/file"
)

// FileHandler 文件处理器
type FileHandler struct {
	svc *service.Services
}

// NewFileHandler 创建文件处理器
func NewFileHandler(svc *service.Services) *FileHandler {
	return &FileHandler{svc: svc}
}

// UploadFile 上传文件
// POST /api/v1/files (multipart/form-data)
func (h *FileHandler) UploadFile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}
	if h.svc.File == nil {
		InternalServerError(c, "file storage not configured")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		Error(c, err)
		return
	}
	defer src.Close()

	stored, err := h.svc.File.SaveFile(c.Request.Context(), &file.SaveFileRequest{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Reader:      src,
		UserID:      userID,
	})
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, stored)
}

// ListFiles 列出当前用户的文件
// GET /api/v1/files
func (h *FileHandler) ListFiles(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}
	if h.svc.File == nil {
		InternalServerError(c, "file storage not configured")
		return
	}

	files, err := h.svc.File.ListByUserID(c.Request.Context(), userID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, files)
}

// DownloadFile 下载文件内容
// GET /api/v1/files/:id/download
func (h *FileHandler) DownloadFile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}
	if h.svc.File == nil {
		InternalServerError(c, "file storage not configured")
		return
	}

	stored, reader, err := h.svc.File.GetFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		NotFound(c, err.Error())
		return
	}
	defer reader.Close()

	if stored.UserID != userID {
		NotFound(c, "file not found")
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+stored.FileName+"\"")
	c.Header("Content-Type", stored.ContentType)
	_, _ = io.Copy(c.Writer, reader)
}

// GetFileURL 获取文件访问URL
// GET /api/v1/files/:id/url
func (h *FileHandler) GetFileURL(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}
	if h.svc.File == nil {
		InternalServerError(c, "file storage not configured")
		return
	}

	stored, err := h.svc.File.GetStoredFile(c.Request.Context(), c.Param("id"))
	if err != nil || stored.UserID != userID {
		NotFound(c, "file not found")
		return
	}

	url, err := h.svc.File.GetFileURL(stored.ID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"url": url})
}

// DeleteFile 删除文件
// DELETE /api/v1/files/:id
func (h *FileHandler) DeleteFile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}
	if h.svc.File == nil {
		InternalServerError(c, "file storage not configured")
		return
	}

	stored, err := h.svc.File.GetStoredFile(c.Request.Context(), c.Param("id"))
	if err != nil || stored.UserID != userID {
		NotFound(c, "file not found")
		return
	}

	if err := h.svc.File.DeleteFile(c.Request.Context(), stored.ID); err != nil {
		Error(c, err)
		return
	}
	NoContent(c)
}
