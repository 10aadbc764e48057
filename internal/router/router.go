package router

import (
	"github.com/gin-gonic/gin"

	"github.com/contextos/context-os/internal/handler"
	"github.com/contextos/context-os/internal/middleware"
	"github.com/contextos/context-os/internal/service"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, svc *service.Services) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1
	v1 := r.Group("/api/v1")

	// Auth 认证，无需登录
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/users", h.Auth.CreateUser)
		authGroup.POST("/validate", h.Auth.ValidateToken)
	}

	// 处理结果回调，供拆分部署的处理 worker 调用
	callbacks := v1.Group("/callbacks")
	{
		callbacks.POST("/document", h.Callback.ApplyProcessingResult)
	}

	// 业务接口要求认证
	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(svc))
	{
		authed.GET("/auth/me", h.Auth.GetCurrentUser)

		// Knowledge 知识库
		kb := authed.Group("/knowledge-bases")
		{
			kb.POST("", h.Knowledge.CreateKnowledgeBase)
			kb.GET("", h.Knowledge.ListKnowledgeBases)
			kb.GET("/:id", h.Knowledge.GetKnowledgeBase)
			kb.PUT("/:id", h.Knowledge.UpdateKnowledgeBase)
			kb.DELETE("/:id", h.Knowledge.DeleteKnowledgeBase)
		}

		// Document 文档
		docs := authed.Group("/documents")
		{
			docs.POST("", h.Knowledge.UploadDocument)
			docs.GET("", h.Knowledge.ListDocuments)
			docs.GET("/:id", h.Knowledge.GetDocument)
			docs.DELETE("/:id", h.Knowledge.DeleteDocument)
			docs.POST("/:id/reprocess", h.Knowledge.ReprocessDocument)
			docs.GET("/:id/progress", h.Knowledge.GetDocumentProgress)
			docs.GET("/:id/chunks", h.Knowledge.GetChunks)
			docs.GET("/:id/points", h.Knowledge.ListDocumentPoints)
			docs.GET("/:id/points/count", h.Knowledge.CountDocumentPoints)
		}

		// File 文件
		files := authed.Group("/files")
		{
			files.POST("", h.File.UploadFile)
			files.GET("", h.File.ListFiles)
			files.GET("/:id/download", h.File.DownloadFile)
			files.GET("/:id/url", h.File.GetFileURL)
			files.DELETE("/:id", h.File.DeleteFile)
		}
	}

	return r
}
