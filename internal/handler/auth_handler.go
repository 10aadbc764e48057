package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/contextos/context-os/internal/middleware"
	"github.com/contextos/context-os/internal/service"
	"github.com/contextos/context-os/internal/service/auth"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.Services
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.Services) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// CreateUser 创建用户并签发访问令牌
// POST /api/v1/auth/users
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req auth.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	resp, err := h.svc.Auth.CreateUser(c.Request.Context(), &req)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	Created(c, resp)
}

// ValidateToken 验证令牌
// POST /api/v1/auth/validate
func (h *AuthHandler) ValidateToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	user, err := h.svc.Auth.ValidateToken(c.Request.Context(), req.Token)
	if err != nil {
		Unauthorized(c, err.Error())
		return
	}
	Success(c, gin.H{"valid": true, "user": user})
}

// GetCurrentUser 获取当前用户信息
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		Unauthorized(c, "user not authenticated")
		return
	}
	Success(c, user)
}
