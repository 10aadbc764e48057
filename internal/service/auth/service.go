// Package auth 提供基于 JWT 的无状态认证。
// 向量集合按用户隔离，user_id 是贯穿整个管线的隔离键。
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/contextos/context-os/internal/model"
	"github.com/contextos/context-os/internal/repository"
)

// Service 认证服务
type Service struct {
	secret      []byte
	expireHours int
	repo        *repository.AuthRepository
}

// NewService 创建认证服务
func NewService(secret string, expireHours int, repo *repository.AuthRepository) *Service {
	if expireHours <= 0 {
		expireHours = 72
	}
	return &Service{
		secret:      []byte(secret),
		expireHours: expireHours,
		repo:        repo,
	}
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
}

// CreateUserResponse 创建用户响应
type CreateUserResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// CreateUser 创建用户并签发访问令牌
func (s *Service) CreateUser(ctx context.Context, req *CreateUserRequest) (*CreateUserResponse, error) {
	if existing, _ := s.repo.GetUserByEmail(req.Email); existing != nil {
		return nil, errors.New("user with this email already exists")
	}

	user := &model.User{
		ID:       uuid.New().String(),
		Username: req.Username,
		Email:    req.Email,
		IsActive: true,
	}
	if err := s.repo.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &CreateUserResponse{User: user, Token: token}, nil
}

// IssueToken 为用户签发访问令牌
func (s *Service) IssueToken(user *model.User) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"iat":     now.Unix(),
		"exp":     now.Add(time.Duration(s.expireHours) * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken 验证令牌并返回对应用户
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*model.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, errors.New("invalid user id in token")
	}

	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return nil, errors.New("user not found")
	}
	if !user.IsActive {
		return nil, errors.New("account is disabled")
	}
	return user, nil
}

// GetUser 按 ID 获取用户
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.repo.GetUserByID(id)
}
