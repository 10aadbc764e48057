package handler

import (
	"github.com/contextos/context-os/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Knowledge *KnowledgeHandler
	File      *FileHandler
	Auth      *AuthHandler
	Callback  *CallbackHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Knowledge: NewKnowledgeHandler(svc),
		File:      NewFileHandler(svc),
		Auth:      NewAuthHandler(svc),
		Callback:  NewCallbackHandler(svc),
	}
}
