package service

import (
	"context"
	"fmt"
	"log"
	"time"

	openaiembed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/embedding"
	ecomodel "github.com/cloudwego/eino/components/model"

	"github.com/contextos/context-os/internal/config"
	"github.com/contextos/context-os/internal/repository"
	"github.com/contextos/context-os/internal/service/file"
)

// newChatModel 创建 ChatModel
// K-Type 分类的采样参数由调用方按档位传入，这里不设固定温度。
func newChatModel(ctx context.Context, cfg *config.Config) (ecomodel.ChatModel, error) {
	aiCfg := cfg.AI

	var apiKey, baseURL, modelName string

	switch aiCfg.Provider {
	case "openai":
		apiKey = aiCfg.OpenAI.APIKey
		baseURL = aiCfg.OpenAI.BaseURL
		modelName = aiCfg.OpenAI.Model
	case "deepseek":
		apiKey = aiCfg.DeepSeek.APIKey
		baseURL = aiCfg.DeepSeek.BaseURL
		modelName = aiCfg.DeepSeek.Model
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   modelName,
	})
	if err != nil {
		return nil, err
	}
	return chatModel, nil
}

// chatModelName 返回当前 provider 的模型名
func chatModelName(cfg *config.Config) string {
	switch cfg.AI.Provider {
	case "deepseek":
		return cfg.AI.DeepSeek.Model
	default:
		return cfg.AI.OpenAI.Model
	}
}

// newEmbedder 创建 Embedding 器（OpenAI 兼容接口）
func newEmbedder(ctx context.Context, cfg *config.Config) embedding.Embedder {
	embCfg := cfg.AI.Embedding

	if embCfg.APIKey == "" {
		log.Printf("Warning: embedding api_key is empty")
		return nil
	}

	model := embCfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	embConfig := &openaiembed.EmbeddingConfig{
		APIKey:  embCfg.APIKey,
		BaseURL: embCfg.BaseURL,
		Model:   model,
	}
	if embCfg.Timeout > 0 {
		embConfig.Timeout = time.Duration(embCfg.Timeout) * time.Second
	}
	if embCfg.Dimensions > 0 {
		embConfig.Dimensions = &embCfg.Dimensions
	}

	embedder, err := openaiembed.NewEmbedder(ctx, embConfig)
	if err != nil {
		log.Printf("Warning: failed to create embedder: %v", err)
		return nil
	}
	return embedder
}

// newFileService 创建文件存储服务
func newFileService(repo *repository.Repositories, cfg *config.Config) *file.Service {
	fileSvc, err := file.NewServiceFromConfig(repo, &cfg.File)
	if err != nil {
		log.Printf("Warning: failed to create file service: %v", err)
		return nil
	}
	log.Printf("File service initialized with type: %s", cfg.File.StorageType)
	return fileSvc
}
