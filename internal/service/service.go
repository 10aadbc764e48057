package service

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contextos/context-os/internal/config"
	"github.com/contextos/context-os/internal/limiter"
	"github.com/contextos/context-os/internal/repository"
	"github.com/contextos/context-os/internal/service/auth"
	"github.com/contextos/context-os/internal/service/file"
	"github.com/contextos/context-os/internal/service/knowledge"
	"github.com/contextos/context-os/internal/service/vector"
)

// Services 服务集合
type Services struct {
	// 业务服务
	Knowledge *knowledge.Service
	File      *file.Service
	Auth      *auth.Service

	// 处理管线
	Processor *knowledge.Processor

	// 基础设施
	VectorStore vector.Store
	Limiter     *limiter.Pool
	Config      *config.Config
}

// NewServices 创建所有服务
// 参考 eino-examples，使用简单的 newXxx() 函数直接初始化 eino 组件。
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	// 外部 AI 接口的并发限流，处理管线的所有调用都经过这里
	pool := limiter.NewPool(map[string]int{
		knowledge.LimiterKeyEmbedding: cfg.Pipeline.EmbeddingLimit,
		knowledge.LimiterKeyKType:     cfg.Pipeline.ClassifyLimit,
	})

	qdrant := vector.NewQdrantClient(&cfg.Qdrant)
	progress := knowledge.NewProgressStore(redisClient)
	fileSvc := newFileService(repo, cfg)

	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		log.Printf("Warning: failed to create chat model: %v", err)
	}
	embedder := newEmbedder(ctx, cfg)

	// 处理器依赖 LLM 和 Embedder，缺一个就禁用异步处理
	var processor *knowledge.Processor
	if chatModel != nil && embedder != nil {
		classifier := knowledge.NewClassifier(chatModel, chatModelName(cfg), cfg.Pipeline.MaxContextLength, pool)
		embedClient := knowledge.NewEmbeddingClient(embedder, cfg.AI.Embedding.BatchSize, pool)

		var files knowledge.FileOpener
		if fileSvc != nil {
			files = fileSvc.Storage()
		}

		processor, err = knowledge.NewProcessor(knowledge.ProcessorOptions{
			Repo:       repo.Knowledge,
			Store:      qdrant,
			Classifier: classifier,
			Embedder:   embedClient,
			Parser:     knowledge.NewParser(),
			Files:      files,
			Notifier:   knowledge.NewCallbackClient(cfg.Callback.URL, cfg.Callback.Timeout),
			Progress:   progress,
			Chunker: knowledge.ChunkerConfig{
				ParentChunkSize:   cfg.Pipeline.ParentChunkSize,
				ChildChunkSize:    cfg.Pipeline.ChildChunkSize,
				ChildChunkOverlap: cfg.Pipeline.ChildChunkOverlap,
			},
			Workers: cfg.Pipeline.Workers,
			Timeout: 30 * time.Minute,
		})
		if err != nil {
			return nil, err
		}
	} else {
		log.Printf("Warning: document processing disabled, chat model or embedder unavailable")
	}

	return &Services{
		Knowledge: knowledge.NewService(repo.Knowledge, qdrant, processor, progress),
		File:      fileSvc,
		Auth:      auth.NewService(cfg.JWT.Secret, cfg.JWT.ExpireHours, repo.Auth),

		Processor: processor,

		VectorStore: qdrant,
		Limiter:     pool,
		Config:      cfg,
	}, nil
}

// Close 释放处理器的 worker 池
func (s *Services) Close() {
	if s.Processor != nil {
		s.Processor.Close()
	}
}
