package file

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/contextos/context-os/internal/config"
	"github.com/contextos/context-os/internal/model"
	"github.com/contextos/context-os/internal/repository"
)

// Service 文件服务
type Service struct {
	repo        *repository.Repositories
	storage     Storage
	storageType StorageType
}

// NewService 创建文件服务
func NewService(repo *repository.Repositories, storage Storage, storageType StorageType) *Service {
	return &Service{
		repo:        repo,
		storage:     storage,
		storageType: storageType,
	}
}

// NewServiceFromConfig 从配置创建文件服务
func NewServiceFromConfig(repo *repository.Repositories, cfg *config.FileConfig) (*Service, error) {
	var storage Storage
	var err error
	storageType := StorageType(cfg.StorageType)

	switch storageType {
	case StorageTypeLocal, "":
		storageType = StorageTypeLocal
		basePath := cfg.LocalPath
		if basePath == "" {
			basePath = "./data/files"
		}
		storage, err = NewLocalStorage(basePath, "/files")

	case StorageTypeMinIO:
		if cfg.Minio.Endpoint == "" || cfg.Minio.AccessKey == "" || cfg.Minio.SecretKey == "" || cfg.Minio.Bucket == "" {
			return nil, fmt.Errorf("missing required MinIO config")
		}
		storage, err = NewMinIOStorage(&MinIOConfig{
			Endpoint:   cfg.Minio.Endpoint,
			AccessKey:  cfg.Minio.AccessKey,
			SecretKey:  cfg.Minio.SecretKey,
			BucketName: cfg.Minio.Bucket,
			UseSSL:     cfg.Minio.UseSSL,
			URLPrefix:  fmt.Sprintf("%s/%s", cfg.Minio.Endpoint, cfg.Minio.Bucket),
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	return NewService(repo, storage, storageType), nil
}

// Storage 返回底层存储，供文档处理管线按路径读取文件
func (s *Service) Storage() Storage {
	return s.storage
}

// SaveFileRequest 保存文件请求
type SaveFileRequest struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
	UserID      string
}

// SaveFile 保存文件
func (s *Service) SaveFile(ctx context.Context, req *SaveFileRequest) (*model.StoredFile, error) {
	filePath, err := s.storage.Save(ctx, &SaveRequest{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Size:        req.Size,
		Reader:      req.Reader,
		UserID:      req.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	storedFile := &model.StoredFile{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		FileName:    req.FileName,
		FileSize:    req.Size,
		ContentType: req.ContentType,
		StorageType: string(s.storageType),
		FilePath:    filePath,
	}

	if err := s.repo.File.Create(storedFile); err != nil {
		// 数据库保存失败时回收已落盘的文件
		_ = s.storage.Delete(ctx, filePath)
		return nil, fmt.Errorf("failed to save file record: %w", err)
	}
	return storedFile, nil
}

// GetStoredFile 获取文件记录，不读取内容
func (s *Service) GetStoredFile(ctx context.Context, id string) (*model.StoredFile, error) {
	storedFile, err := s.repo.File.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("file not found: %w", err)
	}
	return storedFile, nil
}

// GetFile 获取文件记录和内容
func (s *Service) GetFile(ctx context.Context, id string) (*model.StoredFile, io.ReadCloser, error) {
	storedFile, err := s.repo.File.GetByID(id)
	if err != nil {
		return nil, nil, fmt.Errorf("file not found: %w", err)
	}

	reader, err := s.storage.Get(ctx, storedFile.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get file content: %w", err)
	}
	return storedFile, reader, nil
}

// DeleteFile 删除文件
func (s *Service) DeleteFile(ctx context.Context, id string) error {
	storedFile, err := s.repo.File.GetByID(id)
	if err != nil {
		return fmt.Errorf("file not found: %w", err)
	}

	if err := s.storage.Delete(ctx, storedFile.FilePath); err != nil {
		return fmt.Errorf("failed to delete file from storage: %w", err)
	}
	return s.repo.File.Delete(storedFile.ID)
}

// GetFileURL 获取文件访问URL
func (s *Service) GetFileURL(id string) (string, error) {
	storedFile, err := s.repo.File.GetByID(id)
	if err != nil {
		return "", fmt.Errorf("file not found: %w", err)
	}
	return s.storage.GetURL(storedFile.FilePath), nil
}

// ListByUserID 列出用户的全部文件
func (s *Service) ListByUserID(ctx context.Context, userID string) ([]*model.StoredFile, error) {
	return s.repo.File.GetByUserID(userID)
}
