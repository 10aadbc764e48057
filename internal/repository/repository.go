package repository

import "gorm.io/gorm"

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB        *gorm.DB // 直接访问数据库
	Knowledge *KnowledgeRepository
	Auth      *AuthRepository
	File      *FileRepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:        db,
		Knowledge: NewKnowledgeRepository(db),
		Auth:      NewAuthRepository(db),
		File:      NewFileRepository(db),
	}
}
