package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Qdrant   QdrantConfig
	AI       AIConfig
	Pipeline PipelineConfig
	Callback CallbackConfig
	File     FileConfig
	JWT      JWTConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// QdrantConfig Qdrant 向量库配置
type QdrantConfig struct {
	URL             string
	APIKey          string
	Timeout         int
	VectorDim       int
	UpsertBatchSize int
	HNSWM           int
	HNSWEfConstruct int
}

// AIConfig AI配置
type AIConfig struct {
	Provider  string
	OpenAI    OpenAIConfig
	DeepSeek  DeepSeekConfig
	Embedding EmbeddingConfig
}

// OpenAIConfig OpenAI配置
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// DeepSeekConfig DeepSeek配置
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// EmbeddingConfig Embedding配置
type EmbeddingConfig struct {
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    int
	Dimensions int
	BatchSize  int
}

// PipelineConfig 文档处理管线配置
type PipelineConfig struct {
	ParentChunkSize   int
	ChildChunkSize    int
	ChildChunkOverlap int
	MaxContextLength  int
	Workers           int
	EmbeddingLimit    int
	ClassifyLimit     int
}

// CallbackConfig 处理完成回调配置
type CallbackConfig struct {
	URL     string
	Timeout int
}

// FileConfig 文件存储配置
type FileConfig struct {
	StorageType string
	LocalPath   string
	Minio       MinioConfig
}

// MinioConfig MinIO配置
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

var globalConfig *Config

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("CONTEXT_OS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "context-os")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "context_os")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Qdrant
	v.SetDefault("qdrant.url", "http://localhost:6333")
	v.SetDefault("qdrant.timeout", 30)
	v.SetDefault("qdrant.vectorDim", 2560)
	v.SetDefault("qdrant.upsertBatchSize", 500)
	v.SetDefault("qdrant.hnswM", 16)
	v.SetDefault("qdrant.hnswEfConstruct", 100)

	// AI
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.embedding.model", "text-embedding-3-small")
	v.SetDefault("ai.embedding.dimensions", 2560)
	v.SetDefault("ai.embedding.batchSize", 50)

	// Pipeline
	v.SetDefault("pipeline.parentChunkSize", 1024)
	v.SetDefault("pipeline.childChunkSize", 256)
	v.SetDefault("pipeline.childChunkOverlap", 50)
	v.SetDefault("pipeline.maxContextLength", 30000)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.embeddingLimit", 5)
	v.SetDefault("pipeline.classifyLimit", 3)

	// Callback
	v.SetDefault("callback.timeout", 10)

	// File
	v.SetDefault("file.storageType", "local")
	v.SetDefault("file.localPath", "./data/files")
	v.SetDefault("file.minio.bucket", "context-os")

	// JWT
	v.SetDefault("jwt.expireHours", 72)
}
