package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App         AppConfig         `yaml:"app"`
	Server      ServerConfig      `yaml:"server"`
	Mongo       MongoConfig       `yaml:"mongo"`
	Redis       RedisConfig       `yaml:"redis"`
	Storage     StorageConfig     `yaml:"storage"`
	Attachments AttachmentsConfig `yaml:"attachments"`
	Upload      UploadConfig      `yaml:"upload"`
	Listing     ListingConfig     `yaml:"listing"`
	Cleanup     CleanupConfig     `yaml:"cleanup"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name" env:"APP_NAME"`
	Version string `yaml:"version" env:"APP_VERSION"`
	Env     string `yaml:"env" env:"APP_ENV"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS" env-separator:","`
}

type MongoConfig struct {
	URI            string        `yaml:"uri" env:"MONGO_URI"`
	Database       string        `yaml:"database" env:"MONGO_DATABASE"`
	Collection     string        `yaml:"collection" env:"MONGO_COLLECTION"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"MONGO_CONNECT_TIMEOUT"`
	MaxPoolSize    uint64        `yaml:"max_pool_size" env:"MONGO_MAX_POOL_SIZE"`
}

type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST"`
	Port     int    `yaml:"port" env:"REDIS_PORT"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	PoolSize int    `yaml:"pool_size" env:"REDIS_POOL_SIZE"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint      string `yaml:"endpoint" env:"S3_ENDPOINT"`
	AccessKey     string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey     string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	Bucket        string `yaml:"bucket" env:"S3_BUCKET"`
	Region        string `yaml:"region" env:"S3_REGION"`
	UseSSL        bool   `yaml:"use_ssl" env:"S3_USE_SSL"`
	PublicBaseURL string `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
	PublicRead    bool   `yaml:"public_read" env:"S3_PUBLIC_READ"`
}

// AttachmentsConfig controls where decks land in the object store.
type AttachmentsConfig struct {
	Folder  string        `yaml:"folder" env:"ATTACHMENTS_FOLDER"`
	Kind    string        `yaml:"kind" env:"ATTACHMENTS_KIND"`
	Timeout time.Duration `yaml:"timeout" env:"ATTACHMENTS_TIMEOUT"`
}

type UploadConfig struct {
	TempDir   string `yaml:"temp_dir" env:"UPLOAD_TEMP_DIR"`
	MaxMemory int64  `yaml:"max_memory" env:"UPLOAD_MAX_MEMORY"`
	FileField string `yaml:"file_field" env:"UPLOAD_FILE_FIELD"`
}

type ListingConfig struct {
	DefaultLimit int `yaml:"default_limit" env:"LISTING_DEFAULT_LIMIT"`
}

// CleanupConfig drives the orphaned-attachment ledger and its sweeper.
type CleanupConfig struct {
	Enabled     bool   `yaml:"enabled" env:"CLEANUP_ENABLED"`
	Queue       string `yaml:"queue" env:"CLEANUP_QUEUE"`
	DLQSuffix   string `yaml:"dlq_suffix" env:"CLEANUP_DLQ_SUFFIX"`
	WorkerCount int    `yaml:"worker_count" env:"CLEANUP_WORKER_COUNT"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	return LoadFile(configPath)
}

// LoadFile reads the YAML file at path, applies environment overrides and
// fills in defaults for anything left unset.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "prospect-tracker-api"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = "prospectdetails"
	}
	if c.Mongo.ConnectTimeout == 0 {
		c.Mongo.ConnectTimeout = 10 * time.Second
	}
	if c.Attachments.Folder == "" {
		c.Attachments.Folder = "decks"
	}
	if c.Attachments.Kind == "" {
		c.Attachments.Kind = "raw"
	}
	if c.Attachments.Timeout == 0 {
		c.Attachments.Timeout = 30 * time.Second
	}
	if c.Upload.MaxMemory == 0 {
		c.Upload.MaxMemory = 32 << 20
	}
	if c.Upload.FileField == "" {
		c.Upload.FileField = "deck"
	}
	if c.Listing.DefaultLimit <= 0 {
		c.Listing.DefaultLimit = 20
	}
	if c.Cleanup.Queue == "" {
		c.Cleanup.Queue = "prospects:orphaned_attachments"
	}
	if c.Cleanup.DLQSuffix == "" {
		c.Cleanup.DLQSuffix = ":dlq"
	}
	if c.Cleanup.WorkerCount <= 0 {
		c.Cleanup.WorkerCount = 2
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri is required")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("mongo.database is required")
	}
	if c.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required")
	}
	return nil
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// DLQName is the dead-letter list for orphan deletions the sweeper gave up on.
func (c *Config) DLQName() string {
	return c.Cleanup.Queue + c.Cleanup.DLQSuffix
}
