package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper
var cfg *Config

// Config App-wide configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"-"`
	Redis      RedisConfig      `mapstructure:"-"`
	App        AppConfig        `mapstructure:"-"`
	JWT        JWTConfig        `mapstructure:"-"`
	Cache      CacheConfig      `mapstructure:"-"`
	Snowflake  SnowflakeConfig  `mapstructure:"-"`
	Logging    LoggingConfig    `mapstructure:"-"`
	Security   SecurityConfig   `mapstructure:"-"`
	Moderation ModerationConfig `mapstructure:"-"`
	Events     EventsConfig     `mapstructure:"-"`
	Indexing   IndexingConfig   `mapstructure:"-"`
}

// DatabaseConfig Database Configuration
type DatabaseConfig struct {
	Driver          string // mysql | sqlite
	Host            string
	Port            int
	Username        string
	Password        string
	Name            string
	Path            string // sqlite 文件路径
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	AutoMigrate     bool
}

// RedisConfig Redis Configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// AppConfig Application Configuration
type AppConfig struct {
	Host    string
	Port    int
	Mode    string
	BaseURL string
}

// JWTConfig JWT Configuration
type JWTConfig struct {
	Secret        string
	Expiry        int // Token过期时间(秒)
	RefreshExpiry int
}

// CacheConfig Cache Configuration
type CacheConfig struct {
	L1Cap int // L1 容量（MB）
	L2TTL int // L2 过期时间（秒）
}

// SnowflakeConfig Snowflake Configuration
type SnowflakeConfig struct {
	WorkerID int64
}

// LoggingConfig Logging Configuration
type LoggingConfig struct {
	Level      string
	Output     string // stdout | file | both
	Filename   string
	MaxSize    int
	MaxAge     int
	MaxBackups int
}

// SecurityConfig Security Configuration
type SecurityConfig struct {
	AllowIPs  []string // IP白名单
	DenyIPs   []string // IP黑名单
	RateLimit int      // 频率限制（每分钟）
	CORS      CORSConfig
}

// CORSConfig CORS Configuration
type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// ModerationConfig Moderation Configuration
type ModerationConfig struct {
	SettingsTTL     int      // 审核配置缓存时间（秒）
	UploadURLPrefix string   // 图片关联只处理此前缀下的地址
	BannedWords     []string // 内置违禁词，数据库无配置时使用
}

// EventsConfig Post-commit event bus configuration
type EventsConfig struct {
	Workers      int
	QueueSize    int
	MaxAttempts  int
	RetryBackoff int // 毫秒
}

// IndexingConfig IndexNow 搜索引擎推送，Endpoint 为空时关闭
type IndexingConfig struct {
	Endpoint    string
	Key         string
	KeyLocation string
	DedupTTL    int // 同一地址的去重时间（秒）
}

// Init Initialize configuration with Viper
func Init(configPath string) error {
	v = viper.New()
	cfg = &Config{}

	setDefaults()

	// 设置配置文件名（不带扩展名）
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// 添加配置文件路径
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// 读取配置
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量覆盖
	v.SetEnvPrefix("WELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 绑定环境变量
	bindEnvs()

	// 解析配置到结构体
	return parseConfig()
}

// setDefaults 设置默认值
func setDefaults() {
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.mode", "release")
	v.SetDefault("app.base_url", "")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.path", "./data/well.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("cache.l1_cap", 64)
	v.SetDefault("cache.l2_ttl", 3600)

	v.SetDefault("snowflake.worker_id", 0)

	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expiry", 86400)
	v.SetDefault("jwt.refresh_expiry", 30*86400)

	v.SetDefault("security.allow_ips", []string{"127.0.0.1", "localhost", "::1"})
	v.SetDefault("security.rate_limit", 100)
	v.SetDefault("security.cors.enabled", false)
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Authorization", "Content-Type", "X-Request-Id"})
	v.SetDefault("security.cors.max_age", 600)

	v.SetDefault("moderation.settings_ttl", 300)
	v.SetDefault("moderation.upload_url_prefix", "/uploads/")

	v.SetDefault("events.workers", 4)
	v.SetDefault("events.queue_size", 1024)
	v.SetDefault("events.max_attempts", 3)
	v.SetDefault("events.retry_backoff", 200)

	v.SetDefault("indexing.endpoint", "")
	v.SetDefault("indexing.dedup_ttl", 86400)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.filename", "./logs/well.log")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_age", 7)
	v.SetDefault("logging.max_backups", 10)
}

// bindEnvs 绑定环境变量
func bindEnvs() {
	// Database
	v.BindEnv("database.driver", "WELL_DATABASE_DRIVER")
	v.BindEnv("database.host", "WELL_DATABASE_HOST")
	v.BindEnv("database.port", "WELL_DATABASE_PORT")
	v.BindEnv("database.username", "WELL_DATABASE_USERNAME")
	v.BindEnv("database.password", "WELL_DATABASE_PASSWORD")
	v.BindEnv("database.name", "WELL_DATABASE_NAME")

	// Redis
	v.BindEnv("redis.host", "WELL_REDIS_HOST")
	v.BindEnv("redis.port", "WELL_REDIS_PORT")
	v.BindEnv("redis.password", "WELL_REDIS_PASSWORD")

	// JWT
	v.BindEnv("jwt.secret", "WELL_JWT_SECRET")
}

// parseConfig 解析配置到结构体
func parseConfig() error {
	// Database
	cfg.Database.Driver = v.GetString("database.driver")
	cfg.Database.Host = v.GetString("database.host")
	cfg.Database.Port = v.GetInt("database.port")
	cfg.Database.Username = v.GetString("database.username")
	cfg.Database.Password = v.GetString("database.password")
	cfg.Database.Name = v.GetString("database.name")
	cfg.Database.Path = v.GetString("database.path")
	cfg.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	cfg.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")
	cfg.Database.ConnMaxLifetime = v.GetInt("database.conn_max_lifetime")
	cfg.Database.AutoMigrate = v.GetBool("database.auto_migrate")

	// Redis
	cfg.Redis.Host = v.GetString("redis.host")
	cfg.Redis.Port = v.GetInt("redis.port")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Redis.PoolSize = v.GetInt("redis.pool_size")

	// App
	cfg.App.Host = v.GetString("app.host")
	cfg.App.Port = v.GetInt("app.port")
	cfg.App.Mode = v.GetString("app.mode")
	cfg.App.BaseURL = strings.TrimSpace(v.GetString("app.base_url"))

	// JWT
	cfg.JWT.Secret = v.GetString("jwt.secret")
	cfg.JWT.Expiry = v.GetInt("jwt.expiry")
	cfg.JWT.RefreshExpiry = v.GetInt("jwt.refresh_expiry")

	// Cache
	cfg.Cache.L1Cap = v.GetInt("cache.l1_cap")
	cfg.Cache.L2TTL = v.GetInt("cache.l2_ttl")

	// Snowflake
	cfg.Snowflake.WorkerID = v.GetInt64("snowflake.worker_id")

	// Logging
	cfg.Logging.Level = v.GetString("logging.level")
	cfg.Logging.Output = v.GetString("logging.output")
	cfg.Logging.Filename = v.GetString("logging.filename")
	cfg.Logging.MaxSize = v.GetInt("logging.max_size")
	cfg.Logging.MaxAge = v.GetInt("logging.max_age")
	cfg.Logging.MaxBackups = v.GetInt("logging.max_backups")

	// Security
	cfg.Security.AllowIPs = v.GetStringSlice("security.allow_ips")
	cfg.Security.DenyIPs = v.GetStringSlice("security.deny_ips")
	cfg.Security.RateLimit = v.GetInt("security.rate_limit")
	cfg.Security.CORS.Enabled = v.GetBool("security.cors.enabled")
	cfg.Security.CORS.AllowedOrigins = v.GetStringSlice("security.cors.allowed_origins")
	cfg.Security.CORS.AllowedMethods = v.GetStringSlice("security.cors.allowed_methods")
	cfg.Security.CORS.AllowedHeaders = v.GetStringSlice("security.cors.allowed_headers")
	cfg.Security.CORS.AllowCredentials = v.GetBool("security.cors.allow_credentials")
	cfg.Security.CORS.MaxAge = v.GetInt("security.cors.max_age")

	// Moderation
	cfg.Moderation.SettingsTTL = v.GetInt("moderation.settings_ttl")
	cfg.Moderation.UploadURLPrefix = v.GetString("moderation.upload_url_prefix")
	cfg.Moderation.BannedWords = v.GetStringSlice("moderation.banned_words")

	// Events
	cfg.Events.Workers = v.GetInt("events.workers")
	cfg.Events.QueueSize = v.GetInt("events.queue_size")
	cfg.Events.MaxAttempts = v.GetInt("events.max_attempts")
	cfg.Events.RetryBackoff = v.GetInt("events.retry_backoff")

	// Indexing
	cfg.Indexing.Endpoint = strings.TrimSpace(v.GetString("indexing.endpoint"))
	cfg.Indexing.Key = v.GetString("indexing.key")
	cfg.Indexing.KeyLocation = v.GetString("indexing.key_location")
	cfg.Indexing.DedupTTL = v.GetInt("indexing.dedup_ttl")

	if cfg.Database.Driver != "mysql" && cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if cfg.Moderation.SettingsTTL <= 0 {
		return fmt.Errorf("moderation.settings_ttl must be positive")
	}

	return nil
}

// Get 获取配置实例
func Get() *Config {
	return cfg
}

// GetDSN Get database DSN
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&clientFoundRows=true",
		c.Username, c.Password, c.Host, c.Port, c.Name)
}

// GetRedisAddr Get Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetServerAddr Get server address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetSettingsTTL Get moderation settings cache TTL
func (c *ModerationConfig) GetSettingsTTL() time.Duration {
	return time.Duration(c.SettingsTTL) * time.Second
}

// GetDedupTTL Get indexing dedup window
func (c *IndexingConfig) GetDedupTTL() time.Duration {
	return time.Duration(c.DedupTTL) * time.Second
}

// GetRetryBackoff Get event retry backoff
func (c *EventsConfig) GetRetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoff) * time.Millisecond
}
