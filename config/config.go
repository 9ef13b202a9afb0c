package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Period    PeriodConfig    `mapstructure:"period"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port      int        `mapstructure:"port"`
	BaseURL   string     `mapstructure:"base_url"`
	MaxBodyMB int64      `mapstructure:"max_body_mb"`
	CORS      CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（可选；不可用时降级运行）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret               string        `mapstructure:"jwt_secret"`
	AccessTokenTTL          time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTLDefault  time.Duration `mapstructure:"refresh_token_ttl_default"`
	RefreshTokenTTLRemember time.Duration `mapstructure:"refresh_token_ttl_remember_me"`
	BcryptCost              int           `mapstructure:"bcrypt_cost"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig 上传文件存储配置
type StorageConfig struct {
	UploadDir      string        `mapstructure:"upload_dir"`
	MaxFileSize    int64         `mapstructure:"max_file_size"`   // 单文件上限（字节）
	MaxOtherFiles  int           `mapstructure:"max_other_files"` // 其他证书最多数量
	OrphanGrace    time.Duration `mapstructure:"orphan_grace"`    // 孤儿文件保留期
	OrphanSchedule string        `mapstructure:"orphan_schedule"` // cron 表达式
	OrphanDryRun   bool          `mapstructure:"orphan_dry_run"`
}

// PeriodConfig 申请期配置
type PeriodConfig struct {
	Timezone      string        `mapstructure:"timezone"`       // 判断“今天”所用时区
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // 过期扫描间隔
}

// Location 解析申请期时区；Validate 已保证可解析
func (c *PeriodConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	LoginLimit  int           `mapstructure:"login_limit"`
	SubmitLimit int           `mapstructure:"submit_limit"`
	Window      time.Duration `mapstructure:"window"`
}

// SentryConfig 错误上报配置（dsn 为空则不启用）
type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
	Release     string `mapstructure:"release"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_mb", 32)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "erasmus")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Europe/Athens")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "") // 仅注册键，使 ERASMUS_AUTH_JWT_SECRET 能被 Unmarshal 读取
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl_default", "24h")
	v.SetDefault("auth.refresh_token_ttl_remember_me", "168h")
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("storage.upload_dir", "./uploads")
	v.SetDefault("storage.max_file_size", 5<<20)
	v.SetDefault("storage.max_other_files", 5)
	v.SetDefault("storage.orphan_grace", "1h")
	v.SetDefault("storage.orphan_schedule", "@every 1h")
	v.SetDefault("storage.orphan_dry_run", false)

	v.SetDefault("period.timezone", "Europe/Athens")
	v.SetDefault("period.sweep_interval", "60s")

	v.SetDefault("rate_limit.login_limit", 10)
	v.SetDefault("rate_limit.submit_limit", 5)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.release", "")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("ERASMUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Storage.UploadDir == "" {
		return fmt.Errorf("配置校验失败: storage.upload_dir 不能为空")
	}
	if c.Storage.MaxFileSize <= 0 {
		return fmt.Errorf("配置校验失败: storage.max_file_size 必须大于 0")
	}
	if c.Storage.MaxOtherFiles < 0 {
		return fmt.Errorf("配置校验失败: storage.max_other_files 不能为负数")
	}
	if c.Period.SweepInterval <= 0 {
		return fmt.Errorf("配置校验失败: period.sweep_interval 必须大于 0")
	}
	if _, err := time.LoadLocation(c.Period.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: period.timezone 无效: %w", err)
	}
	return nil
}

// multipartOverhead 表单文本字段与 multipart 分隔符的余量
const multipartOverhead = 1 << 20

// BodyLimit 请求体上限（字节）
// 取 server.max_body_mb 与一次满额提交（两个必需文件加全部其他证书，均按单文件上限）中的较大者
func (c *Config) BodyLimit() int64 {
	limit := c.Server.MaxBodyMB << 20
	files := int64(2 + c.Storage.MaxOtherFiles)
	if submission := c.Storage.MaxFileSize*files + multipartOverhead; submission > limit {
		limit = submission
	}
	return limit
}
