package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"stockaggr/internal/logging"
)

// Config represents the application configuration
type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	Admin      AdminConfig      `yaml:"admin"`
	CORS       CORSConfig       `yaml:"cors"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Logging    logging.Config   `yaml:"logging"`
	DataSource DataSourceConfig `yaml:"datasource"`
	Cache      CacheConfig      `yaml:"cache"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// AppConfig represents application configuration
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	DBName         string        `yaml:"dbname"`
	SSLMode        string        `yaml:"sslmode"`
	MaxOpen        int           `yaml:"max_open"`
	MaxIdle        int           `yaml:"max_idle"`
	Timeout        time.Duration `yaml:"timeout"`
	MigrationsPath string        `yaml:"migrations_path"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Enabled  bool   `yaml:"enabled"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	SecretKey string        `yaml:"secret_key"`
	Duration  time.Duration `yaml:"duration"`
}

// AdminConfig represents the administrative account configuration.
// PasswordHash is a bcrypt hash; plain passwords are never stored.
type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// CORSConfig represents CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// RateLimitConfig represents rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second"`
	Burst             int  `yaml:"burst"`
}

// DataSourceConfig represents data source manager configuration
type DataSourceConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"` // 配置热加载最小间隔
	CallTimeout     time.Duration `yaml:"call_timeout"`     // 单次上游调用超时
	Bridge          BridgeConfig  `yaml:"bridge"`
}

// BridgeConfig represents the last-resort bridge adapter configuration
type BridgeConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Exchange   string `yaml:"exchange"`
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	MarketType string `yaml:"market_type"`
}

// CacheConfig represents response cache configuration
type CacheConfig struct {
	QuoteTTL   time.Duration `yaml:"quote_ttl"`
	KlineTTL   time.Duration `yaml:"kline_ttl"`
	RankTTL    time.Duration `yaml:"rank_ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// SchedulerConfig represents pre-warm scheduler configuration
type SchedulerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	IndexSpec string `yaml:"index_spec"`
	LimitSpec string `yaml:"limit_spec"`
	NorthSpec string `yaml:"north_spec"`
}

// Load loads configuration from a YAML file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills in sane defaults for unset fields
func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "stockaggr"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.MaxHeaderBytes == 0 {
		c.Server.MaxHeaderBytes = 1 << 20
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MigrationsPath == "" {
		c.Database.MigrationsPath = "migrations"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.DataSource.RefreshInterval == 0 {
		c.DataSource.RefreshInterval = 3 * time.Second
	}
	if c.DataSource.CallTimeout == 0 {
		c.DataSource.CallTimeout = 10 * time.Second
	}
	if c.DataSource.Bridge.Exchange == "" {
		c.DataSource.Bridge.Exchange = "binance"
	}
	if c.Cache.QuoteTTL == 0 {
		c.Cache.QuoteTTL = 5 * time.Second
	}
	if c.Cache.KlineTTL == 0 {
		c.Cache.KlineTTL = time.Minute
	}
	if c.Cache.RankTTL == 0 {
		c.Cache.RankTTL = 30 * time.Second
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 10000
	}
	if c.Scheduler.IndexSpec == "" {
		c.Scheduler.IndexSpec = "* * * * *"
	}
	if c.Scheduler.LimitSpec == "" {
		c.Scheduler.LimitSpec = "*/5 * * * *"
	}
	if c.Scheduler.NorthSpec == "" {
		c.Scheduler.NorthSpec = "*/5 * * * *"
	}
	if c.JWT.Duration == 0 {
		c.JWT.Duration = 24 * time.Hour
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 50
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 100
	}
}

// validate checks required fields
func (c *Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("jwt secret key is required")
	}
	return nil
}
