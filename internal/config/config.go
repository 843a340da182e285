package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Redis      RedisConfig
	Tracing    TracingConfig    `mapstructure:"tracing"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Tracking   TrackingConfig   `mapstructure:"tracking"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Events     EventsConfig     `mapstructure:"events"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool   `mapstructure:"-"` // 强制执行数据库迁移
	MigrateOnly  bool   `mapstructure:"-"` // 仅迁移模式（迁移后退出）
	Dir          string `mapstructure:"-"` // 配置文件所在目录，热更新监听用
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port        string
	Mode        string
	WatchConfig bool `mapstructure:"watch_config"`
}

type DatabaseConfig struct {
	Driver    string // mysql | postgres | sqlite
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool   `mapstructure:"parse_time"`
	SSLMode   string `mapstructure:"ssl_mode"`
	Path      string // sqlite 文件路径
	LogLevel  string `mapstructure:"log_level"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ServiceName       string `mapstructure:"service_name"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

// TrackingConfig 观看时长累计与完成判定
type TrackingConfig struct {
	FlushIntervalSeconds       int     `mapstructure:"flush_interval_seconds"`
	MaxAcceptedDeltaSeconds    float64 `mapstructure:"max_accepted_delta_seconds"`
	CompletionThresholdPercent float64 `mapstructure:"completion_threshold_percent"`
}

type EvaluationConfig struct {
	DefaultMinPassPercent float64 `mapstructure:"default_min_pass_percent"`
	MaxNumberRetries      int     `mapstructure:"max_number_retries"`
}

type EventsConfig struct {
	Driver  string `mapstructure:"driver"` // redis | log
	Channel string `mapstructure:"channel"`
}

func (t TrackingConfig) FlushInterval() time.Duration {
	return time.Duration(t.FlushIntervalSeconds) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("tracing.service_name", "learning-progress")
	v.SetDefault("tracking.flush_interval_seconds", 5)
	v.SetDefault("tracking.max_accepted_delta_seconds", 2.0)
	v.SetDefault("tracking.completion_threshold_percent", 95.0)
	v.SetDefault("evaluation.default_min_pass_percent", 70.0)
	v.SetDefault("evaluation.max_number_retries", 3)
	v.SetDefault("events.driver", "log")
	v.SetDefault("events.channel", "module.completed")
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("LEARNING")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Events
	v.BindEnv("events.driver", "EVENTS_DRIVER")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Dir = path

	return &cfg, nil
}

func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	if c.Tracking.FlushIntervalSeconds <= 0 {
		return fmt.Errorf("tracking.flush_interval_seconds must be positive, got %d", c.Tracking.FlushIntervalSeconds)
	}
	if c.Tracking.CompletionThresholdPercent <= 0 || c.Tracking.CompletionThresholdPercent > 100 {
		return fmt.Errorf("tracking.completion_threshold_percent must be in (0,100], got %v", c.Tracking.CompletionThresholdPercent)
	}
	if c.Evaluation.MaxNumberRetries < 1 {
		return fmt.Errorf("evaluation.max_number_retries must be at least 1, got %d", c.Evaluation.MaxNumberRetries)
	}
	switch c.Events.Driver {
	case "redis", "log":
	default:
		return fmt.Errorf("unknown events.driver %q", c.Events.Driver)
	}
	return nil
}
