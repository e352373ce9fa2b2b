// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
	"github.com/paiban/visitplan/pkg/scheduler/solver"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name"`
	Env       string `yaml:"env"`
	Port      int    `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	RateLimit int           `yaml:"rate_limit"` // 每秒请求数
	Burst     int           `yaml:"burst"`
	Timeout   time.Duration `yaml:"timeout"`
	CORS      CORSConfig    `yaml:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
}

// SchedulerConfig 排程引擎配置
type SchedulerConfig struct {
	VisitsPerDay       int           `yaml:"visits_per_day"`
	SolutionLimit      int           `yaml:"solution_limit"`
	SpacingMode        string        `yaml:"spacing_mode"` // strict/slack
	SkipSatisfiedPairs bool          `yaml:"skip_satisfied_pairs"`
	Strategy           string        `yaml:"strategy"` // cp/filler
	FillerAttempts     int           `yaml:"filler_attempts"`
	FillerSeed         uint64        `yaml:"filler_seed"`
	Timeout            time.Duration `yaml:"timeout"` // 0 表示不限时，仅响应取消
	Horizon            []string      `yaml:"horizon"`
}

// ConstraintOptions 转换为建模选项
func (c *SchedulerConfig) ConstraintOptions() constraint.Options {
	mode, err := constraint.ParseSpacingMode(c.SpacingMode)
	if err != nil {
		mode = constraint.SpacingStrict
	}
	return constraint.Options{
		Spacing:            mode,
		SkipSatisfiedPairs: c.SkipSatisfiedPairs,
	}
}

// ParsedHorizon 解析排程日期
func (c *SchedulerConfig) ParsedHorizon() (model.Horizon, error) {
	return model.ParseHorizon(c.Horizon)
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultHorizon 默认排程日期（工作日，跳过节假日）
var DefaultHorizon = []string{
	"2023-04-18", "2023-04-19", "2023-04-20",
	"2023-05-02", "2023-05-03", "2023-05-04", "2023-05-05",
	"2023-05-10", "2023-05-11", "2023-05-12",
	"2023-05-15", "2023-05-16", "2023-05-17", "2023-05-18", "2023-05-19",
	"2023-05-22", "2023-05-23", "2023-05-24", "2023-05-25", "2023-05-26",
	"2023-05-29", "2023-05-30", "2023-05-31", "2023-06-01", "2023-06-02",
	"2023-06-05", "2023-06-06", "2023-06-07", "2023-06-08", "2023-06-09",
	"2023-06-13", "2023-06-14", "2023-06-15", "2023-06-16",
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "visitplan",
			Env:       "development",
			Port:      7012,
			LogLevel:  "info",
			LogFormat: "console",
		},
		Database: DatabaseConfig{
			Enabled:         false,
			Host:            "localhost",
			Port:            5432,
			Name:            "visitplan",
			User:            "visitplan",
			Password:        "visitplan",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		API: APIConfig{
			RateLimit: 100,
			Burst:     200,
			Timeout:   60 * time.Second,
			CORS: CORSConfig{
				Enabled: true,
				Origins: []string{"*"},
			},
		},
		Scheduler: SchedulerConfig{
			VisitsPerDay:       14,
			SolutionLimit:      5,
			SpacingMode:        string(constraint.SpacingStrict),
			SkipSatisfiedPairs: true,
			Strategy:           string(model.StrategyConstraint),
			FillerAttempts:     100,
			Horizon:            append([]string(nil), DefaultHorizon...),
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load 加载配置：默认值 -> YAML 文件（path 非空时） -> 环境变量，最后校验
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, fmt.Sprintf("读取配置文件 %s 失败", path))
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, fmt.Sprintf("解析配置文件 %s 失败", path))
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 环境变量覆盖已有值
func (c *Config) applyEnv() {
	c.App.Name = getEnv("APP_NAME", c.App.Name)
	c.App.Env = getEnv("APP_ENV", c.App.Env)
	c.App.Port = getEnvInt("APP_PORT", c.App.Port)
	c.App.LogLevel = getEnv("APP_LOG_LEVEL", c.App.LogLevel)
	c.App.LogFormat = getEnv("APP_LOG_FORMAT", c.App.LogFormat)

	c.Database.Enabled = getEnvBool("DB_ENABLED", c.Database.Enabled)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)

	c.API.RateLimit = getEnvInt("API_RATE_LIMIT", c.API.RateLimit)
	c.API.Burst = getEnvInt("API_BURST", c.API.Burst)
	c.API.Timeout = getEnvDuration("API_TIMEOUT", c.API.Timeout)
	c.API.CORS.Enabled = getEnvBool("API_CORS_ENABLED", c.API.CORS.Enabled)

	c.Scheduler.VisitsPerDay = getEnvInt("SCHEDULER_VISITS_PER_DAY", c.Scheduler.VisitsPerDay)
	c.Scheduler.SolutionLimit = getEnvInt("SCHEDULER_SOLUTION_LIMIT", c.Scheduler.SolutionLimit)
	c.Scheduler.SpacingMode = getEnv("SCHEDULER_SPACING_MODE", c.Scheduler.SpacingMode)
	c.Scheduler.SkipSatisfiedPairs = getEnvBool("SCHEDULER_SKIP_SATISFIED_PAIRS", c.Scheduler.SkipSatisfiedPairs)
	c.Scheduler.Strategy = getEnv("SCHEDULER_STRATEGY", c.Scheduler.Strategy)
	c.Scheduler.FillerAttempts = getEnvInt("SCHEDULER_FILLER_ATTEMPTS", c.Scheduler.FillerAttempts)
	c.Scheduler.Timeout = getEnvDuration("SCHEDULER_TIMEOUT", c.Scheduler.Timeout)
	if v := os.Getenv("SCHEDULER_HORIZON"); v != "" {
		c.Scheduler.Horizon = splitList(v)
	}

	c.Metrics.Enabled = getEnvBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Path = getEnv("METRICS_PATH", c.Metrics.Path)
}

// Validate 校验配置
func (c *Config) Validate() error {
	ve := &apperrors.ValidationErrors{}

	if c.App.Port <= 0 || c.App.Port > 65535 {
		ve.Add("app.port", fmt.Sprintf("端口无效: %d", c.App.Port))
	}
	if c.Scheduler.VisitsPerDay <= 0 {
		ve.Add("scheduler.visits_per_day", "必须大于0")
	}
	if c.Scheduler.SolutionLimit <= 0 || c.Scheduler.SolutionLimit > solver.MaxSolutionLimit {
		ve.Add("scheduler.solution_limit", fmt.Sprintf("必须在 1 到 %d 之间", solver.MaxSolutionLimit))
	}
	if _, err := constraint.ParseSpacingMode(c.Scheduler.SpacingMode); err != nil {
		ve.Add("scheduler.spacing_mode", "只能是 strict 或 slack")
	}
	switch model.StrategyType(c.Scheduler.Strategy) {
	case model.StrategyConstraint, model.StrategyFiller:
	default:
		ve.Add("scheduler.strategy", "只能是 cp 或 filler")
	}
	if _, err := c.Scheduler.ParsedHorizon(); err != nil {
		ve.Add("scheduler.horizon", err.Error())
	}
	if c.API.RateLimit <= 0 {
		ve.Add("api.rate_limit", "必须大于0")
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
