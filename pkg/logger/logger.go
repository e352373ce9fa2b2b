// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

type ctxKey string

// RequestIDKey 请求ID在上下文中的键
const RequestIDKey ctxKey = "request_id"

// ContextWithRequestID 将请求ID写入上下文
func ContextWithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, reqID)
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}

	return &l
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// SchedulerLogger 排程引擎专用日志器
type SchedulerLogger struct {
	base *zerolog.Logger
}

// NewSchedulerLogger 创建排程引擎日志器
func NewSchedulerLogger() *SchedulerLogger {
	l := Get().With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// StartSolve 记录求解开始
func (l *SchedulerLogger) StartSolve(runID, strategy string, points, days, visitsPerDay int) {
	l.base.Info().
		Str("run_id", runID).
		Str("strategy", strategy).
		Int("points", points).
		Int("days", days).
		Int("visits_per_day", visitsPerDay).
		Msg("开始生成巡店计划")
}

// ModelBuilt 记录约束模型构建完成
func (l *SchedulerLogger) ModelBuilt(runID string, variables, constraints int, duration time.Duration) {
	l.base.Debug().
		Str("run_id", runID).
		Int("variables", variables).
		Int("constraints", constraints).
		Dur("duration", duration).
		Msg("约束模型构建完成")
}

// SolutionFound 记录找到一个可行解
func (l *SchedulerLogger) SolutionFound(runID string, index int) {
	l.base.Debug().
		Str("run_id", runID).
		Int("index", index).
		Msg("找到可行解")
}

// LimitReached 记录达到解数量上限
func (l *SchedulerLogger) LimitReached(runID string, limit int) {
	l.base.Info().
		Str("run_id", runID).
		Int("limit", limit).
		Msg("已达到解数量上限，停止搜索")
}

// ConstraintViolation 记录约束违反
func (l *SchedulerLogger) ConstraintViolation(constraint, details string) {
	l.base.Warn().
		Str("constraint", constraint).
		Str("details", details).
		Msg("约束违反")
}

// Canceled 记录求解被取消
func (l *SchedulerLogger) Canceled(runID string, found int) {
	l.base.Warn().
		Str("run_id", runID).
		Int("found", found).
		Msg("求解被取消")
}

// SolveComplete 记录求解完成
func (l *SchedulerLogger) SolveComplete(runID, status string, solutions int, duration time.Duration) {
	l.base.Info().
		Str("run_id", runID).
		Str("status", status).
		Int("solutions", solutions).
		Dur("duration", duration).
		Msg("巡店计划生成完成")
}
