// VisitPlan 巡店排程服务
// 主程序入口

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/paiban/visitplan/internal/config"
	"github.com/paiban/visitplan/internal/database"
	"github.com/paiban/visitplan/internal/handler"
	"github.com/paiban/visitplan/internal/metrics"
	"github.com/paiban/visitplan/internal/middleware"
	"github.com/paiban/visitplan/internal/repository"
	"github.com/paiban/visitplan/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "YAML 配置文件路径")
	flag.Parse()

	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
	})

	// 打印版本信息
	fmt.Printf("VisitPlan 巡店排程服务 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	m := metrics.Default()

	// 可选的持久化
	var store handler.ResultStore
	var pinger handler.Pinger
	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("连接数据库失败")
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("数据库迁移失败")
		}
		store = repository.NewStore(db)
		pinger = db
	}

	scheduleHandler := handler.NewScheduleHandler(cfg.Scheduler, store, m)
	systemHandler := handler.NewSystemHandler(handler.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}, pinger)

	mux := http.NewServeMux()

	// 系统端点
	mux.HandleFunc("/health", systemHandler.Health)
	mux.HandleFunc("/version", systemHandler.Version)

	// API v1 端点
	mux.HandleFunc("/api/v1/schedule/generate", scheduleHandler.Generate)
	mux.HandleFunc("/api/v1/schedule/evaluate", scheduleHandler.Evaluate)
	mux.HandleFunc("/api/v1/schedule/validate", scheduleHandler.Validate)
	mux.HandleFunc("/api/v1/constraints/library", systemHandler.ConstraintLibrary)

	// Prometheus 指标端点
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, m.Handler())
	}

	// 中间件执行顺序：recovery -> requestID -> rateLimit -> cors -> logging -> handler
	root := middleware.Chain(mux,
		middleware.Recovery,
		middleware.RequestID,
		middleware.RateLimit(cfg.API.RateLimit, cfg.API.Burst),
		middleware.CORS(cfg.API.CORS),
		middleware.SecurityHeaders,
		middleware.Logging(m),
	)

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Str("addr", addr).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Bool("database", cfg.Database.Enabled).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("服务器启动失败")
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		return
	}

	logger.Info().Msg("服务器已关闭")
}
