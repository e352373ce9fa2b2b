// VisitPlan 巡店排程命令行工具
//
// 用法: visitplan [flags] points.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/paiban/visitplan/internal/config"
	"github.com/paiban/visitplan/pkg/logger"
)

func main() {
	var (
		configPath string
		opts       options
		horizon    string
	)

	flag.StringVar(&configPath, "config", "", "YAML 配置文件路径")
	flag.StringVar(&opts.Strategy, "strategy", "", "求解策略 cp/filler，默认取配置")
	flag.IntVar(&opts.Limit, "limit", 0, "最多输出的方案数，默认取配置")
	flag.IntVar(&opts.VisitsPerDay, "visits-per-day", 0, "每日访问数，默认取配置")
	flag.StringVar(&opts.Spacing, "spacing", "", "间隔建模方式 strict/slack，默认取配置")
	flag.StringVar(&horizon, "horizon", "", "逗号分隔的排程日期 YYYY-MM-DD，默认取配置")
	flag.DurationVar(&opts.Timeout, "timeout", 0, "求解超时，默认取配置，0 表示仅响应 Ctrl+C")
	flag.StringVar(&opts.OutPath, "out", "", "将排名第一的方案导出为 CSV")
	flag.BoolVar(&opts.Save, "save", false, "保存结果到数据库（需要 database.enabled）")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "用法: %s [flags] points.csv\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	opts.InputPath = flag.Arg(0)
	if horizon != "" {
		opts.Horizon = strings.Split(horizon, ",")
	}

	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: "stderr",
	})

	// Ctrl+C 取消求解，已找到的方案仍会输出
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		stop()
		os.Exit(1)
	}
}
