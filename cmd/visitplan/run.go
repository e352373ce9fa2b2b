package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/paiban/visitplan/internal/config"
	"github.com/paiban/visitplan/internal/database"
	"github.com/paiban/visitplan/internal/metrics"
	"github.com/paiban/visitplan/internal/repository"
	apperrors "github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/loader"
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
	"github.com/paiban/visitplan/pkg/scheduler/solver"
)

// options 命令行选项，零值表示取配置
type options struct {
	InputPath    string
	Strategy     string
	Limit        int
	VisitsPerDay int
	Spacing      string
	Horizon      []string
	Timeout      time.Duration
	OutPath      string
	Save         bool
}

// apply 用命令行选项覆盖配置
func (o options) apply(cfg config.SchedulerConfig) (config.SchedulerConfig, error) {
	if o.Strategy != "" {
		cfg.Strategy = o.Strategy
	}
	if o.Limit > 0 {
		cfg.SolutionLimit = o.Limit
	}
	if o.VisitsPerDay > 0 {
		cfg.VisitsPerDay = o.VisitsPerDay
	}
	if o.Spacing != "" {
		if _, err := constraint.ParseSpacingMode(o.Spacing); err != nil {
			return cfg, err
		}
		cfg.SpacingMode = o.Spacing
	}
	if len(o.Horizon) > 0 {
		cfg.Horizon = make([]string, len(o.Horizon))
		for i, d := range o.Horizon {
			cfg.Horizon[i] = strings.TrimSpace(d)
		}
	}
	if o.Timeout > 0 {
		cfg.Timeout = o.Timeout
	}
	switch model.StrategyType(cfg.Strategy) {
	case model.StrategyConstraint, model.StrategyFiller:
	default:
		return cfg, apperrors.InvalidInput("strategy", "只能是 cp 或 filler")
	}
	return cfg, nil
}

// run 加载输入、求解并输出结果
func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer) error {
	sched, err := opts.apply(cfg.Scheduler)
	if err != nil {
		return err
	}

	horizon, err := sched.ParsedHorizon()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "排程日期无效")
	}

	in, err := loader.Load(opts.InputPath)
	if err != nil {
		return err
	}

	req := &solver.Request{
		Points:        in.Points,
		Horizon:       horizon,
		VisitsLeft:    in.VisitsLeft,
		VisitsPerDay:  sched.VisitsPerDay,
		SolutionLimit: sched.SolutionLimit,
	}

	if sched.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sched.Timeout)
		defer cancel()
	}

	result, err := solve(ctx, newSolver(sched), req, out)
	if err != nil {
		return err
	}

	if err := printResult(out, result, req.VisitsPerDay); err != nil {
		return err
	}

	if opts.OutPath != "" && len(result.Schedules) > 0 {
		if err := exportBest(opts.OutPath, result, req.VisitsPerDay); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n已导出最优方案到 %s\n", opts.OutPath)
	}

	if opts.Save {
		if !cfg.Database.Enabled {
			return apperrors.New(apperrors.CodeInvalidInput, "未启用数据库，无法保存结果")
		}
		if err := save(ctx, cfg, req, result); err != nil {
			return err
		}
		fmt.Fprintf(out, "已保存运行记录 %s\n", result.RunID)
	}
	return nil
}

// progressBuffer 进度通道容量，写满后丢弃进度而不阻塞搜索
const progressBuffer = 64

// newSolver 按配置创建求解器
func newSolver(cfg config.SchedulerConfig) solver.Solver {
	if model.StrategyType(cfg.Strategy) == model.StrategyFiller {
		s := solver.NewFillerSolver(cfg.FillerAttempts, cfg.FillerSeed)
		s.SetRecorder(metrics.Default())
		return s
	}
	s := solver.NewCPSolver(cfg.ConstraintOptions())
	s.SetRecorder(metrics.Default())
	return s
}

type outcome struct {
	result *solver.Result
	err    error
}

// solve 在后台求解，搜索线程只把进度写入缓冲通道，由当前 goroutine 输出
func solve(ctx context.Context, s solver.Solver, req *solver.Request, out io.Writer) (*solver.Result, error) {
	progress := make(chan int, progressBuffer)
	if cp, ok := s.(*solver.CPSolver); ok {
		cp.OnProgress = func(found int) {
			select {
			case progress <- found:
			default:
			}
		}
	}

	done := make(chan outcome, 1)
	go func() {
		res, err := s.Solve(ctx, req)
		done <- outcome{res, err}
	}()

	for {
		select {
		case found := <-progress:
			fmt.Fprintf(out, "已找到 %d 个方案\n", found)
		case o := <-done:
			for {
				select {
				case found := <-progress:
					fmt.Fprintf(out, "已找到 %d 个方案\n", found)
				default:
					return o.result, o.err
				}
			}
		}
	}
}

// exportBest 导出路线成本最低的方案
func exportBest(path string, result *solver.Result, visitsPerDay int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建导出文件失败: %w", err)
	}
	defer f.Close()

	best := ranked(result.Schedules)[0].schedule
	return loader.WriteRows(f, best.Rows(visitsPerDay))
}

// save 保存求解结果
func save(ctx context.Context, cfg *config.Config, req *solver.Request, result *solver.Result) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return apperrors.Database(err, "连接数据库")
	}
	defer db.Close()

	// 求解被取消时仍然保存已找到的方案
	ctx = context.WithoutCancel(ctx)
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	return repository.NewStore(db).SaveResult(ctx, req, result)
}
