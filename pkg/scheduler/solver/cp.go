package solver

import (
	"context"
	"errors"
	"time"

	"github.com/paiban/visitplan/pkg/cpsat"
	"github.com/paiban/visitplan/pkg/logger"
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

// CPSolver 基于约束模型枚举可行解
type CPSolver struct {
	options  constraint.Options
	logger   *logger.SchedulerLogger
	recorder Recorder

	// OnProgress 每找到一个方案调用一次，在搜索线程上执行
	OnProgress func(found int)
}

// NewCPSolver 创建约束求解器
func NewCPSolver(opts constraint.Options) *CPSolver {
	return &CPSolver{
		options:  opts,
		logger:   logger.NewSchedulerLogger(),
		recorder: nopRecorder{},
	}
}

// Name 返回求解器名称
func (s *CPSolver) Name() string {
	return "CPSolver"
}

// SetRecorder 设置指标记录器
func (s *CPSolver) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	s.recorder = r
}

// Solve 构建模型并枚举最多 req.Limit() 个方案
// 取消不视为错误：构建阶段取消返回 Unknown 且无方案，求解阶段取消保留已找到的方案
func (s *CPSolver) Solve(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	result := newResult(model.StrategyConstraint)
	runID := result.RunID.String()
	s.logger.StartSolve(runID, string(model.StrategyConstraint), len(req.Points), req.Horizon.Len(), req.VisitsPerDay)

	if ctx.Err() != nil {
		return s.canceled(ctx, result, start), nil
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	problem, err := constraint.Build(ctx, req.input(), s.options)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return s.canceled(ctx, result, start), nil
		}
		return nil, err
	}
	vars, cons := problem.Stats()
	result.Statistics.Variables = vars
	result.Statistics.Constraints = cons
	s.logger.ModelBuilt(runID, vars, cons, time.Since(start))

	if problem.Infeasible != nil {
		result.finish(cpsat.StatusInfeasible, start)
		result.fail(problem.Infeasible)
		s.logger.SolveComplete(runID, result.StatusName, 0, result.Duration)
		s.recorder.RecordSolve(string(model.StrategyConstraint), result.StatusName, result.Duration, result.Statistics)
		return result, nil
	}

	collector := NewCollector(problem, req.Limit())
	collector.OnProgress = func(found int) {
		s.logger.SolutionFound(runID, found)
		if s.OnProgress != nil {
			s.OnProgress(found)
		}
	}

	engine := cpsat.NewSolver()
	done := make(chan cpsat.Status, 1)
	go func() {
		done <- engine.Solve(ctx, problem.Model, cpsat.Parameters{
			EnumerateAllSolutions: true,
			ProjectOnDecisionVars: true,
		}, collector)
	}()

	var status cpsat.Status
	select {
	case status = <-done:
	case <-ctx.Done():
		engine.StopSearch()
		status = <-done
	}

	stats := engine.Stats()
	result.Schedules = collector.Solutions()
	result.Statistics.Conflicts = stats.Conflicts
	result.Statistics.Branches = stats.Branches
	result.Statistics.WallTime = stats.WallTime
	result.finish(status, start)

	if status == cpsat.StatusModelInvalid {
		return nil, statusError(status, nil)
	}
	switch {
	case ctx.Err() != nil:
		s.logger.Canceled(runID, len(result.Schedules))
	case collector.Full():
		s.logger.LimitReached(runID, req.Limit())
	}
	result.fail(statusError(status, ctx.Err()))

	s.logger.SolveComplete(runID, result.StatusName, len(result.Schedules), result.Duration)
	s.recorder.RecordSolve(string(model.StrategyConstraint), result.StatusName, result.Duration, result.Statistics)
	return result, nil
}

func (s *CPSolver) canceled(ctx context.Context, result *Result, start time.Time) *Result {
	result.finish(cpsat.StatusUnknown, start)
	result.fail(statusError(cpsat.StatusUnknown, ctx.Err()))
	s.logger.Canceled(result.RunID.String(), 0)
	s.recorder.RecordSolve(string(model.StrategyConstraint), result.StatusName, result.Duration, result.Statistics)
	return result
}
