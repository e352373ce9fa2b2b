// Package solver 提供巡店计划求解器
package solver

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/visitplan/pkg/cpsat"
	apperrors "github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/logger"
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

const (
	// DefaultSolutionLimit 默认最多收集的方案数
	DefaultSolutionLimit = 5
	// MaxSolutionLimit 单次求解允许的方案数上限
	MaxSolutionLimit = 1000
)

// Solver 求解器接口
type Solver interface {
	// Solve 生成巡店计划
	Solve(ctx context.Context, req *Request) (*Result, error)

	// Name 返回求解器名称
	Name() string
}

// Request 求解请求
type Request struct {
	Points        []*model.ServicePoint  `json:"points"`
	Horizon       model.Horizon          `json:"horizon"`
	VisitsLeft    model.VisitRequirement `json:"visits_left"`
	VisitsPerDay  int                    `json:"visits_per_day"`
	SolutionLimit int                    `json:"solution_limit,omitempty"`
}

// Limit 返回有效的方案数上限
func (r *Request) Limit() int {
	if r.SolutionLimit <= 0 {
		return DefaultSolutionLimit
	}
	return r.SolutionLimit
}

// Validate 检查前置条件
func (r *Request) Validate() error {
	if r.Horizon.Len() == 0 {
		return apperrors.PreconditionFailed("排程日期为空")
	}
	if r.VisitsPerDay <= 0 {
		return apperrors.PreconditionFailed(fmt.Sprintf("每日访问数必须大于0: %d", r.VisitsPerDay))
	}
	if r.SolutionLimit > MaxSolutionLimit {
		return apperrors.PreconditionFailed(fmt.Sprintf("方案数上限不能超过 %d: %d", MaxSolutionLimit, r.SolutionLimit))
	}
	if err := r.VisitsLeft.Covers(r.Points); err != nil {
		return apperrors.Wrap(err, apperrors.CodePreconditionFailed, "剩余访问次数与服务点不匹配")
	}
	return nil
}

func (r *Request) input() constraint.Input {
	return constraint.Input{
		Points:       r.Points,
		Horizon:      r.Horizon,
		VisitsLeft:   r.VisitsLeft,
		VisitsPerDay: r.VisitsPerDay,
	}
}

// Result 求解结果
type Result struct {
	RunID      uuid.UUID          `json:"run_id"`
	Strategy   model.StrategyType `json:"strategy"`
	Status     cpsat.Status       `json:"-"`
	StatusName string             `json:"status"`
	Schedules  []*model.Schedule  `json:"schedules"`
	Statistics *Statistics        `json:"statistics"`
	Duration   time.Duration      `json:"duration"`
	Message    string             `json:"message,omitempty"`

	// Error 求解未正常结束的原因：无解、超时、取消
	Error *apperrors.AppError `json:"error,omitempty"`
}

func newResult(strategy model.StrategyType) *Result {
	return &Result{
		RunID:      uuid.New(),
		Strategy:   strategy,
		Status:     cpsat.StatusUnknown,
		Schedules:  make([]*model.Schedule, 0),
		Statistics: &Statistics{},
	}
}

// fail 记录未正常结束的原因
func (r *Result) fail(err *apperrors.AppError) {
	if err == nil {
		return
	}
	r.Error = err
	r.Message = err.Message
}

// statusError 将终止状态和 ctx 错误转换为错误码，正常结束返回 nil
func statusError(status cpsat.Status, ctxErr error) *apperrors.AppError {
	switch {
	case status == cpsat.StatusModelInvalid:
		return apperrors.New(apperrors.CodeModelInvalid, "约束模型非法")
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return apperrors.New(apperrors.CodeTimeout, "求解超时")
	case ctxErr != nil:
		return apperrors.New(apperrors.CodeCanceled, "求解被取消")
	case status == cpsat.StatusInfeasible:
		return apperrors.NoFeasibleSolution("无可行解，请调整日期范围、每日访问数或访问次数")
	}
	return nil
}

func (r *Result) finish(status cpsat.Status, start time.Time) {
	r.Status = status
	r.StatusName = status.String()
	r.Duration = time.Since(start)
	r.Statistics.Status = r.StatusName
	r.Statistics.SolutionsFound = len(r.Schedules)
}

// Statistics 求解统计
type Statistics struct {
	Status         string        `json:"status"`
	Conflicts      int64         `json:"conflicts"`
	Branches       int64         `json:"branches"`
	WallTime       time.Duration `json:"wall_time"`
	SolutionsFound int           `json:"solutions_found"`
	Variables      int           `json:"variables,omitempty"`
	Constraints    int           `json:"constraints,omitempty"`
	Attempts       int           `json:"attempts,omitempty"`
}

// Recorder 求解指标记录
type Recorder interface {
	RecordSolve(strategy string, status string, duration time.Duration, stats *Statistics)
}

type nopRecorder struct{}

func (nopRecorder) RecordSolve(string, string, time.Duration, *Statistics) {}

// Solutions 返回求解器产生的方案序列，最多产生 req.Limit() 个方案
// 开始迭代时才求解，每次迭代重新求解；序列在求解完成后才产出第一个方案，并非边搜索边产出，
// 需要搜索中的进度时使用 CPSolver.OnProgress。求解错误只记录日志，需要错误信息时直接调用 Solve
func Solutions(ctx context.Context, s Solver, req *Request) iter.Seq[*model.Schedule] {
	return func(yield func(*model.Schedule) bool) {
		res, err := s.Solve(ctx, req)
		if err != nil {
			logger.Warn().Err(err).Str("solver", s.Name()).Msg("求解失败")
			return
		}
		for i, sch := range res.Schedules {
			if i >= req.Limit() || !yield(sch) {
				return
			}
		}
	}
}
