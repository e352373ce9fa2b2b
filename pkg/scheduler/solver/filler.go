package solver

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/paiban/visitplan/pkg/cpsat"
	"github.com/paiban/visitplan/pkg/logger"
	"github.com/paiban/visitplan/pkg/model"
)

// DefaultFillerAttempts 随机填充默认尝试次数
const DefaultFillerAttempts = 100

// FillerSolver 随机填充求解器
// 每天从已到下次访问日期且仍有剩余次数的服务点中随机选取，候选不足时本次尝试失败
type FillerSolver struct {
	attempts int
	seed     uint64
	logger   *logger.SchedulerLogger
	recorder Recorder

	mu   sync.Mutex
	best []model.DayPlan
}

// NewFillerSolver 创建随机填充求解器
func NewFillerSolver(attempts int, seed uint64) *FillerSolver {
	if attempts <= 0 {
		attempts = DefaultFillerAttempts
	}
	return &FillerSolver{
		attempts: attempts,
		seed:     seed,
		logger:   logger.NewSchedulerLogger(),
		recorder: nopRecorder{},
	}
}

// Name 返回求解器名称
func (s *FillerSolver) Name() string {
	return "FillerSolver"
}

// SetRecorder 设置指标记录器
func (s *FillerSolver) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	s.recorder = r
}

// Solve 多次随机填充，每次成功产生一个方案
func (s *FillerSolver) Solve(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	result := newResult(model.StrategyFiller)
	runID := result.RunID.String()
	s.logger.StartSolve(runID, string(model.StrategyFiller), len(req.Points), req.Horizon.Len(), req.VisitsPerDay)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	attempts := 0
	for attempts < s.attempts && len(result.Schedules) < req.Limit() {
		if ctx.Err() != nil {
			s.logger.Canceled(runID, len(result.Schedules))
			result.fail(statusError(cpsat.StatusUnknown, ctx.Err()))
			break
		}
		attempts++

		days, ok := s.fill(req, rng)
		if !ok {
			continue
		}
		result.Schedules = append(result.Schedules, model.NewSchedule(model.StrategyFiller, days))
		s.logger.SolutionFound(runID, len(result.Schedules))
	}

	// 随机填充无法证明无解
	status := cpsat.StatusUnknown
	if len(result.Schedules) > 0 {
		status = cpsat.StatusFeasible
	}
	result.Statistics.Attempts = attempts
	result.Statistics.WallTime = time.Since(start)
	result.finish(status, start)

	s.logger.SolveComplete(runID, result.StatusName, len(result.Schedules), result.Duration)
	s.recorder.RecordSolve(string(model.StrategyFiller), result.StatusName, result.Duration, result.Statistics)
	return result, nil
}

// fill 执行一次随机填充，失败时保留最长的部分方案
func (s *FillerSolver) fill(req *Request, rng *rand.Rand) ([]model.DayPlan, bool) {
	lastVisit := make(map[string]time.Time, len(req.Points))
	left := req.VisitsLeft.Copy()
	days := make([]model.DayPlan, 0, req.Horizon.Len())

	for _, day := range req.Horizon {
		candidates := make([]*model.ServicePoint, 0, len(req.Points))
		for _, p := range req.Points {
			next, err := p.Category.NextVisitDate(lastVisit[p.ID])
			if err != nil || next.After(day) || left[p.ID] <= 0 {
				continue
			}
			candidates = append(candidates, p)
		}

		if len(candidates) < req.VisitsPerDay {
			s.keepBest(days)
			return nil, false
		}

		rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		planned := candidates[:req.VisitsPerDay]
		for _, p := range planned {
			lastVisit[p.ID] = day
			left[p.ID]--
		}
		days = append(days, model.DayPlan{Date: day, Visits: planned})
	}
	return days, true
}

func (s *FillerSolver) keepBest(days []model.DayPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(days) > len(s.best) {
		s.best = days
	}
}

// BestPartial 返回失败尝试中最长的部分方案，没有时返回 nil
func (s *FillerSolver) BestPartial() *model.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.best) == 0 {
		return nil
	}
	return model.NewSchedule(model.StrategyFiller, s.best)
}
