package cpsat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ctxCheckInterval 每隔多少次分支检查一次 context
const ctxCheckInterval = 256

// Parameters 求解参数
type Parameters struct {
	// EnumerateAllSolutions 为 true 时找到解后继续搜索，直到穷尽或被停止
	EnumerateAllSolutions bool

	// ProjectOnDecisionVars 为 true 时只按决策变量区分解：
	// 决策变量全部固定后，其余变量只求一个补全即回溯
	ProjectOnDecisionVars bool
}

// SolutionCallback 每找到一个可行解时在搜索线程上同步调用，不得阻塞
type SolutionCallback interface {
	OnSolution(a *Assignment)
}

// CallbackFunc 函数适配器
type CallbackFunc func(a *Assignment)

// OnSolution 实现 SolutionCallback
func (f CallbackFunc) OnSolution(a *Assignment) {
	f(a)
}

// Assignment 当前解的只读视图，仅在回调期间有效
type Assignment struct {
	values []int
	solver *Solver
}

// Value 返回变量取值
func (a *Assignment) Value(v IntVar) int {
	return a.values[v.index]
}

// BooleanValue 返回布尔变量取值
func (a *Assignment) BooleanValue(v IntVar) bool {
	return a.values[v.index] != 0
}

// StopSearch 请求停止搜索
func (a *Assignment) StopSearch() {
	a.solver.StopSearch()
}

// Solver 求解器，一个实例同一时间只运行一次求解
type Solver struct {
	stop  atomic.Bool
	mu    sync.Mutex
	stats Stats
}

// NewSolver 创建求解器
func NewSolver() *Solver {
	return &Solver{}
}

// StopSearch 请求停止搜索（可在任意 goroutine 调用）
func (s *Solver) StopSearch() {
	s.stop.Store(true)
}

// Stats 返回最近一次求解的统计
func (s *Solver) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Solve 求解模型。ctx 取消或调用 StopSearch 都会终止搜索，已找到的解保留在回调方。
func (s *Solver) Solve(ctx context.Context, m *Model, params Parameters, cb SolutionCallback) Status {
	start := time.Now()
	s.stop.Store(false)

	if err := m.Validate(); err != nil {
		s.setStats(Stats{WallTime: time.Since(start)})
		return StatusModelInvalid
	}

	st := newSearch(ctx, m, s, params, cb)
	exhausted := st.run()

	stats := st.stats
	stats.WallTime = time.Since(start)
	s.setStats(stats)

	switch {
	case stats.Solutions == 0 && exhausted:
		return StatusInfeasible
	case stats.Solutions == 0:
		return StatusUnknown
	case exhausted:
		return StatusOptimal
	default:
		return StatusFeasible
	}
}

func (s *Solver) setStats(stats Stats) {
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
}
