package solver

import (
	"github.com/paiban/visitplan/pkg/cpsat"
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

// Collector 在搜索线程上收集可行解，达到上限后停止搜索
// 回调同步执行，不做任何阻塞操作。求解按决策变量投影，每种访问方案只回调一次
type Collector struct {
	problem *constraint.Problem
	limit   int

	// OnProgress 每收集到一个方案调用一次
	OnProgress func(found int)

	solutions []*model.Schedule
}

// NewCollector 创建方案收集器，limit <= 0 时使用默认上限
func NewCollector(problem *constraint.Problem, limit int) *Collector {
	if limit <= 0 {
		limit = DefaultSolutionLimit
	}
	return &Collector{
		problem: problem,
		limit:   limit,
	}
}

// OnSolution 实现 cpsat.SolutionCallback
func (c *Collector) OnSolution(a *cpsat.Assignment) {
	if len(c.solutions) >= c.limit {
		a.StopSearch()
		return
	}

	visits := c.problem.Visits
	dates := c.problem.Input.Horizon
	days := make([]model.DayPlan, len(visits))

	for d := range visits {
		plan := model.DayPlan{
			Date:   dates[d],
			Visits: make([]*model.ServicePoint, 0, c.problem.Input.VisitsPerDay),
		}
		for v := 0; v < c.problem.Input.VisitsPerDay; v++ {
			for p := range visits[d] {
				if a.BooleanValue(visits[d][p][v]) {
					plan.Visits = append(plan.Visits, c.problem.Point(p))
				}
			}
		}
		days[d] = plan
	}

	c.solutions = append(c.solutions, model.NewSchedule(model.StrategyConstraint, days))
	if c.OnProgress != nil {
		c.OnProgress(len(c.solutions))
	}
	if len(c.solutions) >= c.limit {
		a.StopSearch()
	}
}

// Solutions 返回已收集的方案
func (c *Collector) Solutions() []*model.Schedule {
	return c.solutions
}

// Full 是否已达到上限
func (c *Collector) Full() bool {
	return len(c.solutions) >= c.limit
}
