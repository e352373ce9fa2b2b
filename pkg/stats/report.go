package stats

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/paiban/visitplan/pkg/model"
)

// Report 单个方案的评估报告
type Report struct {
	ScheduleID       uuid.UUID      `json:"schedule_id"`
	RouteCost        float64        `json:"route_cost"`
	DayRouteCosts    []int          `json:"day_route_costs"`
	MinimalIntervals map[string]int `json:"minimal_intervals"` // 类别名 -> 最小间隔
	IntervalMargin   map[string]int `json:"interval_margin"`   // 最小间隔超出类别要求的天数
	DistrictSwitches int            `json:"district_switches"` // 相邻访问跨区域次数
	DayCostGini      float64        `json:"day_cost_gini"`     // 各天路线成本的基尼系数
	TotalVisits      int            `json:"total_visits"`
}

// Evaluate 计算方案的评估报告
func Evaluate(s *model.Schedule) *Report {
	r := &Report{
		ScheduleID:       s.ID,
		RouteCost:        RouteCost(s),
		DayRouteCosts:    make([]int, len(s.Days)),
		MinimalIntervals: make(map[string]int),
		IntervalMargin:   make(map[string]int),
		TotalVisits:      s.TotalVisits(),
	}

	costs := make([]float64, len(s.Days))
	for i, day := range s.Days {
		r.DayRouteCosts[i] = DayRouteCost(day.Visits)
		costs[i] = float64(r.DayRouteCosts[i])
		for j := 1; j < len(day.Visits); j++ {
			if day.Visits[j-1].District.TransitionWeight(day.Visits[j].District) > 0 {
				r.DistrictSwitches++
			}
		}
	}
	r.DayCostGini = gini(costs)

	for c, gap := range MinimalIntervals(s) {
		r.MinimalIntervals[c.String()] = gap
		if required, err := c.MinimalInterval(); err == nil {
			r.IntervalMargin[c.String()] = gap - required
		}
	}
	return r
}

// Rank 按路线成本升序评估并排序，成本相同时跨区域次数少的在前
func Rank(schedules []*model.Schedule) []*Report {
	reports := make([]*Report, len(schedules))
	for i, s := range schedules {
		reports[i] = Evaluate(s)
	}
	sortReports(reports)
	return reports
}

func sortReports(reports []*Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].RouteCost != reports[j].RouteCost {
			return reports[i].RouteCost < reports[j].RouteCost
		}
		return reports[i].DistrictSwitches < reports[j].DistrictSwitches
	})
}

// Compare 比较两个方案，差值为 b - a
func Compare(a, b *model.Schedule) map[string]float64 {
	ra, rb := Evaluate(a), Evaluate(b)
	return map[string]float64{
		"route_cost_diff":        rb.RouteCost - ra.RouteCost,
		"district_switches_diff": float64(rb.DistrictSwitches - ra.DistrictSwitches),
		"day_cost_gini_diff":     rb.DayCostGini - ra.DayCostGini,
		"schedule1_route_cost":   ra.RouteCost,
		"schedule2_route_cost":   rb.RouteCost,
	}
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}
