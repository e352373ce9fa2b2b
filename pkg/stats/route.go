// Package stats 提供巡店计划的评估指标
package stats

import (
	"sort"

	"github.com/paiban/visitplan/pkg/model"
)

// DayRouteCost 当天按访问顺序相邻两次访问的区域转移权重之和
func DayRouteCost(visits []*model.ServicePoint) int {
	cost := 0
	for i := 1; i < len(visits); i++ {
		cost += visits[i-1].District.TransitionWeight(visits[i].District)
	}
	return cost
}

// RouteCost 各天路线成本的平均值，越小越好
func RouteCost(s *model.Schedule) float64 {
	if s == nil || len(s.Days) == 0 {
		return 0
	}
	total := 0
	for _, day := range s.Days {
		total += DayRouteCost(day.Visits)
	}
	return float64(total) / float64(len(s.Days))
}

// PointIntervals 每个至少访问两次的服务点相邻访问日期的最小间隔（按年内天数计算）
func PointIntervals(s *model.Schedule) map[string]int {
	dates := make(map[string][]int)
	for _, day := range s.Days {
		for _, p := range day.Visits {
			dates[p.ID] = append(dates[p.ID], day.Date.YearDay())
		}
	}

	out := make(map[string]int)
	for id, days := range dates {
		if len(days) < 2 {
			continue
		}
		sort.Ints(days)
		gap := days[1] - days[0]
		for i := 2; i < len(days); i++ {
			gap = min(gap, days[i]-days[i-1])
		}
		out[id] = gap
	}
	return out
}

// MinimalIntervals 各类别中服务点最小间隔的最小值
// 只访问0次或1次的服务点不参与统计
func MinimalIntervals(s *model.Schedule) map[model.Category]int {
	categories := make(map[string]model.Category)
	for _, day := range s.Days {
		for _, p := range day.Visits {
			categories[p.ID] = p.Category
		}
	}

	out := make(map[model.Category]int)
	for id, gap := range PointIntervals(s) {
		c := categories[id]
		if cur, ok := out[c]; !ok || gap < cur {
			out[c] = gap
		}
	}
	return out
}
