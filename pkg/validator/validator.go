// Package validator 提供巡店计划的硬约束校验
package validator

import (
	"fmt"
	"sort"
	"time"

	"github.com/paiban/visitplan/pkg/model"
)

// ViolationType 违反类型
type ViolationType string

const (
	ViolationSlotCount    ViolationType = "slot_count"      // 当天访问数不等于每日访问数
	ViolationDuplicate    ViolationType = "duplicate_visit" // 同一服务点同一天出现多次
	ViolationVisitCount   ViolationType = "visit_count"     // 访问次数不等于剩余次数
	ViolationInterval     ViolationType = "interval"        // 两次访问间隔小于类别要求
	ViolationUnknownPoint ViolationType = "unknown_point"   // 方案中出现未知服务点
	ViolationDateOrder    ViolationType = "date_order"      // 日期未严格递增
)

// Violation 违反详情
type Violation struct {
	Type    ViolationType `json:"type"`
	PointID string        `json:"point_id,omitempty"`
	Date    string        `json:"date,omitempty"`
	Message string        `json:"message"`
}

// Check 校验方案是否满足全部硬约束，按日期顺序报告，访问次数违反排在最后
func Check(s *model.Schedule, points []*model.ServicePoint, visitsLeft model.VisitRequirement, visitsPerDay int) []Violation {
	index := model.PointIndex(points)
	var violations []Violation

	var prev time.Time
	lastVisit := make(map[string]time.Time)
	counts := make(map[string]int)

	for i, day := range s.Days {
		date := day.Date.Format(model.DateLayout)
		if i > 0 && !day.Date.After(prev) {
			violations = append(violations, Violation{
				Type:    ViolationDateOrder,
				Date:    date,
				Message: fmt.Sprintf("日期 %s 未晚于前一天 %s", date, prev.Format(model.DateLayout)),
			})
		}
		prev = day.Date

		if len(day.Visits) != visitsPerDay {
			violations = append(violations, Violation{
				Type:    ViolationSlotCount,
				Date:    date,
				Message: fmt.Sprintf("访问数 %d，要求 %d", len(day.Visits), visitsPerDay),
			})
		}

		seen := make(map[string]bool, len(day.Visits))
		for _, v := range day.Visits {
			p, ok := index[v.ID]
			if !ok {
				violations = append(violations, Violation{
					Type:    ViolationUnknownPoint,
					PointID: v.ID,
					Date:    date,
					Message: "服务点不在输入列表中",
				})
				continue
			}
			if seen[p.ID] {
				violations = append(violations, Violation{
					Type:    ViolationDuplicate,
					PointID: p.ID,
					Date:    date,
					Message: "同一天重复访问",
				})
				continue
			}
			seen[p.ID] = true
			counts[p.ID]++

			if last, ok := lastVisit[p.ID]; ok {
				gap := day.Date.YearDay() - last.YearDay()
				if required, err := p.Category.MinimalInterval(); err == nil && gap < required {
					violations = append(violations, Violation{
						Type:    ViolationInterval,
						PointID: p.ID,
						Date:    date,
						Message: fmt.Sprintf("距上次访问 %s 仅 %d 天，%s 要求至少 %d 天",
							last.Format(model.DateLayout), gap, p.Category, required),
					})
				}
			}
			lastVisit[p.ID] = day.Date
		}
	}

	ids := make([]string, 0, len(points))
	for _, p := range points {
		ids = append(ids, p.ID)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if want := visitsLeft[id]; counts[id] != want {
			violations = append(violations, Violation{
				Type:    ViolationVisitCount,
				PointID: id,
				Message: fmt.Sprintf("访问 %d 次，要求 %d 次", counts[id], want),
			})
		}
	}

	return violations
}

// Valid 方案是否无任何违反
func Valid(s *model.Schedule, points []*model.ServicePoint, visitsLeft model.VisitRequirement, visitsPerDay int) bool {
	return len(Check(s, points, visitsLeft, visitsPerDay)) == 0
}
