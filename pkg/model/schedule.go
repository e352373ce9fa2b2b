package model

import (
	"fmt"
	"time"
)

// DayPlan 某一天的拜访安排，Visits 的顺序即拜访顺序（槽位0最先）
type DayPlan struct {
	Date   time.Time       `json:"date"`
	Visits []*ServicePoint `json:"visits"`
}

// Schedule 一个完整的排程方案：日期 -> 有序拜访列表
// 构造后不再修改，每个求解结果对应一个新实例
type Schedule struct {
	BaseModel
	Strategy StrategyType `json:"strategy"`
	Days     []DayPlan    `json:"days"`
}

// NewSchedule 创建排程方案，days 按日期顺序给出
func NewSchedule(strategy StrategyType, days []DayPlan) *Schedule {
	return &Schedule{
		BaseModel: NewBaseModel(),
		Strategy:  strategy,
		Days:      days,
	}
}

// TotalVisits 返回总拜访次数
func (s *Schedule) TotalVisits() int {
	total := 0
	for _, d := range s.Days {
		total += len(d.Visits)
	}
	return total
}

// VisitCounts 统计每个服务点的拜访次数
func (s *Schedule) VisitCounts() map[string]int {
	counts := make(map[string]int)
	for _, d := range s.Days {
		for _, p := range d.Visits {
			counts[p.ID]++
		}
	}
	return counts
}

// VisitRow 拜访明细行（供展示层使用）
type VisitRow struct {
	Date     string `json:"date"`
	Slot     int    `json:"slot"`
	PointID  string `json:"point_id"`
	Address  string `json:"address"`
	District string `json:"district"`
	Category string `json:"category"`
}

// Rows 展开为逐条拜访明细，未填充的槽位以 "-" 表示
func (s *Schedule) Rows(visitsPerDay int) []VisitRow {
	rows := make([]VisitRow, 0, len(s.Days)*visitsPerDay)
	for _, d := range s.Days {
		date := d.Date.Format(DateLayout)
		n := visitsPerDay
		if len(d.Visits) > n {
			n = len(d.Visits)
		}
		for slot := 0; slot < n; slot++ {
			if slot >= len(d.Visits) || d.Visits[slot] == nil {
				rows = append(rows, VisitRow{Date: date, Slot: slot, PointID: "-", Address: "-", District: "- / -", Category: "-"})
				continue
			}
			p := d.Visits[slot]
			rows = append(rows, VisitRow{
				Date:     date,
				Slot:     slot,
				PointID:  p.ID,
				Address:  p.Address,
				District: p.District.String(),
				Category: p.Category.String(),
			})
		}
	}
	return rows
}

// String 返回简要描述
func (s *Schedule) String() string {
	return fmt.Sprintf("Schedule(%s, %d天, %d次拜访)", s.ID, len(s.Days), s.TotalVisits())
}
