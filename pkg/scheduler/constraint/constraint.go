// Package constraint 将巡店需求翻译为 CP 约束模型
package constraint

import (
	"fmt"
	"strings"

	"github.com/paiban/visitplan/pkg/cpsat"
	apperrors "github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/model"
)

// Type 约束族标识
type Type string

const (
	TypeOneVisitPerDay  Type = "one_visit_per_day" // 每个服务点每天最多一次
	TypeVisitCount      Type = "visit_count"       // 访问次数等于剩余次数
	TypeSlotFilled      Type = "slot_filled"       // 每个时段恰好一个服务点
	TypeMinimalInterval Type = "minimal_interval"  // 同一服务点两次访问的最小间隔
	TypeReification     Type = "reification"       // 辅助布尔变量与访问对的等价
	TypeDailyVisits     Type = "daily_visits"      // 每天恰好访问 VisitsPerDay 个服务点
	TypeVisitCapacity   Type = "visit_capacity"    // 后续日期容纳不下的访问须提前完成
)

// SpacingMode 间隔约束中日期变量的取值方式
type SpacingMode string

const (
	// SpacingStrict 日期变量固定为自身偏移量，所有时段对都受约束，以滑动窗口表达
	SpacingStrict SpacingMode = "strict"
	// SpacingSlack 日期变量允许滑动到下一个日期，仅约束不同时段的访问对
	SpacingSlack SpacingMode = "slack"
)

// ParseSpacingMode 解析间隔模式，空字符串返回默认值
func ParseSpacingMode(s string) (SpacingMode, error) {
	switch SpacingMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SpacingStrict:
		return SpacingStrict, nil
	case SpacingSlack:
		return SpacingSlack, nil
	}
	return "", fmt.Errorf("unknown spacing mode %q", s)
}

// Options 建模选项
type Options struct {
	Spacing SpacingMode `json:"spacing" yaml:"spacing_mode"`

	// SkipSatisfiedPairs 宽松模式下跳过日期差必然满足最小间隔的日期对
	SkipSatisfiedPairs bool `json:"skip_satisfied_pairs" yaml:"skip_satisfied_pairs"`
}

// DefaultOptions 返回默认建模选项
func DefaultOptions() Options {
	return Options{
		Spacing:            SpacingStrict,
		SkipSatisfiedPairs: true,
	}
}

// Input 建模输入
type Input struct {
	Points       []*model.ServicePoint
	Horizon      model.Horizon
	VisitsLeft   model.VisitRequirement
	VisitsPerDay int
}

// Problem 构建完成的约束模型及变量索引
type Problem struct {
	Model *cpsat.Model

	// Visits[d][p][v] 表示第 d 天第 v 个时段访问第 p 个服务点
	Visits [][][]cpsat.IntVar

	// Visited[d][p] 表示第 d 天访问了第 p 个服务点
	Visited [][]cpsat.IntVar

	// Dates[d] 为第 d 天相对首日的天数
	Dates []cpsat.IntVar

	Input   Input
	Options Options

	// Counts 各约束族的约束数量
	Counts map[Type]int

	// Infeasible 构建时即可判定的无解原因，nil 表示需要搜索
	Infeasible *apperrors.AppError
}

// Stats 模型规模
func (p *Problem) Stats() (variables, constraints int) {
	return p.Model.NumVariables(), p.Model.NumConstraints()
}

// Point 返回第 i 个服务点
func (p *Problem) Point(i int) *model.ServicePoint {
	return p.Input.Points[i]
}
