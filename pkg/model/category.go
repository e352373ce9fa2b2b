package model

import (
	"fmt"
	"strings"
	"time"
)

// Category 服务点优先级类别
type Category int

const (
	CategoryHighPriority   Category = iota + 1 // 高优先级
	CategoryMediumPriority                     // 中优先级
	CategoryLowPriority                        // 低优先级
)

// 各类别最小回访间隔（天）
const (
	HighPriorityInterval   = 5
	MediumPriorityInterval = 9
	LowPriorityInterval    = 14
)

var categoryNames = map[Category]string{
	CategoryHighPriority:   "HighPriority",
	CategoryMediumPriority: "MediumPriority",
	CategoryLowPriority:    "LowPriority",
}

// Categories 返回全部有效类别
func Categories() []Category {
	return []Category{CategoryHighPriority, CategoryMediumPriority, CategoryLowPriority}
}

// ParseCategory 解析类别名称（不区分大小写）
func ParseCategory(s string) (Category, error) {
	name := strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(categoryNames[c], name) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("无效的服务点类别: %q", s)
}

// String 返回类别名称
func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// IsValid 检查类别是否有效
func (c Category) IsValid() bool {
	_, ok := categoryNames[c]
	return ok
}

// MinimalInterval 返回该类别两次拜访之间的最小间隔天数
func (c Category) MinimalInterval() (int, error) {
	switch c {
	case CategoryHighPriority:
		return HighPriorityInterval, nil
	case CategoryMediumPriority:
		return MediumPriorityInterval, nil
	case CategoryLowPriority:
		return LowPriorityInterval, nil
	default:
		return 0, fmt.Errorf("无效的服务点类别: %d", int(c))
	}
}

// MustMinimalInterval 同 MinimalInterval，类别无效时 panic
func (c Category) MustMinimalInterval() int {
	interval, err := c.MinimalInterval()
	if err != nil {
		panic(err)
	}
	return interval
}

// NextVisitDate 计算下一次可拜访日期，落在周末时顺延到周一
func (c Category) NextVisitDate(lastVisit time.Time) (time.Time, error) {
	interval, err := c.MinimalInterval()
	if err != nil {
		return time.Time{}, err
	}
	next := lastVisit.AddDate(0, 0, interval)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// MarshalText 实现 encoding.TextMarshaler
func (c Category) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("无效的服务点类别: %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
