package model

import (
	"fmt"
	"time"
)

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// Horizon 有序、可间断的工作日序列
// 假定不跨年：日间距按年内天数计算
type Horizon []time.Time

// NewHorizon 创建并校验日期序列：严格递增、无重复、不跨年
func NewHorizon(dates []time.Time) (Horizon, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("日期序列不能为空")
	}
	h := make(Horizon, len(dates))
	for i, d := range dates {
		h[i] = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		if i == 0 {
			continue
		}
		if !h[i].After(h[i-1]) {
			return nil, fmt.Errorf("日期序列必须严格递增: %s 位于 %s 之后",
				h[i].Format(DateLayout), h[i-1].Format(DateLayout))
		}
		if h[i].Year() != h[0].Year() {
			return nil, fmt.Errorf("日期序列不支持跨年: %s", h[i].Format(DateLayout))
		}
	}
	return h, nil
}

// ParseHorizon 解析 YYYY-MM-DD 格式的日期列表
func ParseHorizon(values []string) (Horizon, error) {
	dates := make([]time.Time, 0, len(values))
	for _, v := range values {
		d, err := time.Parse(DateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("日期格式无效 %q，应为YYYY-MM-DD: %w", v, err)
		}
		dates = append(dates, d)
	}
	return NewHorizon(dates)
}

// Len 返回天数
func (h Horizon) Len() int {
	return len(h)
}

// Offsets 返回每一天相对第一天的天数偏移（按年内天数）
func (h Horizon) Offsets() []int {
	offsets := make([]int, len(h))
	if len(h) == 0 {
		return offsets
	}
	first := h[0].YearDay()
	for i, d := range h {
		offsets[i] = d.YearDay() - first
	}
	return offsets
}
