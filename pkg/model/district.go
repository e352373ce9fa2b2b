package model

import "strings"

// 区域转移权重
const (
	WeightSameDistrict     = 0 // 主区域相同
	WeightAdjacentDistrict = 1 // 主区域与另一方的次区域相同
	WeightFarDistrict      = 2 // 无关联
)

// District 两级区域标签（主区域/次区域），比较时不区分大小写
type District struct {
	Main      string `json:"main"`
	Secondary string `json:"secondary"`
}

// NewDistrict 创建区域
func NewDistrict(main, secondary string) District {
	return District{Main: main, Secondary: secondary}
}

// TransitionWeight 计算从当前区域到目标区域的转移权重
// 判定顺序：main==main -> main==secondary -> secondary==main -> 2
func (d District) TransitionWeight(to District) int {
	if strings.EqualFold(d.Main, to.Main) {
		return WeightSameDistrict
	}
	if strings.EqualFold(d.Main, to.Secondary) {
		return WeightAdjacentDistrict
	}
	if strings.EqualFold(d.Secondary, to.Main) {
		return WeightAdjacentDistrict
	}
	return WeightFarDistrict
}

// String 返回 "主区域 / 次区域"
func (d District) String() string {
	return d.Main + " / " + d.Secondary
}
