package model

import "fmt"

// ServicePoint 服务点（需要定期拜访的网点）
type ServicePoint struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	District District `json:"district"`
	Address  string   `json:"address"`
}

// NewServicePoint 创建服务点
func NewServicePoint(id string, category Category, district District, address string) *ServicePoint {
	return &ServicePoint{
		ID:       id,
		Category: category,
		District: district,
		Address:  address,
	}
}

// VisitRequirement 服务点ID -> 剩余应拜访次数
type VisitRequirement map[string]int

// Copy 返回副本
func (r VisitRequirement) Copy() VisitRequirement {
	out := make(VisitRequirement, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Covers 检查需求是否恰好覆盖每个服务点一次，且次数非负
func (r VisitRequirement) Covers(points []*ServicePoint) error {
	seen := make(map[string]bool, len(points))
	for _, p := range points {
		if seen[p.ID] {
			return fmt.Errorf("服务点ID重复: %s", p.ID)
		}
		seen[p.ID] = true

		n, ok := r[p.ID]
		if !ok {
			return fmt.Errorf("服务点 %s 缺少拜访次数", p.ID)
		}
		if n < 0 {
			return fmt.Errorf("服务点 %s 拜访次数为负: %d", p.ID, n)
		}
	}
	for id := range r {
		if !seen[id] {
			return fmt.Errorf("拜访次数中存在未知服务点: %s", id)
		}
	}
	return nil
}

// PointIndex 按ID索引服务点
func PointIndex(points []*ServicePoint) map[string]*ServicePoint {
	idx := make(map[string]*ServicePoint, len(points))
	for _, p := range points {
		idx[p.ID] = p
	}
	return idx
}
