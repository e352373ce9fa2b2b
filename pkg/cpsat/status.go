package cpsat

import "time"

// Status 求解终止状态
type Status int

const (
	StatusUnknown      Status = iota // 未完成搜索且未找到解
	StatusModelInvalid               // 模型非法
	StatusFeasible                   // 找到解但搜索被提前终止
	StatusInfeasible                 // 搜索完成且无解
	StatusOptimal                    // 搜索完成且找到解（无目标函数时即全部可行解已枚举）
)

// String 返回状态名称
func (s Status) String() string {
	switch s {
	case StatusModelInvalid:
		return "ModelInvalid"
	case StatusFeasible:
		return "Feasible"
	case StatusInfeasible:
		return "Infeasible"
	case StatusOptimal:
		return "Optimal"
	default:
		return "Unknown"
	}
}

// HasSolution 是否至少找到一个解
func (s Status) HasSolution() bool {
	return s == StatusFeasible || s == StatusOptimal
}

// Stats 搜索统计
type Stats struct {
	Conflicts int64         `json:"conflicts"`
	Branches  int64         `json:"branches"`
	Solutions int64         `json:"solutions"`
	WallTime  time.Duration `json:"wall_time"`
}
