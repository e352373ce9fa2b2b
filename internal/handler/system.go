package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/paiban/visitplan/pkg/logger"
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

// Pinger 可做健康检查的依赖
type Pinger interface {
	Health(ctx context.Context) error
}

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// SystemHandler 系统端点处理器
type SystemHandler struct {
	build BuildInfo
	db    Pinger
}

// NewSystemHandler 创建系统处理器，db 为 nil 时不检查数据库
func NewSystemHandler(build BuildInfo, db Pinger) *SystemHandler {
	return &SystemHandler{build: build, db: db}
}

// Health 健康检查
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "service": "visitplan"}
	status := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Health(ctx); err != nil {
			logger.Warn().Err(err).Msg("数据库健康检查失败")
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp["database"] = "ok"
		}
	}

	respondJSON(w, status, resp)
}

// Version 版本信息
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.build)
}

// ConstraintDefinition 约束族定义
type ConstraintDefinition struct {
	Name        constraint.Type `json:"name"`
	DisplayName string          `json:"display_name"`
	Description string          `json:"description"`
	Params      []string        `json:"params,omitempty"`
}

// ConstraintLibraryResponse 约束库响应
type ConstraintLibraryResponse struct {
	Library []ConstraintDefinition `json:"library"`
}

// ConstraintLibrary 返回建模使用的全部约束族
func (h *SystemHandler) ConstraintLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	library := []ConstraintDefinition{
		{
			Name:        constraint.TypeOneVisitPerDay,
			DisplayName: "每天至多访问一次",
			Description: "同一服务点在同一天的所有槽位中最多出现一次，是否到访记为当天的到访变量。",
		},
		{
			Name:        constraint.TypeDailyVisits,
			DisplayName: "每日到访数",
			Description: "每一天到访的服务点个数恰好等于每日访问数。",
			Params:      []string{"visits_per_day"},
		},
		{
			Name:        constraint.TypeVisitCount,
			DisplayName: "访问次数",
			Description: "每个服务点在整个排程周期内的访问次数恰好等于剩余访问次数。",
			Params:      []string{"visits_left"},
		},
		{
			Name:        constraint.TypeSlotFilled,
			DisplayName: "槽位填满",
			Description: "每一天的每个槽位恰好安排一个服务点。",
			Params:      []string{"visits_per_day"},
		},
		{
			Name:        constraint.TypeMinimalInterval,
			DisplayName: "最小回访间隔",
			Description: "同一服务点两次访问之间的天数不小于其类别的最小间隔（高5天、中9天、低14天）。严格模式下间隔不足的日期组成窗口，窗口内至多访问一次。",
			Params:      []string{"spacing_mode", "skip_satisfied_pairs"},
		},
		{
			Name:        constraint.TypeVisitCapacity,
			DisplayName: "剩余容量",
			Description: "严格模式下某天之后按最小间隔最多能安排的访问不足时，差额必须在该天之前完成。",
			Params:      []string{"spacing_mode"},
		},
		{
			Name:        constraint.TypeReification,
			DisplayName: "辅助布尔变量",
			Description: "宽松模式下两次访问同时发生当且仅当辅助布尔变量为真，最小间隔约束仅在其为真时生效。",
		},
	}

	respondJSON(w, http.StatusOK, ConstraintLibraryResponse{Library: library})
}
