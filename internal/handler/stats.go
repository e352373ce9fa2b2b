package handler

import (
	"net/http"

	apperrors "github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/logger"
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/stats"
)

// EvaluateRequest 方案评估请求
type EvaluateRequest struct {
	Points    []PointInput    `json:"points"`
	Schedules []ScheduleInput `json:"schedules"`
}

// EvaluateResponse 评估响应，Reports 按路线成本升序
type EvaluateResponse struct {
	Success    bool               `json:"success"`
	Reports    []*stats.Report    `json:"reports"`
	Comparison map[string]float64 `json:"comparison,omitempty"` // 恰好两个方案时给出，差值为第二个减第一个
}

// Evaluate 评估方案的路线成本与最小间隔
func (h *ScheduleHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	ve := &apperrors.ValidationErrors{}
	validatePoints(ve, req.Points)
	if len(req.Schedules) == 0 {
		ve.Add("schedules", "方案列表不能为空")
	}
	if ve.HasErrors() {
		respondError(w, ve.ToAppError())
		return
	}

	points, _ := buildPoints(req.Points)
	index := model.PointIndex(points)

	schedules := make([]*model.Schedule, 0, len(req.Schedules))
	for _, in := range req.Schedules {
		s, err := buildSchedule(in, index, true)
		if err != nil {
			respondError(w, err)
			return
		}
		schedules = append(schedules, s)
	}

	logger.WithContext(r.Context()).Debug().
		Int("schedules", len(schedules)).
		Int("points", len(points)).
		Msg("接收方案评估请求")

	reports, err := h.evaluator.Rank(r.Context(), schedules)
	if err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeCanceled, "评估被取消"))
		return
	}

	resp := EvaluateResponse{
		Success: true,
		Reports: reports,
	}
	if len(schedules) == 2 {
		resp.Comparison = stats.Compare(schedules[0], schedules[1])
	}

	respondJSON(w, http.StatusOK, resp)
}
