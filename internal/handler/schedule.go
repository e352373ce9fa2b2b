package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/visitplan/internal/config"
	apperrors "github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/logger"
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
	"github.com/paiban/visitplan/pkg/scheduler/solver"
	"github.com/paiban/visitplan/pkg/stats"
	"github.com/paiban/visitplan/pkg/validator"
)

// ResultStore 求解结果存储
type ResultStore interface {
	SaveResult(ctx context.Context, req *solver.Request, res *solver.Result) error
}

// ScheduleHandler 排程处理器
type ScheduleHandler struct {
	cfg       config.SchedulerConfig
	store     ResultStore
	recorder  solver.Recorder
	evaluator *stats.ParallelEvaluator
	logger    *logger.SchedulerLogger
}

// NewScheduleHandler 创建排程处理器，store 和 recorder 可为 nil
func NewScheduleHandler(cfg config.SchedulerConfig, store ResultStore, recorder solver.Recorder) *ScheduleHandler {
	return &ScheduleHandler{
		cfg:       cfg,
		store:     store,
		recorder:  recorder,
		evaluator: stats.NewParallelEvaluator(runtime.GOMAXPROCS(0)),
		logger:    logger.NewSchedulerLogger(),
	}
}

// GenerateRequest 排程生成请求，未给出的参数取配置默认值
type GenerateRequest struct {
	Points        []PointInput     `json:"points"`
	Horizon       []string         `json:"horizon,omitempty"`
	VisitsPerDay  int              `json:"visits_per_day,omitempty"`
	SolutionLimit int              `json:"solution_limit,omitempty"`
	Strategy      string           `json:"strategy,omitempty"` // cp/filler
	Options       *GenerateOptions `json:"options,omitempty"`
	Persist       bool             `json:"persist,omitempty"`
}

// GenerateOptions 生成选项
type GenerateOptions struct {
	Timeout     int    `json:"timeout_seconds,omitempty"`
	SpacingMode string `json:"spacing_mode,omitempty"` // strict/slack
	Attempts    int    `json:"filler_attempts,omitempty"`
	Seed        uint64 `json:"filler_seed,omitempty"`
}

// GenerateResponse 排程生成响应
type GenerateResponse struct {
	Success    bool               `json:"success"`
	RunID      string             `json:"run_id"`
	Strategy   string             `json:"strategy"`
	Status     string             `json:"status"`
	Code       string             `json:"code,omitempty"`
	Message    string             `json:"message,omitempty"`
	Schedules  []ScheduleOutput   `json:"schedules"`
	Statistics *solver.Statistics `json:"statistics"`
	Duration   string             `json:"duration"`
	Saved      bool               `json:"saved"`
}

// ScheduleOutput 单个方案输出（按路线成本排名）
type ScheduleOutput struct {
	ID     string           `json:"id"`
	Rank   int              `json:"rank"`
	Report *stats.Report    `json:"report"`
	Rows   []model.VisitRow `json:"rows"`
}

// Generate 生成巡店计划
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.validateGenerateRequest(&req); err != nil {
		respondError(w, err)
		return
	}

	horizon, err := model.ParseHorizon(req.Horizon)
	if err != nil {
		respondError(w, apperrors.Wrap(err, apperrors.CodeInvalidInput, "排程日期无效").WithDetails(err.Error()))
		return
	}

	points, visitsLeft := buildPoints(req.Points)
	solveReq := &solver.Request{
		Points:        points,
		Horizon:       horizon,
		VisitsLeft:    visitsLeft,
		VisitsPerDay:  req.VisitsPerDay,
		SolutionLimit: req.SolutionLimit,
	}
	if err := solveReq.Validate(); err != nil {
		respondError(w, asAppError(err))
		return
	}

	ctx := r.Context()
	if timeout := h.timeout(req.Options); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := h.newSolver(&req).Solve(ctx, solveReq)
	if err != nil {
		respondError(w, asAppError(err))
		return
	}

	resp := GenerateResponse{
		Success:    result.Status.HasSolution(),
		RunID:      result.RunID.String(),
		Strategy:   string(result.Strategy),
		Status:     result.StatusName,
		Message:    result.Message,
		Schedules:  rankSchedules(result.Schedules, solveReq.VisitsPerDay),
		Statistics: result.Statistics,
		Duration:   result.Duration.String(),
	}
	if result.Error != nil {
		resp.Code = string(result.Error.Code)
	}
	if resp.Message == "" && !resp.Success {
		resp.Message = fmt.Sprintf("未找到方案，状态 %s", result.StatusName)
	}

	if req.Persist && h.store != nil {
		if err := h.store.SaveResult(ctx, solveReq, result); err != nil {
			logger.WithContext(r.Context()).Warn().Err(err).Str("run_id", resp.RunID).Msg("保存求解结果失败")
		} else {
			resp.Saved = true
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// validateGenerateRequest 验证请求并填充默认值
func (h *ScheduleHandler) validateGenerateRequest(req *GenerateRequest) *apperrors.AppError {
	ve := &apperrors.ValidationErrors{}

	validatePoints(ve, req.Points)

	if len(req.Horizon) == 0 {
		req.Horizon = h.cfg.Horizon
	}
	if req.VisitsPerDay == 0 {
		req.VisitsPerDay = h.cfg.VisitsPerDay
	}
	if req.SolutionLimit == 0 {
		req.SolutionLimit = h.cfg.SolutionLimit
	}
	if req.Strategy == "" {
		req.Strategy = h.cfg.Strategy
	}

	if req.VisitsPerDay < 0 {
		ve.Add("visits_per_day", "每日访问数必须大于0")
	}
	if req.SolutionLimit < 0 || req.SolutionLimit > solver.MaxSolutionLimit {
		ve.Add("solution_limit", fmt.Sprintf("方案数上限必须在 0 到 %d 之间", solver.MaxSolutionLimit))
	}
	switch model.StrategyType(req.Strategy) {
	case model.StrategyConstraint, model.StrategyFiller:
	default:
		ve.Add("strategy", "只能是 cp 或 filler")
	}
	if req.Options != nil {
		if _, err := constraint.ParseSpacingMode(req.Options.SpacingMode); err != nil {
			ve.Add("options.spacing_mode", "只能是 strict 或 slack")
		}
		if req.Options.Timeout < 0 {
			ve.Add("options.timeout_seconds", "不能为负")
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// timeout 请求超时优先，其次取配置
func (h *ScheduleHandler) timeout(opts *GenerateOptions) time.Duration {
	if opts != nil && opts.Timeout > 0 {
		return time.Duration(opts.Timeout) * time.Second
	}
	return h.cfg.Timeout
}

// newSolver 按策略创建求解器
func (h *ScheduleHandler) newSolver(req *GenerateRequest) solver.Solver {
	if model.StrategyType(req.Strategy) == model.StrategyFiller {
		attempts, seed := h.cfg.FillerAttempts, h.cfg.FillerSeed
		if req.Options != nil {
			if req.Options.Attempts > 0 {
				attempts = req.Options.Attempts
			}
			if req.Options.Seed != 0 {
				seed = req.Options.Seed
			}
		}
		s := solver.NewFillerSolver(attempts, seed)
		s.SetRecorder(h.recorder)
		return s
	}

	opts := h.cfg.ConstraintOptions()
	if req.Options != nil && req.Options.SpacingMode != "" {
		opts.Spacing, _ = constraint.ParseSpacingMode(req.Options.SpacingMode)
	}
	s := solver.NewCPSolver(opts)
	s.SetRecorder(h.recorder)
	return s
}

// rankSchedules 按路线成本排序并展开明细
func rankSchedules(schedules []*model.Schedule, visitsPerDay int) []ScheduleOutput {
	byID := make(map[uuid.UUID]*model.Schedule, len(schedules))
	for _, s := range schedules {
		byID[s.ID] = s
	}
	out := make([]ScheduleOutput, 0, len(schedules))
	for i, report := range stats.Rank(schedules) {
		out = append(out, ScheduleOutput{
			ID:     report.ScheduleID.String(),
			Rank:   i + 1,
			Report: report,
			Rows:   byID[report.ScheduleID].Rows(visitsPerDay),
		})
	}
	return out
}

// ValidateRequest 方案校验请求
type ValidateRequest struct {
	Points       []PointInput  `json:"points"`
	VisitsPerDay int           `json:"visits_per_day,omitempty"`
	Schedule     ScheduleInput `json:"schedule"`
}

// ValidateResponse 校验响应
type ValidateResponse struct {
	IsValid    bool                  `json:"is_valid"`
	Violations []validator.Violation `json:"violations"`
}

// Validate 校验方案是否满足全部硬约束
func (h *ScheduleHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	ve := &apperrors.ValidationErrors{}
	validatePoints(ve, req.Points)
	if len(req.Schedule.Days) == 0 {
		ve.Add("schedule.days", "方案不能为空")
	}
	if ve.HasErrors() {
		respondError(w, ve.ToAppError())
		return
	}
	if req.VisitsPerDay == 0 {
		req.VisitsPerDay = h.cfg.VisitsPerDay
	}

	points, visitsLeft := buildPoints(req.Points)
	schedule, appErr := buildSchedule(req.Schedule, model.PointIndex(points), false)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	violations := validator.Check(schedule, points, visitsLeft, req.VisitsPerDay)
	if violations == nil {
		violations = []validator.Violation{}
	}
	for _, v := range violations {
		h.logger.ConstraintViolation(string(v.Type), v.Message)
	}

	respondJSON(w, http.StatusOK, ValidateResponse{
		IsValid:    len(violations) == 0,
		Violations: violations,
	})
}
