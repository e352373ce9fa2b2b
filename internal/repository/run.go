package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/visitplan/pkg/scheduler/solver"
)

// SolveRun 求解运行记录
type SolveRun struct {
	ID             uuid.UUID `json:"id"`
	Strategy       string    `json:"strategy"`
	Status         string    `json:"status"`
	Points         int       `json:"points"`
	Days           int       `json:"days"`
	VisitsPerDay   int       `json:"visits_per_day"`
	SolutionLimit  int       `json:"solution_limit"`
	SolutionsFound int       `json:"solutions_found"`
	Conflicts      int64     `json:"conflicts"`
	Branches       int64     `json:"branches"`
	WallTimeMs     int64     `json:"wall_time_ms"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewSolveRun 由求解结果生成运行记录
func NewSolveRun(req *solver.Request, res *solver.Result) *SolveRun {
	return &SolveRun{
		ID:             res.RunID,
		Strategy:       string(res.Strategy),
		Status:         res.StatusName,
		Points:         len(req.Points),
		Days:           req.Horizon.Len(),
		VisitsPerDay:   req.VisitsPerDay,
		SolutionLimit:  req.Limit(),
		SolutionsFound: len(res.Schedules),
		Conflicts:      res.Statistics.Conflicts,
		Branches:       res.Statistics.Branches,
		WallTimeMs:     res.Statistics.WallTime.Milliseconds(),
		Message:        res.Message,
	}
}

const solveRunColumns = `id, strategy, status, points, days, visits_per_day, solution_limit,
	solutions_found, conflicts, branches, wall_time_ms, message, created_at`

// SolveRunRepository 求解运行仓储
type SolveRunRepository struct {
	db DB
}

// NewSolveRunRepository 创建求解运行仓储
func NewSolveRunRepository(db DB) *SolveRunRepository {
	return &SolveRunRepository{db: db}
}

// Create 创建运行记录
func (r *SolveRunRepository) Create(ctx context.Context, run *SolveRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO solve_runs (` + solveRunColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Strategy, run.Status, run.Points, run.Days, run.VisitsPerDay, run.SolutionLimit,
		run.SolutionsFound, run.Conflicts, run.Branches, run.WallTimeMs, run.Message, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建求解记录失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取运行记录
func (r *SolveRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*SolveRun, error) {
	query := `SELECT ` + solveRunColumns + ` FROM solve_runs WHERE id = $1`

	run, err := scanSolveRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询求解记录失败: %w", err)
	}
	return run, nil
}

// Delete 删除运行记录，方案和访问明细级联删除
func (r *SolveRunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM solve_runs WHERE id = $1", id); err != nil {
		return fmt.Errorf("删除求解记录失败: %w", err)
	}
	return nil
}

// List 列出运行记录
func (r *SolveRunRepository) List(ctx context.Context, filter ListFilter) ([]*SolveRun, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Strategy != "" {
		conditions = append(conditions, fmt.Sprintf("strategy = $%d", argNum))
		args = append(args, filter.Strategy)
		argNum++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, filter.Status)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM solve_runs %s", whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计求解记录失败: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM solve_runs %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		solveRunColumns, whereClause, filter.orderClause("created_at", "wall_time_ms", "solutions_found"), argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询求解记录失败: %w", err)
	}
	defer rows.Close()

	var runs []*SolveRun
	for rows.Next() {
		run, err := scanSolveRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("扫描求解记录失败: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

func scanSolveRun(s Scanner) (*SolveRun, error) {
	run := &SolveRun{}
	err := s.Scan(
		&run.ID, &run.Strategy, &run.Status, &run.Points, &run.Days, &run.VisitsPerDay, &run.SolutionLimit,
		&run.SolutionsFound, &run.Conflicts, &run.Branches, &run.WallTimeMs, &run.Message, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}
