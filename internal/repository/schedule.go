package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/stats"
)

// Schedule 方案记录
type Schedule struct {
	ID               uuid.UUID      `json:"id"`
	RunID            uuid.UUID      `json:"run_id"`
	Rank             int            `json:"rank"`
	StartDate        time.Time      `json:"start_date"`
	EndDate          time.Time      `json:"end_date"`
	TotalVisits      int            `json:"total_visits"`
	RouteCost        float64        `json:"route_cost"`
	DistrictSwitches int            `json:"district_switches"`
	MinimalIntervals map[string]int `json:"minimal_intervals"`
	CreatedAt        time.Time      `json:"created_at"`
}

// NewScheduleRecord 由方案和评估报告生成记录
func NewScheduleRecord(runID uuid.UUID, rank int, s *model.Schedule, report *stats.Report) *Schedule {
	rec := &Schedule{
		ID:               s.ID,
		RunID:            runID,
		Rank:             rank,
		TotalVisits:      report.TotalVisits,
		RouteCost:        report.RouteCost,
		DistrictSwitches: report.DistrictSwitches,
		MinimalIntervals: report.MinimalIntervals,
	}
	if len(s.Days) > 0 {
		rec.StartDate = s.Days[0].Date
		rec.EndDate = s.Days[len(s.Days)-1].Date
	}
	return rec
}

// Visit 访问明细记录
type Visit struct {
	ScheduleID        uuid.UUID `json:"schedule_id"`
	Date              time.Time `json:"date"`
	Slot              int       `json:"slot"`
	PointID           string    `json:"point_id"`
	Address           string    `json:"address"`
	DistrictMain      string    `json:"district_main"`
	DistrictSecondary string    `json:"district_secondary"`
	Category          string    `json:"category"`
}

// visitColumns 每条访问明细的列数
const visitColumns = 8

// ScheduleRepository 方案仓储
type ScheduleRepository struct {
	db DB
}

// NewScheduleRepository 创建方案仓储
func NewScheduleRepository(db DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create 创建方案记录
func (r *ScheduleRepository) Create(ctx context.Context, s *Schedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	intervalsJSON, err := json.Marshal(s.MinimalIntervals)
	if err != nil {
		return fmt.Errorf("序列化最小间隔失败: %w", err)
	}

	query := `
		INSERT INTO schedules (
			id, run_id, rank, start_date, end_date, total_visits,
			route_cost, district_switches, minimal_intervals, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.RunID, s.Rank, s.StartDate, s.EndDate, s.TotalVisits,
		s.RouteCost, s.DistrictSwitches, intervalsJSON, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建方案记录失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取方案
func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	query := `
		SELECT id, run_id, rank, start_date, end_date, total_visits,
			route_cost, district_switches, minimal_intervals, created_at
		FROM schedules
		WHERE id = $1
	`

	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询方案失败: %w", err)
	}
	return s, nil
}

// ListByRun 按排名列出某次运行的方案
func (r *ScheduleRepository) ListByRun(ctx context.Context, runID uuid.UUID) ([]*Schedule, error) {
	query := `
		SELECT id, run_id, rank, start_date, end_date, total_visits,
			route_cost, district_switches, minimal_intervals, created_at
		FROM schedules
		WHERE run_id = $1
		ORDER BY rank
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("查询方案列表失败: %w", err)
	}
	defer rows.Close()

	var schedules []*Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描方案失败: %w", err)
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// Delete 删除方案
func (r *ScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM schedule_visits WHERE schedule_id = $1", id); err != nil {
		return fmt.Errorf("删除访问明细失败: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = $1", id); err != nil {
		return fmt.Errorf("删除方案记录失败: %w", err)
	}
	return nil
}

// CreateVisits 批量写入方案的访问明细
func (r *ScheduleRepository) CreateVisits(ctx context.Context, scheduleID uuid.UUID, s *model.Schedule) error {
	var placeholders []string
	var args []interface{}

	for _, day := range s.Days {
		for slot, p := range day.Visits {
			n := len(args)
			ph := make([]string, visitColumns)
			for i := range ph {
				ph[i] = fmt.Sprintf("$%d", n+i+1)
			}
			placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")
			args = append(args,
				scheduleID, day.Date, slot, p.ID, p.Address,
				p.District.Main, p.District.Secondary, p.Category.String(),
			)
		}
	}
	if len(placeholders) == 0 {
		return nil
	}

	query := `
		INSERT INTO schedule_visits (
			schedule_id, visit_date, slot, point_id, address,
			district_main, district_secondary, category
		) VALUES ` + strings.Join(placeholders, ", ")

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("写入访问明细失败: %w", err)
	}
	return nil
}

// GetVisits 获取方案的访问明细
func (r *ScheduleRepository) GetVisits(ctx context.Context, scheduleID uuid.UUID) ([]*Visit, error) {
	query := `
		SELECT schedule_id, visit_date, slot, point_id, address,
			district_main, district_secondary, category
		FROM schedule_visits
		WHERE schedule_id = $1
		ORDER BY visit_date, slot
	`

	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("查询访问明细失败: %w", err)
	}
	defer rows.Close()

	var visits []*Visit
	for rows.Next() {
		v := &Visit{}
		if err := rows.Scan(
			&v.ScheduleID, &v.Date, &v.Slot, &v.PointID, &v.Address,
			&v.DistrictMain, &v.DistrictSecondary, &v.Category,
		); err != nil {
			return nil, fmt.Errorf("扫描访问明细失败: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func scanSchedule(sc Scanner) (*Schedule, error) {
	s := &Schedule{}
	var intervalsJSON []byte
	err := sc.Scan(
		&s.ID, &s.RunID, &s.Rank, &s.StartDate, &s.EndDate, &s.TotalVisits,
		&s.RouteCost, &s.DistrictSwitches, &intervalsJSON, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(intervalsJSON) > 0 {
		if err := json.Unmarshal(intervalsJSON, &s.MinimalIntervals); err != nil {
			return nil, fmt.Errorf("解析最小间隔失败: %w", err)
		}
	}
	return s, nil
}
